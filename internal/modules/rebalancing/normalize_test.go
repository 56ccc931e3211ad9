package rebalancing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_LeftJoinKeepsTargetOrder(t *testing.T) {
	targets := []AssetTarget{
		{Category: "Exterior", AssetID: "IVVB11", TargetWeight: 0.5},
		{Category: "Renda Fixa", AssetID: "B5P211", TargetWeight: 0.3},
		{Category: "Ações", AssetID: "DIVO11", TargetWeight: 0.2},
	}
	raw := []RawHolding{
		{"ATIVO": "B5P211", "PATRIMÔNIO ATUAL": 3000.0},
		{"ATIVO": "PETR4", "PATRIMÔNIO ATUAL": 999.0},
		{"ATIVO": "IVVB11", "PATRIMÔNIO ATUAL": "R$ 1.500,50"},
	}

	table, err := Normalize(raw, targets)
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	assert.Equal(t, "IVVB11", table.Rows[0].AssetID)
	assert.Equal(t, "Exterior", table.Rows[0].Category)
	assert.InDelta(t, 1500.50, table.Rows[0].MarketValue, 1e-9)
	assert.Equal(t, "B5P211", table.Rows[1].AssetID)
	assert.Equal(t, 3000.0, table.Rows[1].MarketValue)
	assert.Equal(t, "DIVO11", table.Rows[2].AssetID)
	assert.Equal(t, 0.0, table.Rows[2].MarketValue, "missing holding defaults to zero")
	assert.Equal(t, 0.2, table.Rows[2].TargetWeight)

	assert.Equal(t, []string{"PETR4"}, table.Unmatched)
}

func TestNormalize_RowCountMatchesTargets(t *testing.T) {
	targets := []AssetTarget{
		{AssetID: "A", TargetWeight: 0.25},
		{AssetID: "B", TargetWeight: 0.25},
		{AssetID: "C", TargetWeight: 0.25},
		{AssetID: "D", TargetWeight: 0.25},
	}

	cases := map[string][]RawHolding{
		"none":      nil,
		"one":       {{"ticker": "B", "value": 10}},
		"all":       holdings(map[string]float64{"A": 1, "B": 2, "C": 3, "D": 4}),
		"unrelated": {{"ticker": "X", "value": 10}, {"ticker": "Y", "value": 20}},
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			table, err := Normalize(raw, targets)
			require.NoError(t, err)
			assert.Len(t, table.Rows, len(targets))
		})
	}
}

func TestNormalize_MissingHoldingHasLargerGap(t *testing.T) {
	targets := twoAssetTargets(0.5, 0.5)

	withB := compute(t, holdings(map[string]float64{"A": 100, "B": 100}), targets, 100)
	withoutB := compute(t, holdings(map[string]float64{"A": 100}), targets, 100)

	assert.Equal(t, 0.0, withoutB.Rows[1].MarketValue)
	assert.Greater(t, withoutB.Rows[1].Gap, withB.Rows[1].Gap)
}

func TestNormalize_OptionalColumns(t *testing.T) {
	targets := twoAssetTargets(0.5, 0.5)

	t.Run("absent columns stay absent", func(t *testing.T) {
		table, err := Normalize(holdings(map[string]float64{"A": 100}), targets)
		require.NoError(t, err)
		assert.Equal(t, Columns{}, table.Columns)
		assert.Nil(t, table.Rows[0].ReturnPct)
		assert.Nil(t, table.Rows[0].ProfitLoss)
	})

	t.Run("present columns are mapped", func(t *testing.T) {
		raw := []RawHolding{{
			"ATIVO":            "A",
			"PATRIMÔNIO ATUAL": 1100.0,
			"RENTABILIDADE":    "10%",
			"RESULTADO":        100.0,
			"PREÇO MÉDIO":      "10,00",
			"PREÇO ATUAL":      11.0,
			"QUANTIDADE":       100,
			"CORRETORA":        "XP",
		}}
		table, err := Normalize(raw, targets)
		require.NoError(t, err)

		assert.Equal(t, Columns{ReturnPct: true, ProfitLoss: true, AvgPrice: true, LastPrice: true, Quantity: true}, table.Columns)
		row := table.Rows[0]
		require.NotNil(t, row.ReturnPct)
		assert.InDelta(t, 0.10, *row.ReturnPct, 1e-12)
		assert.Equal(t, 100.0, *row.ProfitLoss)
		assert.Equal(t, 10.0, *row.AvgPrice)
		assert.Equal(t, 11.0, *row.LastPrice)
		assert.Equal(t, 100.0, *row.Quantity)

		// B has no holding: the column exists but the value does not
		assert.Nil(t, table.Rows[1].ReturnPct)
		assert.Nil(t, table.Rows[1].ProfitLoss)
	})

	t.Run("unparseable optional value is absent", func(t *testing.T) {
		raw := []RawHolding{{"ATIVO": "A", "PATRIMÔNIO ATUAL": 1.0, "RESULTADO": "n/a"}}
		table, err := Normalize(raw, targets)
		require.NoError(t, err)
		assert.True(t, table.Columns.ProfitLoss)
		assert.Nil(t, table.Rows[0].ProfitLoss)
	})
}

func TestNormalize_LenientValues(t *testing.T) {
	raw := []RawHolding{
		{"ATIVO": "A", "PATRIMÔNIO ATUAL": "--"},
		{"ATIVO": "", "PATRIMÔNIO ATUAL": 500.0},
		{"ATIVO": "B", "PATRIMÔNIO ATUAL": nil},
	}
	table, err := Normalize(raw, twoAssetTargets(0.5, 0.5))
	require.NoError(t, err)

	assert.Equal(t, 0.0, table.Rows[0].MarketValue)
	assert.Equal(t, 0.0, table.Rows[1].MarketValue)
	assert.Empty(t, table.Unmatched, "rows without asset id are skipped, not unmatched")
}

func TestNormalize_MergesDuplicateHoldings(t *testing.T) {
	raw := []RawHolding{
		{"ATIVO": "A", "PATRIMÔNIO ATUAL": 300.0, "RENTABILIDADE": 0.10, "RESULTADO": 30.0, "QUANTIDADE": 3, "PREÇO ATUAL": 100.0},
		{"ATIVO": "A", "PATRIMÔNIO ATUAL": 100.0, "RENTABILIDADE": 0.30, "RESULTADO": -5.0, "QUANTIDADE": 1, "PREÇO ATUAL": 99.0},
	}
	table, err := Normalize(raw, twoAssetTargets(0.5, 0.5))
	require.NoError(t, err)

	row := table.Rows[0]
	assert.Equal(t, 400.0, row.MarketValue)
	assert.InDelta(t, 0.15, *row.ReturnPct, 1e-12)
	assert.Equal(t, 25.0, *row.ProfitLoss)
	assert.Equal(t, 4.0, *row.Quantity)
	assert.Equal(t, 100.0, *row.LastPrice)
}

func TestNormalize_DoesNotShareStateWithInput(t *testing.T) {
	raw := []RawHolding{{"ATIVO": "A", "PATRIMÔNIO ATUAL": 100.0, "RESULTADO": 7.0}}
	targets := twoAssetTargets(0.5, 0.5)

	first, err := Normalize(raw, targets)
	require.NoError(t, err)
	*first.Rows[0].ProfitLoss = 1000
	first.Rows[0].MarketValue = 1

	second, err := Normalize(raw, targets)
	require.NoError(t, err)
	assert.Equal(t, 7.0, *second.Rows[0].ProfitLoss)
	assert.Equal(t, 100.0, second.Rows[0].MarketValue)
	assert.Equal(t, 100.0, raw[0]["PATRIMÔNIO ATUAL"])
	assert.Equal(t, 0.5, targets[0].TargetWeight)
}

func TestNormalize_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		targets []AssetTarget
	}{
		{"empty", nil},
		{"empty asset id", []AssetTarget{{AssetID: "", TargetWeight: 1}}},
		{"duplicate", []AssetTarget{{AssetID: "A", TargetWeight: 0.5}, {AssetID: "A", TargetWeight: 0.5}}},
		{"negative weight", []AssetTarget{{AssetID: "A", TargetWeight: -0.5}, {AssetID: "B", TargetWeight: 1.5}}},
		{"zero sum", []AssetTarget{{AssetID: "A", TargetWeight: 0}, {AssetID: "B", TargetWeight: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(holdings(map[string]float64{"A": 1}), tt.targets)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)

			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
			assert.NotEmpty(t, cfgErr.Reason)
		})
	}
}

func TestNormalize_DataShapeErrors(t *testing.T) {
	targets := twoAssetTargets(0.5, 0.5)

	tests := []struct {
		name string
		raw  []RawHolding
	}{
		{"nil row", []RawHolding{{"ATIVO": "A", "PATRIMÔNIO ATUAL": 1.0}, nil}},
		{"no identifier column", []RawHolding{{"Nome": "A", "PATRIMÔNIO ATUAL": 1.0}}},
		{"no value column", []RawHolding{{"ATIVO": "A", "RESULTADO": 1.0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, targets)
			assert.ErrorIs(t, err, ErrDataShape)
		})
	}
}

func TestNormalize_ClampsNegativeMarketValues(t *testing.T) {
	targets := []AssetTarget{
		{AssetID: "A", TargetWeight: 0.4},
		{AssetID: "B", TargetWeight: 0.3},
		{AssetID: "C", TargetWeight: 0.3},
	}
	raw := []RawHolding{
		{"ATIVO": "C", "PATRIMÔNIO ATUAL": "-50"},
		{"ATIVO": "A", "PATRIMÔNIO ATUAL": "(12)"},
		{"ATIVO": "B", "PATRIMÔNIO ATUAL": -20.0},
		{"ATIVO": "B", "PATRIMÔNIO ATUAL": 120.0},
	}

	table, err := Normalize(raw, targets)
	require.NoError(t, err)

	assert.Equal(t, 0.0, table.Rows[0].MarketValue)
	assert.Equal(t, 100.0, table.Rows[1].MarketValue, "merged total is positive")
	assert.Equal(t, 0.0, table.Rows[2].MarketValue)
	assert.Equal(t, []string{"A", "C"}, table.NegativeValues, "listed in target order")

	computed, err := ComputeMetrics(table, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, computed.NegativeValues)
	for _, row := range computed.Rows {
		assert.GreaterOrEqual(t, row.CurrentShare, 0.0)
	}
}
