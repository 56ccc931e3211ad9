package allocation

import (
	"testing"

	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateCategoryAllocation(t *testing.T) {
	table := &rebalancing.AllocationTable{Rows: []rebalancing.AllocationRow{
		{Category: CategoryFixedIncome, AssetID: "B5P211", TargetWeight: 0.3, MarketValue: 400, CurrentShare: 0.4, Contribution: 0},
		{Category: CategoryEquities, AssetID: "DIVO11", TargetWeight: 0.2, MarketValue: 100, CurrentShare: 0.1, Contribution: 60},
		{Category: CategoryFixedIncome, AssetID: "IB5M11", TargetWeight: 0.1, MarketValue: 100, CurrentShare: 0.1, Contribution: 10},
		{Category: CategoryInternational, AssetID: "IVVB11", TargetWeight: 0.4, MarketValue: 400, CurrentShare: 0.4, Contribution: 30},
	}}

	result := CalculateCategoryAllocation(table)
	require.Len(t, result, 3)

	// Categories keep first-seen order
	assert.Equal(t, CategoryFixedIncome, result[0].Name)
	assert.Equal(t, CategoryEquities, result[1].Name)
	assert.Equal(t, CategoryInternational, result[2].Name)

	fixed := result[0]
	assert.InDelta(t, 0.4, fixed.TargetPct, 1e-12)
	assert.InDelta(t, 0.5, fixed.CurrentPct, 1e-12)
	assert.Equal(t, 500.0, fixed.CurrentValue)
	assert.InDelta(t, 0.1, fixed.Deviation, 1e-12)
	assert.Equal(t, 10.0, fixed.Contribution)

	equities := result[1]
	assert.InDelta(t, -0.1, equities.Deviation, 1e-12, "under target deviation is negative")
	assert.Equal(t, 60.0, equities.Contribution)
}

func TestCalculateCategoryAllocation_Uncategorized(t *testing.T) {
	table := &rebalancing.AllocationTable{Rows: []rebalancing.AllocationRow{
		{AssetID: "A", TargetWeight: 0.5, MarketValue: 10},
		{AssetID: "B", TargetWeight: 0.5, MarketValue: 30},
	}}

	result := CalculateCategoryAllocation(table)
	require.Len(t, result, 1)
	assert.Equal(t, "OTHER", result[0].Name)
	assert.Equal(t, 40.0, result[0].CurrentValue)
	assert.Equal(t, 1.0, result[0].TargetPct)
}

func TestCalculateCategoryAllocation_FromPlan(t *testing.T) {
	raw := []rebalancing.RawHolding{
		{"ATIVO": "B5P211", "PATRIMÔNIO ATUAL": 30000.0},
		{"ATIVO": "IVVB11", "PATRIMÔNIO ATUAL": 20000.0},
	}
	plan, err := rebalancing.BuildPlan(raw, DefaultTargets(), 2500)
	require.NoError(t, err)

	result := CalculateCategoryAllocation(plan.Table)
	require.Len(t, result, 3)

	var target, share, contribution float64
	for _, c := range result {
		target += c.TargetPct
		share += c.CurrentPct
		contribution += c.Contribution
	}
	assert.InDelta(t, 1.0, target, 1e-9)
	assert.InDelta(t, 1.0, share, 1e-9)
	assert.InDelta(t, 2500.0, contribution, 1e-6)
}

func TestCalculateCategoryAllocation_Nil(t *testing.T) {
	assert.Nil(t, CalculateCategoryAllocation(nil))
}
