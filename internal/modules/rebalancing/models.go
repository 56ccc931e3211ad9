// Package rebalancing computes monthly contribution plans that move a portfolio
// toward its target allocation.
//
// The pipeline is Normalize → ComputeMetrics → Summarize. Every step is a pure
// function: inputs are never modified and each call returns freshly allocated
// values, so the same inputs can be evaluated concurrently with different
// contributions.
package rebalancing

// AssetTarget is one row of the target-weight configuration
type AssetTarget struct {
	Category     string  `json:"category" yaml:"category" msgpack:"category"`
	AssetID      string  `json:"asset_id" yaml:"asset_id" msgpack:"asset_id"`
	TargetWeight float64 `json:"weight" yaml:"weight" msgpack:"weight"`
}

// RawHolding is one row of a holdings snapshot as read from its source, keyed by
// the source's own column headers. Values may be strings or numbers.
type RawHolding map[string]interface{}

// HoldingRecord is a holdings row mapped to canonical fields.
// Optional fields are nil when the source did not carry a usable value.
type HoldingRecord struct {
	AssetID     string
	MarketValue float64
	ReturnPct   *float64
	ProfitLoss  *float64
	AvgPrice    *float64
	LastPrice   *float64
	Quantity    *float64
}

// Columns records which optional columns were present in the holdings source.
// A present column with a nil value on some row is different from an absent column.
type Columns struct {
	ReturnPct  bool `json:"return_pct" msgpack:"return_pct"`
	ProfitLoss bool `json:"profit_loss" msgpack:"profit_loss"`
	AvgPrice   bool `json:"avg_price" msgpack:"avg_price"`
	LastPrice  bool `json:"last_price" msgpack:"last_price"`
	Quantity   bool `json:"quantity" msgpack:"quantity"`
}

// AllocationRow is the per-asset output of the rebalancer.
// CurrentShare, Gap and Contribution are zero until ComputeMetrics runs.
type AllocationRow struct {
	Category     string   `json:"category" msgpack:"category"`
	AssetID      string   `json:"asset_id" msgpack:"asset_id"`
	TargetWeight float64  `json:"target_weight" msgpack:"target_weight"`
	MarketValue  float64  `json:"market_value" msgpack:"market_value"`
	ReturnPct    *float64 `json:"return_pct,omitempty" msgpack:"return_pct,omitempty"`
	ProfitLoss   *float64 `json:"profit_loss,omitempty" msgpack:"profit_loss,omitempty"`
	AvgPrice     *float64 `json:"avg_price,omitempty" msgpack:"avg_price,omitempty"`
	LastPrice    *float64 `json:"last_price,omitempty" msgpack:"last_price,omitempty"`
	Quantity     *float64 `json:"quantity,omitempty" msgpack:"quantity,omitempty"`
	CurrentShare float64  `json:"current_share" msgpack:"current_share"`
	Gap          float64  `json:"gap" msgpack:"gap"`
	Contribution float64  `json:"contribution" msgpack:"contribution"`
}

// AllocationTable holds one row per target asset, in target configuration order.
type AllocationTable struct {
	Rows    []AllocationRow `json:"rows" msgpack:"rows"`
	Columns Columns         `json:"columns" msgpack:"columns"`
	// Unmatched lists holdings whose asset_id is not in the target configuration,
	// in first-seen order. Those holdings are not part of Rows.
	Unmatched []string `json:"unmatched" msgpack:"unmatched"`
	// NegativeValues lists target assets whose holdings summed to a negative
	// market value, in target order. Their MarketValue was clamped to 0.
	NegativeValues []string `json:"negative_values" msgpack:"negative_values"`
}

// SummaryMetrics are the headline figures of a computed table.
// TotalResult and WeightedReturn are nil when the holdings did not track them.
type SummaryMetrics struct {
	TotalValue       float64  `json:"total_value" msgpack:"total_value"`
	TotalResult      *float64 `json:"total_result,omitempty" msgpack:"total_result,omitempty"`
	WeightedReturn   *float64 `json:"weighted_return,omitempty" msgpack:"weighted_return,omitempty"`
	TopConcentration float64  `json:"top_concentration" msgpack:"top_concentration"`
	Allocated        float64  `json:"allocated" msgpack:"allocated"`
}

// Plan bundles a computed table with its summary
type Plan struct {
	Contribution float64          `json:"contribution" msgpack:"contribution"`
	Table        *AllocationTable `json:"table" msgpack:"table"`
	Summary      SummaryMetrics   `json:"summary" msgpack:"summary"`
	// Balanced is true when no asset was under target, so nothing was allocated.
	Balanced bool `json:"balanced" msgpack:"balanced"`
}

// Clone returns a deep copy of the table
func (t *AllocationTable) Clone() *AllocationTable {
	if t == nil {
		return nil
	}
	out := &AllocationTable{
		Rows:           make([]AllocationRow, len(t.Rows)),
		Columns:        t.Columns,
		Unmatched:      append([]string(nil), t.Unmatched...),
		NegativeValues: append([]string(nil), t.NegativeValues...),
	}
	for i, row := range t.Rows {
		row.ReturnPct = cloneFloat(row.ReturnPct)
		row.ProfitLoss = cloneFloat(row.ProfitLoss)
		row.AvgPrice = cloneFloat(row.AvgPrice)
		row.LastPrice = cloneFloat(row.LastPrice)
		row.Quantity = cloneFloat(row.Quantity)
		out.Rows[i] = row
	}
	return out
}

// MarketValues returns the market value column in row order
func (t *AllocationTable) MarketValues() []float64 {
	values := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row.MarketValue
	}
	return values
}

// Contributions returns the contribution column in row order
func (t *AllocationTable) Contributions() []float64 {
	values := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row.Contribution
	}
	return values
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func floatPtr(v float64) *float64 {
	return &v
}
