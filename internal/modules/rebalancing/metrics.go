package rebalancing

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// gapEpsilon is the relative size below which the sum of positive gaps is treated
// as zero. It is scaled by the post-contribution portfolio value.
const gapEpsilon = 1e-9

// ComputeMetrics fills CurrentShare, Gap and Contribution on a copy of table.
//
//	total        = Σ market_value
//	current_share = market_value / total          (0 when total is 0)
//	gap           = (total + contribution) * target_weight - market_value
//	contribution_i = gap / Σ positive gaps * contribution, for gap > 0
//
// When no gap is meaningfully positive every contribution is 0 and the amount
// stays unallocated. No rounding is applied.
func ComputeMetrics(table *AllocationTable, contribution float64) (*AllocationTable, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, configErrorf("target weights must not be empty")
	}
	if !isFinite(contribution) || contribution < 0 {
		return nil, configErrorf("contribution must be a non-negative number, got %v", contribution)
	}

	out := table.Clone()
	total := floats.Sum(out.MarketValues())

	for i := range out.Rows {
		row := &out.Rows[i]
		row.CurrentShare = 0
		if total != 0 {
			row.CurrentShare = row.MarketValue / total
		}
		row.Gap = (total+contribution)*row.TargetWeight - row.MarketValue
		row.Contribution = 0
	}

	denom := positiveGapSum(out.Rows, total+contribution)
	if denom == 0 {
		return out, nil
	}

	for i := range out.Rows {
		row := &out.Rows[i]
		if row.Gap > 0 {
			row.Contribution = row.Gap / denom * contribution
		}
	}

	return out, nil
}

// positiveGapSum returns the sum of positive gaps, or 0 when that sum is
// indistinguishable from zero relative to scale.
func positiveGapSum(rows []AllocationRow, scale float64) float64 {
	positiveGaps := make([]float64, 0, len(rows))
	for _, row := range rows {
		if row.Gap > 0 {
			positiveGaps = append(positiveGaps, row.Gap)
		}
	}
	if len(positiveGaps) == 0 {
		return 0
	}

	denom := floats.Sum(positiveGaps)
	if denom <= gapEpsilon*math.Max(1, math.Abs(scale)) {
		return 0
	}
	return denom
}
