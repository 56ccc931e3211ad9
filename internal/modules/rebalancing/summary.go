package rebalancing

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// topConcentrationCount is how many of the largest holdings TopConcentration covers
const topConcentrationCount = 3

// Summarize computes the headline metrics of a computed table.
//
// TotalResult is set only when the holdings carried a profit/loss column and
// WeightedReturn only when they carried a return column; rows with no value in
// a present column are skipped. TopConcentration is the combined current share of
// the three largest holdings, ties kept in table order.
func Summarize(table *AllocationTable) SummaryMetrics {
	var summary SummaryMetrics
	if table == nil {
		return summary
	}

	summary.TotalValue = floats.Sum(table.MarketValues())
	summary.Allocated = floats.Sum(table.Contributions())

	if table.Columns.ProfitLoss {
		var result float64
		for _, row := range table.Rows {
			if row.ProfitLoss != nil {
				result += *row.ProfitLoss
			}
		}
		summary.TotalResult = &result
	}

	if table.Columns.ReturnPct {
		var weighted float64
		for _, row := range table.Rows {
			if row.ReturnPct != nil {
				weighted += *row.ReturnPct * row.CurrentShare
			}
		}
		summary.WeightedReturn = &weighted
	}

	summary.TopConcentration = topConcentration(table.Rows, topConcentrationCount)
	return summary
}

func topConcentration(rows []AllocationRow, n int) float64 {
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rows[order[a]].MarketValue > rows[order[b]].MarketValue
	})

	if n > len(order) {
		n = len(order)
	}
	var share float64
	for _, idx := range order[:n] {
		share += rows[idx].CurrentShare
	}
	return share
}
