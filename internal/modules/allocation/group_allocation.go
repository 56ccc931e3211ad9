package allocation

import (
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
)

// CategoryAllocation aggregates an allocation table over one category
type CategoryAllocation struct {
	Name         string  `json:"name" msgpack:"name"`
	TargetPct    float64 `json:"target_pct" msgpack:"target_pct"`
	CurrentPct   float64 `json:"current_pct" msgpack:"current_pct"`
	CurrentValue float64 `json:"current_value" msgpack:"current_value"`
	Deviation    float64 `json:"deviation" msgpack:"deviation"`
	Contribution float64 `json:"contribution" msgpack:"contribution"`
}

// Uncategorized groups rows whose target has no category
const Uncategorized = "OTHER"

// CalculateCategoryAllocation groups a computed table by target category.
// Categories keep the order in which they first appear in the table.
func CalculateCategoryAllocation(table *rebalancing.AllocationTable) []CategoryAllocation {
	if table == nil {
		return nil
	}

	var allocations []CategoryAllocation
	index := make(map[string]int)

	for _, row := range table.Rows {
		name := row.Category
		if name == "" {
			name = Uncategorized
		}

		i, ok := index[name]
		if !ok {
			i = len(allocations)
			index[name] = i
			allocations = append(allocations, CategoryAllocation{Name: name})
		}

		alloc := &allocations[i]
		alloc.TargetPct += row.TargetWeight
		alloc.CurrentPct += row.CurrentShare
		alloc.CurrentValue += row.MarketValue
		alloc.Contribution += row.Contribution
	}

	for i := range allocations {
		allocations[i].Deviation = allocations[i].CurrentPct - allocations[i].TargetPct
	}

	return allocations
}
