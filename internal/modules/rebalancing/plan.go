package rebalancing

// BuildPlan runs the whole pipeline over one snapshot. The plan is Balanced when
// no asset sits under its target, whatever the contribution.
func BuildPlan(raw []RawHolding, targets []AssetTarget, contribution float64) (*Plan, error) {
	table, err := Normalize(raw, targets)
	if err != nil {
		return nil, err
	}

	table, err = ComputeMetrics(table, contribution)
	if err != nil {
		return nil, err
	}

	summary := Summarize(table)
	return &Plan{
		Contribution: contribution,
		Table:        table,
		Summary:      summary,
		Balanced:     positiveGapSum(table.Rows, summary.TotalValue+contribution) == 0,
	}, nil
}
