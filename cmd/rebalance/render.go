package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/aristath/rebalancer/internal/modules/allocation"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
)

const defaultCurrency = "BRL"

// formatMoney renders amount in currency, rounded to the currency's minor unit.
// Unknown currency codes fall back to two decimals with the code appended.
func formatMoney(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%.2f %s", amount, currency)
	}

	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

func formatPct(share float64) string {
	return fmt.Sprintf("%.2f%%", share*100)
}

// renderPlan prints the allocation table, the category breakdown and the summary
func renderPlan(w io.Writer, plan *rebalancing.Plan, currency string) error {
	table := plan.Table
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := "Category\tAsset\tTarget\tCurrent\tValue\tGap\tContribution\t"
	if table.Columns.ReturnPct {
		header += "Return\t"
	}
	if table.Columns.ProfitLoss {
		header += "Result\t"
	}
	fmt.Fprintln(tw, header)

	for _, row := range table.Rows {
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\t%s\t",
			row.Category,
			row.AssetID,
			formatPct(row.TargetWeight),
			formatPct(row.CurrentShare),
			formatMoney(row.MarketValue, currency),
			formatMoney(row.Gap, currency),
			formatMoney(row.Contribution, currency),
		)
		if table.Columns.ReturnPct {
			line += optionalPct(row.ReturnPct) + "\t"
		}
		if table.Columns.ProfitLoss {
			line += optionalMoney(row.ProfitLoss, currency) + "\t"
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Category\tTarget\tCurrent\tValue\tContribution\t")
	for _, c := range allocation.CalculateCategoryAllocation(table) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			c.Name,
			formatPct(c.TargetPct),
			formatPct(c.CurrentPct),
			formatMoney(c.CurrentValue, currency),
			formatMoney(c.Contribution, currency),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	summary := plan.Summary
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total value:       %s\n", formatMoney(summary.TotalValue, currency))
	if summary.TotalResult != nil {
		fmt.Fprintf(w, "Total result:      %s\n", formatMoney(*summary.TotalResult, currency))
	}
	if summary.WeightedReturn != nil {
		fmt.Fprintf(w, "Weighted return:   %s\n", formatPct(*summary.WeightedReturn))
	}
	fmt.Fprintf(w, "Top 3 share:       %s\n", formatPct(summary.TopConcentration))
	fmt.Fprintf(w, "Contribution:      %s\n", formatMoney(plan.Contribution, currency))
	fmt.Fprintf(w, "Allocated:         %s\n", formatMoney(summary.Allocated, currency))

	if plan.Balanced {
		fmt.Fprintln(w, "\nPortfolio is balanced: no asset is under its target.")
	}
	if len(table.Unmatched) > 0 {
		fmt.Fprintf(w, "\nIgnored holdings not in the targets: %v\n", table.Unmatched)
	}
	if len(table.NegativeValues) > 0 {
		fmt.Fprintf(w, "Negative market values counted as zero: %v\n", table.NegativeValues)
	}
	return nil
}

// renderTargets prints targets with their weights as percentages
func renderTargets(w io.Writer, targets []rebalancing.AssetTarget) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Category\tAsset\tWeight")
	for _, t := range targets {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Category, t.AssetID, formatPct(t.TargetWeight))
	}
	fmt.Fprintf(tw, "\t\t%s\n", formatPct(allocation.WeightSum(targets)))
	return tw.Flush()
}

func optionalPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatPct(*v)
}

func optionalMoney(v *float64, currency string) string {
	if v == nil {
		return "-"
	}
	return formatMoney(*v, currency)
}
