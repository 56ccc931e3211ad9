package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/config"
	"github.com/aristath/rebalancer/internal/modules/allocation"
	"github.com/aristath/rebalancer/internal/modules/holdings"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
)

type planCmd struct {
	cfg *config.Config
	log zerolog.Logger
	out io.Writer

	holdings     string
	targets      string
	contribution float64
	sheets       int
	currency     string
	json         bool
}

func (*planCmd) Name() string { return "plan" }
func (*planCmd) Synopsis() string {
	return "compute how to split a contribution across under-target assets"
}
func (*planCmd) Usage() string {
	return `rebalance plan -holdings <file.xlsx|file.csv> [-targets <targets.yaml>] [-contribution <amount>] [-sheets <n>] [-json]

  Reads a holdings export, merges it with the target allocation and prints
  each asset's current share, gap to target and share of the contribution.
`
}

func (p *planCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.holdings, "holdings", "", "Holdings export (.xlsx or .csv).")
	f.StringVar(&p.targets, "targets", p.cfg.TargetsFile, "YAML target configuration.")
	f.Float64Var(&p.contribution, "contribution", p.cfg.DefaultContribution, "Amount to invest this month.")
	f.IntVar(&p.sheets, "sheets", p.cfg.HoldingsSheets, "Number of leading workbook sheets to read.")
	f.StringVar(&p.currency, "currency", defaultCurrency, "Currency code used to display amounts.")
	f.BoolVar(&p.json, "json", false, "Print the plan as JSON.")
}

func (p *planCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.holdings == "" {
		fmt.Fprintln(os.Stderr, "-holdings is required")
		f.Usage()
		return subcommands.ExitUsageError
	}

	plan, err := p.run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if p.json {
		err = writePlanJSON(p.out, plan)
	} else {
		err = renderPlan(p.out, plan, p.currency)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// run loads the targets and holdings and computes the plan
func (p *planCmd) run() (*rebalancing.Plan, error) {
	targets, err := allocation.NewRepository(p.targets, p.log).Load()
	if err != nil {
		return nil, err
	}

	raw, err := holdings.NewReader(p.sheets, p.log).ReadFile(p.holdings)
	if err != nil {
		return nil, err
	}

	service := rebalancing.NewService(targets, p.contribution, p.log)
	return service.Plan(raw, rebalancing.PlanOptions{})
}

// planOutput is the JSON document printed by plan -json
type planOutput struct {
	*rebalancing.Plan
	Categories []allocation.CategoryAllocation `json:"categories"`
}

func writePlanJSON(w io.Writer, plan *rebalancing.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(planOutput{
		Plan:       plan,
		Categories: allocation.CalculateCategoryAllocation(plan.Table),
	})
}
