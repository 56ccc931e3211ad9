package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/config"
	"github.com/aristath/rebalancer/internal/modules/allocation"
)

type targetsCmd struct {
	cfg *config.Config
	log zerolog.Logger
	out io.Writer

	targets string
	yaml    bool
}

func (*targetsCmd) Name() string     { return "targets" }
func (*targetsCmd) Synopsis() string { return "print the normalized target allocation" }
func (*targetsCmd) Usage() string {
	return `rebalance targets [-targets <targets.yaml>] [-yaml]

  Loads the target configuration, rescales its weights to sum to 100% and
  prints them. Without a targets file the reference portfolio is shown.
`
}

func (t *targetsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&t.targets, "targets", t.cfg.TargetsFile, "YAML target configuration.")
	f.BoolVar(&t.yaml, "yaml", false, "Print the normalized targets as YAML.")
}

func (t *targetsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	targets, err := allocation.NewRepository(t.targets, t.log).Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if t.yaml {
		err = allocation.WriteTargets(t.out, targets)
	} else {
		err = renderTargets(t.out, targets)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
