package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/renderer"
	"github.com/google/subcommands"
)

type showCmd struct {
	offline bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display the report of the recorded balances" }
func (*showCmd) Usage() string {
	return `tsy show [-offline]

  Displays the report of the balances recorded by the last cycle, without
  querying the chain nor modifying the state.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.offline, "offline", false, "Do not query the price either")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening state: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	state, err := store.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading state: %v\n", err)
		return subcommands.ExitFailure
	}
	opts, err := reportOptions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing locale: %v\n", err)
		return subcommands.ExitUsageError
	}

	var oracle treasury.PriceOracle = newOracle(cfg, newLogger())
	if c.offline {
		oracle = treasury.PriceOracleFunc(func(context.Context) (treasury.Money, error) {
			return treasury.Money{}, treasury.ErrPriceUnavailable
		})
	}
	report := treasury.BuildReport(ctx, state.Accounts, oracle, time.Unix(state.LastUpdated, 0), opts)
	printMarkdown(renderer.ReportMarkdown(report))
	return subcommands.ExitSuccess
}
