package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/renderer"
	"github.com/google/subcommands"
)

type onceCmd struct {
	dryRun bool
	quiet  bool
}

func (*onceCmd) Name() string     { return "once" }
func (*onceCmd) Synopsis() string { return "run a single cycle and print the report" }
func (*onceCmd) Usage() string {
	return `tsy once [-n] [-q]

  Runs a single cycle: reads every balance, records the changes in the state,
  edits the Discord message and prints the report.
`
}

func (c *onceCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "n", false, "Do not publish the report, the state is still updated")
	f.BoolVar(&c.quiet, "q", false, "Do not print the report")
}

func (c *onceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}
	log := newLogger()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening state: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore()

	w, err := newWatcher(cfg, store, log, nil, !c.dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring the watcher: %v\n", err)
		return subcommands.ExitFailure
	}
	report, err := w.Cycle(ctx)
	// a publish error happens after the state is persisted, the report is still worth printing.
	if err != nil && !errors.Is(err, treasury.ErrPublish) {
		fmt.Fprintf(os.Stderr, "Error running the cycle: %v\n", err)
		return subcommands.ExitFailure
	}
	if !c.quiet {
		printMarkdown(renderer.ReportMarkdown(report))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error publishing the report: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
