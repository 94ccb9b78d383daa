package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type removeCmd struct{}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "stop watching an account" }
func (*removeCmd) Usage() string {
	return `tsy remove <address>

  Removes the account from the state.
`
}

func (*removeCmd) SetFlags(f *flag.FlagSet) {}

func (*removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one address is required.")
		return subcommands.ExitUsageError
	}
	address := f.Arg(0)

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
	if !state.Remove(address) {
		fmt.Fprintf(os.Stderr, "Error: no account %q\n", address)
		return subcommands.ExitFailure
	}
	if err := store.Persist(ctx, state); err != nil {
		printPersistError(err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Successfully removed %s\n", address)
	return subcommands.ExitSuccess
}
