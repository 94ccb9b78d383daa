package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/solana"
	"github.com/google/subcommands"
)

type addCmd struct {
	typ    string
	name   string
	symbol string
	seed   bool
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add an account to watch" }
func (*addCmd) Usage() string {
	return `tsy add -name <label> [-type SOL|USDC] [-symbol <symbol>] [-seed] <address>

  Adds an account to the state, creating the state if it does not exist yet.
  - type: SOL for a wallet, USDC for a token account.
  - seed: read the balance now, so that the first cycle reports no change.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.typ, "type", "SOL", "Account type: SOL or USDC")
	f.StringVar(&c.name, "name", "", "Label of the account (required)")
	f.StringVar(&c.symbol, "symbol", "", "Symbol displayed before the balance, defaults to the type")
	f.BoolVar(&c.seed, "seed", false, "Read the current balance as the starting point")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one address is required.")
		return subcommands.ExitUsageError
	}
	address := f.Arg(0)
	if err := solana.ValidateAddress(address); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.name == "" {
		fmt.Fprintln(os.Stderr, "Error: -name is required.")
		return subcommands.ExitUsageError
	}
	typ := strings.ToUpper(c.typ)
	if treasury.ParseKind(typ) == treasury.UnknownAsset {
		fmt.Fprintf(os.Stderr, "Error: unsupported account type %q, want SOL or USDC\n", c.typ)
		return subcommands.ExitUsageError
	}
	symbol := c.symbol
	if symbol == "" {
		symbol = typ
	}

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
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning, state does not exist, creating an empty state instead")
		state, err = &treasury.State{}, nil
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading state: %v\n", err)
		return subcommands.ExitFailure
	}

	acc := treasury.Account{
		Address: address,
		Type:    typ,
		Symbol:  symbol,
		Name:    c.name,
		Change:  treasury.NoChange,
	}
	if c.seed {
		reader, err := newReader(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error configuring the reader: %v\n", err)
			return subcommands.ExitUsageError
		}
		opts, err := reportOptions(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing locale: %v\n", err)
			return subcommands.ExitUsageError
		}
		q, err := reader.Query(ctx, acc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading the balance: %v\n", err)
			return subcommands.ExitFailure
		}
		b := treasury.Balance{Str: opts.Formatter.Format(q), Num: q}
		acc.Previous, acc.Current = b, b
	}

	if err := state.Add(acc); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := store.Persist(ctx, state); err != nil {
		printPersistError(err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Successfully added %s %q (%s)\n", typ, c.name, address)
	return subcommands.ExitSuccess
}
