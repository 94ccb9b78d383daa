// Package treasury watches the balances of a set of Solana accounts and
// reports them.
//
// A Watcher runs cycles. Each cycle:
//   - loads the State from a StateStore,
//   - reads the balance of every account through a BalanceReader,
//   - records what changed (see Observe),
//   - persists the whole State,
//   - builds a Report valued with a PriceOracle,
//   - hands it to a Publisher.
//
// Balances are compared on their display strings, so that a change below the
// display precision is not reported. Amounts are exact decimals.
//
// A Scheduler runs the cycles on a fixed interval, one at a time.
//
// This package serves as the foundational logic for the `tsy` command-line
// tool. The chain, price and notification adapters live in the solana,
// coingecko and discord packages.
package treasury
