package treasury

import "context"

// BalanceReader returns the current balance of an account, in display units.
// It is polymorphic over Account.Kind. Errors match ErrBalanceQuery.
type BalanceReader interface {
	Query(ctx context.Context, a Account) (Quantity, error)
}

// PriceOracle returns the fiat price of one unit of the reference asset.
// A missing price is an error matching ErrPriceUnavailable.
type PriceOracle interface {
	Price(ctx context.Context) (Money, error)
}

// Publisher delivers a report, by editing a single live message.
type Publisher interface {
	Publish(ctx context.Context, r *Report) error
}

// Announcer performs the one-time presence side effects at startup.
type Announcer interface {
	Announce(ctx context.Context) error
}

// BalanceReaderFunc adapts a function to a BalanceReader.
type BalanceReaderFunc func(ctx context.Context, a Account) (Quantity, error)

func (f BalanceReaderFunc) Query(ctx context.Context, a Account) (Quantity, error) { return f(ctx, a) }

// PriceOracleFunc adapts a function to a PriceOracle.
type PriceOracleFunc func(ctx context.Context) (Money, error)

func (f PriceOracleFunc) Price(ctx context.Context) (Money, error) { return f(ctx) }

// PublisherFunc adapts a function to a Publisher.
type PublisherFunc func(ctx context.Context, r *Report) error

func (f PublisherFunc) Publish(ctx context.Context, r *Report) error { return f(ctx, r) }
