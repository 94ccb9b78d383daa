package treasury

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ReportOptions configures BuildReport.
type ReportOptions struct {
	Title        string     // defaults to "Funds"
	NativeSymbol string     // symbol of the native asset, defaults to "SOL"
	NativeSign   string     // prefix of the native total, defaults to "◎"
	Currency     string     // fiat currency used when no price is available, defaults to "USD"
	ExplorerName string     // link label, defaults to "solscan"
	ExplorerURL  string     // account link format with one %s for the address
	Formatter    *Formatter // defaults to DefaultFormatter
}

// DefaultExplorerURL links accounts to solscan.
const DefaultExplorerURL = "https://solscan.io/account/%s"

func (o ReportOptions) withDefaults() ReportOptions {
	if o.Title == "" {
		o.Title = "Funds"
	}
	if o.NativeSymbol == "" {
		o.NativeSymbol = "SOL"
	}
	if o.NativeSign == "" {
		o.NativeSign = "◎"
	}
	if o.Currency == "" {
		o.Currency = "USD"
	}
	if o.ExplorerName == "" {
		o.ExplorerName = "solscan"
	}
	if o.ExplorerURL == "" {
		o.ExplorerURL = DefaultExplorerURL
	}
	if o.Formatter == nil {
		o.Formatter = DefaultFormatter
	}
	return o
}

// Entry is the display of a single account.
type Entry struct {
	Name      string
	Symbol    string
	Address   string
	Balance   string
	Change    string    // empty when Direction is None
	Direction Direction // None when the display balance did not move
	Link      string
}

// Summary holds the totals of a report.
type Summary struct {
	NativeSymbol string
	NativeSign   string
	TotalNative  Quantity
	TotalToken   Quantity
	Price        Money
	PriceErr     error // set when the oracle failed; Price is then zero
	Valuation    Money // TotalNative * Price + TotalToken
	UpdatedAt    time.Time

	totalNativeStr string
}

// TotalNativeString returns the display string of the native total.
func (s Summary) TotalNativeString() string { return s.totalNativeStr }

// Report is the consolidated view of all the monitored accounts.
type Report struct {
	Title        string
	ExplorerName string
	Entries      []Entry
	Summary      Summary
}

// BuildReport aggregates accounts into a Report.
//
// Accounts of unknown kind are skipped. The oracle is queried once; on
// failure the report is still built with a zero price, and the error is kept
// in Summary.PriceErr.
func BuildReport(ctx context.Context, accounts []Account, oracle PriceOracle, now time.Time, opts ReportOptions) *Report {
	opts = opts.withDefaults()
	f := opts.Formatter

	r := &Report{
		Title:        opts.Title,
		ExplorerName: opts.ExplorerName,
		Entries:      make([]Entry, 0, len(accounts)),
	}
	totalNative, totalToken := Q(0), Q(0)
	for _, a := range accounts {
		switch a.Kind() {
		case NativeAsset:
			totalNative = totalNative.Add(a.Current.Num)
		case TokenAsset:
			totalToken = totalToken.Add(a.Current.Num)
		default:
			continue
		}
		e := Entry{
			Name:      a.Name,
			Symbol:    a.Symbol,
			Address:   a.Address,
			Balance:   a.Current.Str,
			Direction: a.Change.Direction,
			Link:      fmt.Sprintf(opts.ExplorerURL, a.Address),
		}
		if e.Direction != None {
			e.Change = a.Change.Str
		}
		r.Entries = append(r.Entries, e)
	}

	price, err := oracle.Price(ctx)
	if err != nil {
		price = M(0, opts.Currency)
	}

	r.Summary = Summary{
		NativeSymbol:   opts.NativeSymbol,
		NativeSign:     opts.NativeSign,
		TotalNative:    totalNative,
		TotalToken:     totalToken,
		Price:          price,
		PriceErr:       err,
		Valuation:      price.Mul(totalNative).AddQuantity(totalToken),
		UpdatedAt:      now,
		totalNativeStr: f.Format(totalNative),
	}
	return r
}

// Field is a named value of a report, as displayed by a publisher.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Fields returns the report as an ordered list of fields: one per entry, in
// the order of the accounts, then the total native balance, the fiat
// valuation, the price and the update time.
func (r *Report) Fields() []Field {
	fields := make([]Field, 0, len(r.Entries)+4)
	for _, e := range r.Entries {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s\n", e.Symbol, e.Balance)
		if e.Direction != None {
			fmt.Fprintf(&b, "Change: %s %s\n", e.Direction.Sign(), e.Change)
		}
		fmt.Fprintf(&b, "[%s](%s)", r.ExplorerName, e.Link)
		fields = append(fields, Field{Name: e.Name + ":", Value: b.String(), Inline: true})
	}

	s := r.Summary
	price := s.Price.String()
	if s.PriceErr != nil {
		price += " (unavailable)"
	}
	fields = append(fields,
		Field{Name: fmt.Sprintf("Total %s Balance:", s.NativeSymbol), Value: s.NativeSign + " " + s.totalNativeStr},
		Field{Name: fmt.Sprintf("Total %s Value:", s.Valuation.Currency()), Value: s.Valuation.String()},
		Field{Name: fmt.Sprintf("Current %s Price:", s.NativeSymbol), Value: price},
		Field{Name: "Updated:", Value: fmt.Sprintf("<t:%d:R>", s.UpdatedAt.Unix())},
	)
	return fields
}
