package treasury

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func account(address, typ, name string, current float64) Account {
	q := Q(current)
	return Account{
		Address: address,
		Type:    typ,
		Symbol:  typ,
		Name:    name,
		Current: Balance{Str: DefaultFormatter.Format(q), Num: q},
		Change:  NoChange,
	}
}

func fixedPrice(p float64) PriceOracle {
	return PriceOracleFunc(func(context.Context) (Money, error) { return M(p, "USD"), nil })
}

func TestBuildReport_Totals(t *testing.T) {
	accounts := []Account{
		account("A", "SOL", "Hot wallet", 3.5),
		account("B", "USDC", "Treasury", 100),
	}
	now := time.Unix(1700000000, 0)

	r := BuildReport(context.Background(), accounts, fixedPrice(20), now, ReportOptions{})

	if !r.Summary.TotalNative.Equal(Q(3.5)) {
		t.Errorf("TotalNative = %v, want 3.5", r.Summary.TotalNative)
	}
	if !r.Summary.TotalToken.Equal(Q(100)) {
		t.Errorf("TotalToken = %v, want 100", r.Summary.TotalToken)
	}
	if want := M(170, "USD"); !r.Summary.Valuation.Equal(want) {
		t.Errorf("Valuation = %v, want %v", r.Summary.Valuation, want)
	}
	if got, want := r.Summary.Valuation.String(), "$170.00"; got != want {
		t.Errorf("Valuation.String() = %q, want %q", got, want)
	}
	if r.Summary.PriceErr != nil {
		t.Errorf("PriceErr = %v, want nil", r.Summary.PriceErr)
	}
}

func TestBuildReport_PriceUnavailable(t *testing.T) {
	accounts := []Account{
		account("A", "SOL", "Hot wallet", 3.5),
		account("B", "USDC", "Treasury", 100),
	}
	failing := PriceOracleFunc(func(context.Context) (Money, error) {
		return Money{}, ErrPriceUnavailable
	})

	r := BuildReport(context.Background(), accounts, failing, time.Now(), ReportOptions{})

	if !errors.Is(r.Summary.PriceErr, ErrPriceUnavailable) {
		t.Errorf("PriceErr = %v, want %v", r.Summary.PriceErr, ErrPriceUnavailable)
	}
	if !r.Summary.Price.IsZero() {
		t.Errorf("Price = %v, want zero", r.Summary.Price)
	}
	if want := M(100, "USD"); !r.Summary.Valuation.Equal(want) {
		t.Errorf("Valuation = %v, want %v", r.Summary.Valuation, want)
	}
	fields := r.Fields()
	if got := fields[len(fields)-2].Value; !strings.Contains(got, "unavailable") {
		t.Errorf("price field = %q, want it to show the price is unavailable", got)
	}
}

func TestReport_FieldsOrder(t *testing.T) {
	accounts := []Account{
		account("C", "USDC", "Ops", 1),
		account("A", "SOL", "Hot wallet", 2),
		account("X", "BTC", "Ignored", 1000),
		account("B", "SOL", "Cold wallet", 3),
	}
	r := BuildReport(context.Background(), accounts, fixedPrice(1), time.Unix(1700000000, 0), ReportOptions{})

	var names []string
	for _, f := range r.Fields() {
		names = append(names, f.Name)
	}
	want := []string{
		"Ops:", "Hot wallet:", "Cold wallet:",
		"Total SOL Balance:", "Total USD Value:", "Current SOL Price:", "Updated:",
	}
	if strings.Join(names, "|") != strings.Join(want, "|") {
		t.Errorf("Fields() names = %q, want %q", names, want)
	}
}

func TestBuildReport_UnknownKindIsInert(t *testing.T) {
	accounts := []Account{
		account("X", "BTC", "Unknown", 1000),
	}
	r := BuildReport(context.Background(), accounts, fixedPrice(10), time.Now(), ReportOptions{})

	if len(r.Entries) != 0 {
		t.Errorf("Entries = %v, want none", r.Entries)
	}
	if !r.Summary.TotalNative.IsZero() || !r.Summary.TotalToken.IsZero() {
		t.Errorf("totals = %v/%v, want zero", r.Summary.TotalNative, r.Summary.TotalToken)
	}
	if !r.Summary.Valuation.IsZero() {
		t.Errorf("Valuation = %v, want zero", r.Summary.Valuation)
	}
}

func TestReport_FieldValues(t *testing.T) {
	a := account("7xKX", "USDC", "Treasury", 150)
	a.Change = Change{Str: "50", Num: Q(50), Direction: Positive}
	b := account("9yZZ", "SOL", "Hot wallet", 1234.5)
	now := time.Unix(1700000000, 0)

	r := BuildReport(context.Background(), []Account{a, b}, fixedPrice(20), now, ReportOptions{})
	fields := r.Fields()

	testCases := []struct {
		name string
		got  Field
		want Field
	}{
		{
			name: "changed account",
			got:  fields[0],
			want: Field{Name: "Treasury:", Value: "USDC 150\nChange: + 50\n[solscan](https://solscan.io/account/7xKX)", Inline: true},
		},
		{
			name: "unchanged account",
			got:  fields[1],
			want: Field{Name: "Hot wallet:", Value: "SOL 1,234.5\n[solscan](https://solscan.io/account/9yZZ)", Inline: true},
		},
		{
			name: "native total",
			got:  fields[2],
			want: Field{Name: "Total SOL Balance:", Value: "◎ 1,234.5"},
		},
		{
			name: "valuation",
			got:  fields[3],
			want: Field{Name: "Total USD Value:", Value: "$24,840.00"},
		},
		{
			name: "price",
			got:  fields[4],
			want: Field{Name: "Current SOL Price:", Value: "$20.00"},
		},
		{
			name: "updated",
			got:  fields[5],
			want: Field{Name: "Updated:", Value: "<t:1700000000:R>"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %+v, want %+v", tc.got, tc.want)
			}
		})
	}
}
