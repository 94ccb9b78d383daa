package renderer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/etnz/treasury"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

func testReport(t *testing.T, changed bool) *treasury.Report {
	t.Helper()
	usdc := treasury.Account{
		Address: "7xKX",
		Type:    "USDC",
		Symbol:  "USDC",
		Name:    "Treasury",
		Current: treasury.Balance{Str: "150", Num: treasury.Q(150)},
		Change:  treasury.NoChange,
	}
	if changed {
		usdc.Change = treasury.Change{Str: "50", Num: treasury.Q(50), Direction: treasury.Positive}
	}
	sol := treasury.Account{
		Address: "9yZZ",
		Type:    "SOL",
		Symbol:  "SOL",
		Name:    "Hot wallet",
		Current: treasury.Balance{Str: "2", Num: treasury.Q(2)},
		Change:  treasury.NoChange,
	}
	price := treasury.PriceOracleFunc(func(context.Context) (treasury.Money, error) {
		return treasury.M(20, "USD"), nil
	})
	return treasury.BuildReport(context.Background(), []treasury.Account{usdc, sol}, price, time.Unix(1700000000, 0), treasury.ReportOptions{})
}

// parse returns the headings and link destinations of a markdown document.
func parse(src string) (headings, links []string) {
	content := []byte(src)
	root := goldmark.DefaultParser().Parse(text.NewReader(content))
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			var b strings.Builder
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					b.Write(t.Segment.Value(content))
				}
			}
			headings = append(headings, b.String())
		case *ast.Link:
			links = append(links, string(n.Destination))
		}
		return ast.WalkContinue, nil
	})
	return headings, links
}

func TestReportMarkdown(t *testing.T) {
	out := ReportMarkdown(testReport(t, true))

	headings, links := parse(out)
	if got, want := strings.Join(headings, "|"), "Funds|Summary|Changes"; got != want {
		t.Errorf("headings = %q, want %q\n%s", got, want, out)
	}
	if got, want := strings.Join(links, "|"), "https://solscan.io/account/7xKX|https://solscan.io/account/9yZZ"; got != want {
		t.Errorf("links = %q, want %q", got, want)
	}
	for _, want := range []string{"USDC 150", "+ 50", "$190.00", "◎ 2", "$20.00", "Treasury: + 50 USDC"} {
		if !strings.Contains(out, want) {
			t.Errorf("ReportMarkdown() lacks %q:\n%s", want, out)
		}
	}
}

func TestReportMarkdown_NoChanges(t *testing.T) {
	out := ReportMarkdown(testReport(t, false))
	headings, _ := parse(out)
	if got, want := strings.Join(headings, "|"), "Funds|Summary"; got != want {
		t.Errorf("headings = %q, want %q\n%s", got, want, out)
	}
}

func TestReportMarkdown_PriceUnavailable(t *testing.T) {
	r := testReport(t, false)
	r.Summary.PriceErr = treasury.ErrPriceUnavailable
	if out := ReportMarkdown(r); !strings.Contains(out, "unavailable") {
		t.Errorf("ReportMarkdown() does not tell the price is unavailable:\n%s", out)
	}
}
