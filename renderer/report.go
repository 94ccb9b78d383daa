package renderer

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/etnz/treasury"
	md "github.com/nao1215/markdown"
)

// ReportMarkdown renders a report for the terminal.
func ReportMarkdown(r *treasury.Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(r.Title)

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
		},
		Header: []string{"Account", "Balance", "Change", "Explorer"},
	}
	for _, e := range r.Entries {
		table.Rows = append(table.Rows, []string{
			e.Name,
			e.Symbol + " " + e.Balance,
			signed(e),
			md.Link(r.ExplorerName, e.Link),
		})
	}
	doc.Table(table)

	s := r.Summary
	price := s.Price.String()
	if s.PriceErr != nil {
		price = "unavailable"
	}
	doc.H2("Summary")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold(fmt.Sprintf("Total %s Value", s.Valuation.Currency())), md.Bold(s.Valuation.String())},
		Rows: [][]string{
			{fmt.Sprintf("Total %s Balance", s.NativeSymbol), s.NativeSign + " " + s.TotalNativeString()},
			{fmt.Sprintf("Current %s Price", s.NativeSymbol), price},
			{"Updated", s.UpdatedAt.UTC().Format(time.RFC1123)},
		},
	})

	out := doc.String()

	// the changes section is printed only when a balance moved
	var changes bytes.Buffer
	ConditionalBlock(&changes, func(w io.Writer) bool {
		var lines []string
		for _, e := range r.Entries {
			if e.Direction == treasury.None {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s %s", e.Name, signed(e), e.Symbol))
		}
		if len(lines) == 0 {
			return false
		}
		sub := md.NewMarkdown(w)
		sub.H2("Changes")
		sub.BulletList(lines...)
		return sub.Build() == nil
	})
	return out + changes.String()
}

// signed returns the change of e with its sign, or "" when it did not move.
func signed(e treasury.Entry) string {
	if e.Direction == treasury.None {
		return ""
	}
	return e.Direction.Sign() + " " + e.Change
}
