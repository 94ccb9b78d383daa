package api

import "github.com/etnz/treasury"

// reportView is the JSON form of a treasury.Report.
type reportView struct {
	Title   string      `json:"title"`
	Entries []entryView `json:"entries"`
	Summary summaryView `json:"summary"`
}

type entryView struct {
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	Change    string `json:"change,omitempty"`
	Direction string `json:"direction,omitempty"`
	Link      string `json:"link"`
}

type summaryView struct {
	TotalNative      treasury.Quantity `json:"total_native"`
	TotalToken       treasury.Quantity `json:"total_token"`
	Price            treasury.Money    `json:"price"`
	PriceUnavailable bool              `json:"price_unavailable,omitempty"`
	Valuation        treasury.Money    `json:"valuation"`
	Display          map[string]string `json:"display"`
	Updated          int64             `json:"updated"`
}

func newReportView(r *treasury.Report) reportView {
	v := reportView{Title: r.Title, Entries: make([]entryView, 0, len(r.Entries))}
	for _, e := range r.Entries {
		v.Entries = append(v.Entries, entryView{
			Name:      e.Name,
			Symbol:    e.Symbol,
			Address:   e.Address,
			Balance:   e.Balance,
			Change:    e.Change,
			Direction: e.Direction.Sign(),
			Link:      e.Link,
		})
	}
	s := r.Summary
	display := make(map[string]string)
	for _, f := range r.Fields()[len(r.Entries):] {
		display[f.Name] = f.Value
	}
	v.Summary = summaryView{
		TotalNative:      s.TotalNative,
		TotalToken:       s.TotalToken,
		Price:            s.Price,
		PriceUnavailable: s.PriceErr != nil,
		Valuation:        s.Valuation,
		Display:          display,
		Updated:          s.UpdatedAt.Unix(),
	}
	return v
}
