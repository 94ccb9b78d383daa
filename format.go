package treasury

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// displayDigits is the maximum number of fraction digits of a display string.
const displayDigits = 3

// Formatter renders quantities as locale grouped numerals, like "1,234.568".
//
// Digits come from the exact decimal, so the display string is exact at any
// magnitude. The locale only provides the separators, digits are grouped by
// three.
type Formatter struct {
	group   string
	decimal string
}

// DefaultFormatter formats with en-US conventions.
var DefaultFormatter = NewFormatter(language.AmericanEnglish)

// NewFormatter returns a Formatter for the given locale.
func NewFormatter(tag language.Tag) *Formatter {
	// the locale printer renders it "1,234,567.5", "1 234 567,5", "1.234.567,5"...
	sample := message.NewPrinter(tag).Sprint(number.Decimal(1234567.5))
	i := strings.Index(sample, "234")
	k := strings.Index(sample, "567")
	j := strings.LastIndex(sample, "5")
	if !strings.HasPrefix(sample, "1") || i < 1 || k < i+3 || j < k+3 {
		return &Formatter{group: ",", decimal: "."}
	}
	return &Formatter{group: sample[1:i], decimal: sample[k+3 : j]}
}

// ParseFormatter returns a Formatter for a BCP 47 locale name like "en-US" or "fr".
func ParseFormatter(locale string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, err
	}
	return NewFormatter(tag), nil
}

// Format returns the display string of q, rounded half away from zero to
// three fraction digits.
func (f *Formatter) Format(q Quantity) string {
	r := q.value.Round(displayDigits)
	if r.IsZero() {
		return "0"
	}
	// String drops trailing zeros
	intPart, frac, _ := strings.Cut(r.Abs().String(), ".")

	var b strings.Builder
	if r.IsNegative() {
		b.WriteByte('-')
	}
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(f.group)
		}
		b.WriteRune(d)
	}
	if frac != "" {
		b.WriteString(f.decimal)
		b.WriteString(frac)
	}
	return b.String()
}
