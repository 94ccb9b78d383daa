package treasury

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Kind classifies an account by the way its balance is read.
type Kind int

const (
	// UnknownAsset accounts are carried in the state but otherwise ignored.
	UnknownAsset Kind = iota
	// NativeAsset accounts hold the chain native coin (SOL).
	NativeAsset
	// TokenAsset accounts are token accounts (USDC).
	TokenAsset
)

func (k Kind) String() string {
	switch k {
	case NativeAsset:
		return "native"
	case TokenAsset:
		return "token"
	default:
		return "unknown"
	}
}

// ParseKind classifies a persisted account type. Matching is case insensitive.
func ParseKind(typ string) Kind {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "sol", "native":
		return NativeAsset
	case "usdc", "token", "spl":
		return TokenAsset
	default:
		return UnknownAsset
	}
}

// Direction tells whether a balance went up, down or did not change.
type Direction int

const (
	None Direction = iota
	Positive
	Negative
)

// Sign returns "+", "-" or "" for None.
func (d Direction) Sign() string {
	switch d {
	case Positive:
		return "+"
	case Negative:
		return "-"
	default:
		return ""
	}
}

func (d Direction) String() string {
	switch d {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "none"
	}
}

// MarshalJSON writes "+", "-" or null.
func (d Direction) MarshalJSON() ([]byte, error) {
	if d == None {
		return []byte("null"), nil
	}
	return json.Marshal(d.Sign())
}

func (d *Direction) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = None
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "+":
		*d = Positive
	case "-":
		*d = Negative
	case "":
		*d = None
	default:
		return fmt.Errorf("invalid direction %q", s)
	}
	return nil
}

// Balance is an observed amount and its display string.
type Balance struct {
	Str string   `json:"str"`
	Num Quantity `json:"num"`
}

// Change is the difference between two observed balances.
// Str is the display string of the magnitude, the sign is carried by Direction.
type Change struct {
	Str       string    `json:"str"`
	Num       Quantity  `json:"num"`
	Direction Direction `json:"direction"`
}

// NoChange is the change recorded when the display string did not move.
var NoChange = Change{Str: "0", Num: Q(0), Direction: None}

// Account is a monitored on-chain account and its last observations.
type Account struct {
	Address  string
	Type     string // raw persisted type, see Kind
	Symbol   string
	Name     string
	Previous Balance
	Current  Balance
	Change   Change

	// extra holds unknown keys, so that they survive a load/persist cycle.
	extra map[string]jsoniter.RawMessage
}

// Kind returns the account kind.
func (a Account) Kind() Kind { return ParseKind(a.Type) }

var accountKeys = map[string]bool{
	"address":         true,
	"type":            true,
	"symbol":          true,
	"name":            true,
	"prevBalances":    true,
	"currentBalances": true,
	"balanceChange":   true,
}

// MarshalJSON writes the account with a stable key order, unknown keys last.
func (a Account) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("address", a.Address)
	w.Append("type", a.Type)
	w.Append("symbol", a.Symbol)
	w.Append("name", a.Name)
	w.Append("prevBalances", a.Previous)
	w.Append("currentBalances", a.Current)
	w.Append("balanceChange", a.Change)
	w.Extra(a.extra)
	return w.MarshalJSON()
}

func (a *Account) UnmarshalJSON(b []byte) error {
	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var acc Account
	fields := []struct {
		key string
		dst any
	}{
		{"address", &acc.Address},
		{"type", &acc.Type},
		{"symbol", &acc.Symbol},
		{"name", &acc.Name},
		{"prevBalances", &acc.Previous},
		{"currentBalances", &acc.Current},
		{"balanceChange", &acc.Change},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return fmt.Errorf("account field %q: %w", f.key, err)
		}
	}
	if acc.Address == "" {
		return fmt.Errorf("account has no address")
	}
	for k, v := range raw {
		if accountKeys[k] {
			continue
		}
		if acc.extra == nil {
			acc.extra = make(map[string]jsoniter.RawMessage)
		}
		acc.extra[k] = v
	}
	*a = acc
	return nil
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string]jsoniter.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
