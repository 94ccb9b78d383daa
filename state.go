package treasury

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"
)

// State is the durable record of all the monitored accounts.
type State struct {
	LastUpdated int64 // unix seconds of the last successful cycle
	Accounts    []Account

	// Revision identifies the stored document s was loaded from, empty when
	// there was none. Stores set it on Load and Persist, and refuse to persist
	// over a document of another revision.
	Revision string

	extra map[string]jsoniter.RawMessage
}

// RevisionOf returns the revision of a stored state document.
func RevisionOf(doc []byte) string {
	return strconv.FormatUint(xxhash.Sum64(doc), 16)
}

// Clone returns a deep enough copy of s so that mutating accounts of the copy
// leaves s untouched.
func (s *State) Clone() *State {
	c := *s
	c.Accounts = append([]Account(nil), s.Accounts...)
	return &c
}

// Find returns the index of the account with the given address, or -1.
func (s *State) Find(address string) int {
	for i, a := range s.Accounts {
		if a.Address == address {
			return i
		}
	}
	return -1
}

func (s State) MarshalJSON() ([]byte, error) {
	accounts := s.Accounts
	if accounts == nil {
		accounts = []Account{}
	}
	var w jsonObjectWriter
	w.Append("last_updated", s.LastUpdated)
	w.Append("accounts", accounts)
	w.Extra(s.extra)
	return w.MarshalJSON()
}

func (s *State) UnmarshalJSON(b []byte) error {
	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var st State
	if v, ok := raw["last_updated"]; ok {
		if err := json.Unmarshal(v, &st.LastUpdated); err != nil {
			return fmt.Errorf("field %q: %w", "last_updated", err)
		}
	}
	v, ok := raw["accounts"]
	if !ok {
		return fmt.Errorf("missing %q field", "accounts")
	}
	if err := json.Unmarshal(v, &st.Accounts); err != nil {
		return fmt.Errorf("field %q: %w", "accounts", err)
	}
	for k, v := range raw {
		if k == "last_updated" || k == "accounts" {
			continue
		}
		if st.extra == nil {
			st.extra = make(map[string]jsoniter.RawMessage)
		}
		st.extra[k] = v
	}
	*s = st
	return nil
}

// MarshalState returns the full indented JSON document of s, newline terminated.
func MarshalState(s *State) ([]byte, error) {
	compact, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	// jsoniter has no re-indenting API.
	if err := stdjson.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// UnmarshalState parses a state document. Any malformed content is reported as ErrStateCorrupt.
func UnmarshalState(b []byte) (*State, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrStateCorrupt)
	}
	s := new(State)
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}
	for i, a := range s.Accounts {
		for _, o := range s.Accounts[:i] {
			if a.Address == o.Address {
				return nil, fmt.Errorf("%w: duplicate account %q", ErrStateCorrupt, a.Address)
			}
		}
	}
	return s, nil
}

// ErrDuplicateAccount reports an account added twice.
var ErrDuplicateAccount = errors.New("duplicate account")

// Add appends a to the accounts.
func (s *State) Add(a Account) error {
	if a.Address == "" {
		return fmt.Errorf("account has no address")
	}
	if s.Find(a.Address) >= 0 {
		return fmt.Errorf("%w %q", ErrDuplicateAccount, a.Address)
	}
	s.Accounts = append(s.Accounts, a)
	return nil
}

// Remove removes the account with the given address and reports whether it was found.
func (s *State) Remove(address string) bool {
	i := s.Find(address)
	if i < 0 {
		return false
	}
	s.Accounts = append(s.Accounts[:i:i], s.Accounts[i+1:]...)
	return true
}
