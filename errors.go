package treasury

import (
	"errors"
	"fmt"
)

var (
	// ErrStateCorrupt reports a durable state that cannot be decoded.
	ErrStateCorrupt = errors.New("state corrupt")
	// ErrStateWrite reports a failure to persist the state.
	ErrStateWrite = errors.New("state write failed")
	// ErrStateChanged reports a state persisted over a document written by
	// someone else since it was loaded. It comes wrapped in ErrStateWrite.
	ErrStateChanged = errors.New("state changed since it was loaded")
	// ErrBalanceQuery reports a failure to read an account balance.
	ErrBalanceQuery = errors.New("balance query failed")
	// ErrPriceUnavailable reports a missing price. It never aborts a cycle.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrPublish reports a failure to deliver a report.
	ErrPublish = errors.New("publish failed")
)

// BalanceQueryError is the error returned by a BalanceReader.
type BalanceQueryError struct {
	Address string
	Err     error
}

func (e *BalanceQueryError) Error() string {
	return fmt.Sprintf("%v for %s: %v", ErrBalanceQuery, e.Address, e.Err)
}

func (e *BalanceQueryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrBalanceQuery) true.
func (e *BalanceQueryError) Is(target error) bool { return target == ErrBalanceQuery }

// NewBalanceQueryError wraps err unless it is already a BalanceQueryError.
func NewBalanceQueryError(address string, err error) error {
	var q *BalanceQueryError
	if errors.As(err, &q) {
		return err
	}
	return &BalanceQueryError{Address: address, Err: err}
}
