// Package solana reads account balances from a Solana JSON-RPC node.
package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/etnz/treasury"
	"github.com/mr-tron/base58"
)

// DefaultEndpoint is the public mainnet RPC endpoint.
const DefaultEndpoint = "https://api.mainnet-beta.solana.com"

// NativeDecimals is the number of decimals of SOL (lamports per SOL is 1e9).
const NativeDecimals = 9

// ErrInvalidAddress reports an address that is not a base58 encoded 32 bytes key.
var ErrInvalidAddress = errors.New("invalid address")

// RPC is the subset of the RPC client used by Reader.
type RPC interface {
	GetBalanceWithConfig(ctx context.Context, base58Addr string, cfg client.GetBalanceConfig) (uint64, error)
	GetTokenAccountBalanceWithConfig(ctx context.Context, base58Addr string, cfg client.GetTokenAccountBalanceConfig) (client.TokenAmount, error)
}

// Reader is a treasury.BalanceReader.
//
// Native accounts are read with getBalance, token accounts with
// getTokenAccountBalance. Both are converted exactly to display units.
type Reader struct {
	rpc        RPC
	commitment rpc.Commitment
	decimals   uint8
}

// Option configures a Reader.
type Option func(*Reader)

// WithCommitment sets the commitment of the queries, confirmed by default.
func WithCommitment(c rpc.Commitment) Option { return func(r *Reader) { r.commitment = c } }

// WithNativeDecimals overrides the decimals of the native coin.
func WithNativeDecimals(d uint8) Option { return func(r *Reader) { r.decimals = d } }

// NewReader returns a Reader on the given RPC endpoint.
func NewReader(endpoint string, opts ...Option) *Reader {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return NewReaderWithClient(client.NewClient(endpoint), opts...)
}

// NewReaderWithClient returns a Reader on an existing client.
func NewReaderWithClient(c RPC, opts ...Option) *Reader {
	r := &Reader{rpc: c, commitment: rpc.CommitmentConfirmed, decimals: NativeDecimals}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseCommitment parses "processed", "confirmed" or "finalized".
func ParseCommitment(s string) (rpc.Commitment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	}
	return "", fmt.Errorf("unknown commitment %q", s)
}

// ValidateAddress checks that address is a base58 encoded 32 bytes public key.
func ValidateAddress(address string) error {
	b, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
	}
	if len(b) != 32 {
		return fmt.Errorf("%w %q: %d bytes, want 32", ErrInvalidAddress, address, len(b))
	}
	return nil
}

// Query returns the balance of a in display units.
func (r *Reader) Query(ctx context.Context, a treasury.Account) (treasury.Quantity, error) {
	q, err := r.query(ctx, a)
	if err != nil {
		return treasury.Quantity{}, treasury.NewBalanceQueryError(a.Address, err)
	}
	return q, nil
}

func (r *Reader) query(ctx context.Context, a treasury.Account) (treasury.Quantity, error) {
	if err := ValidateAddress(a.Address); err != nil {
		return treasury.Quantity{}, err
	}
	switch a.Kind() {
	case treasury.NativeAsset:
		lamports, err := r.rpc.GetBalanceWithConfig(ctx, a.Address, client.GetBalanceConfig{Commitment: r.commitment})
		if err != nil {
			return treasury.Quantity{}, err
		}
		return treasury.FromUnits(lamports, r.decimals), nil
	case treasury.TokenAsset:
		amount, err := r.rpc.GetTokenAccountBalanceWithConfig(ctx, a.Address, client.GetTokenAccountBalanceConfig{Commitment: r.commitment})
		if err != nil {
			return treasury.Quantity{}, err
		}
		return treasury.FromUnits(amount.Amount, amount.Decimals), nil
	default:
		return treasury.Quantity{}, fmt.Errorf("unsupported account type %q", a.Type)
	}
}
