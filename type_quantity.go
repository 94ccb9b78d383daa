package treasury

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// Quantity is an exact amount of an asset, expressed in its display unit.
type Quantity struct {
	value decimal.Decimal
}

func Q[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

// FromUnits converts an amount of smallest chain units into a Quantity, by
// shifting it by decimals (e.g 9 for lamports to SOL).
func FromUnits(units uint64, decimals uint8) Quantity {
	return Quantity{value: decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals))}
}

func (q Quantity) Equal(p Quantity) bool    { return q.value.Equal(p.value) }
func (q Quantity) Add(p Quantity) Quantity  { return Quantity{value: q.value.Add(p.value)} }
func (q Quantity) Sub(p Quantity) Quantity  { return Quantity{value: q.value.Sub(p.value)} }
func (q Quantity) Abs() Quantity            { return Quantity{value: q.value.Abs()} }
func (q Quantity) IsPositive() bool         { return q.value.IsPositive() }
func (q Quantity) IsZero() bool             { return q.value.IsZero() }
func (q Quantity) String() string           { return q.value.String() }
func (q Quantity) Decimal() decimal.Decimal { return q.value }

// Deprecated: AsFloat is only meant for metrics, computations must stay exact.
func (q Quantity) AsFloat() float64 { return q.value.InexactFloat64() }

// MarshalJSON writes the quantity as a plain JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.value.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimals. null is zero.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		q.value = decimal.Zero
		return nil
	}
	return q.value.UnmarshalJSON(b)
}
