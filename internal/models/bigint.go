package models

import (
	"fmt"
	"math/big"
	"strconv"
)

// BigInt is an arbitrary-precision integer that serializes to JSON as a
// decimal string. Product identifiers, prices and totals use it end to end:
// the backend hands out values wider than the float64-safe integer range,
// so they must survive storage and wire round-trips without truncation.
type BigInt struct {
	big.Int
}

// NewBigInt returns a BigInt holding v.
func NewBigInt(v int64) BigInt {
	var b BigInt
	b.SetInt64(v)
	return b
}

// ParseBigInt parses a decimal string into a BigInt.
func ParseBigInt(s string) (BigInt, error) {
	var b BigInt
	if _, ok := b.SetString(s, 10); !ok {
		return BigInt{}, fmt.Errorf("invalid integer value: %q", s)
	}
	return b, nil
}

// Equal reports whether b and o hold the same value.
func (b BigInt) Equal(o BigInt) bool {
	return b.Cmp(&o.Int) == 0
}

// MarshalJSON encodes the value as a quoted decimal string.
func (b BigInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(b.Int.String())), nil
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("invalid integer literal %s: %w", s, err)
		}
		s = unquoted
	}
	if _, ok := b.Int.SetString(s, 10); !ok {
		return fmt.Errorf("invalid integer value: %q", s)
	}
	return nil
}
