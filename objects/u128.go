// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objects

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrU128Overflow  = errors.New("u128 overflow")
	ErrU128Underflow = errors.New("u128 underflow")

	errU128Parse = errors.New("invalid u128")

	// MaxU128 is 2^128 - 1.
	MaxU128 = U128{Hi: ^uint64(0), Lo: ^uint64(0)}
)

// U128 is an unsigned 128-bit integer stored as two 64-bit words.
type U128 struct {
	Hi uint64 `serialize:"true"`
	Lo uint64 `serialize:"true"`
}

// NewU128 returns v as a U128.
func NewU128(v uint64) U128 { return U128{Lo: v} }

func (u U128) uint256() *uint256.Int {
	return &uint256.Int{u.Lo, u.Hi, 0, 0}
}

func fromUint256(z *uint256.Int) (U128, error) {
	if z.BitLen() > 128 {
		return U128{}, ErrU128Overflow
	}
	return U128{Hi: z[1], Lo: z[0]}, nil
}

// IsZero reports whether u == 0.
func (u U128) IsZero() bool { return u.Hi == 0 && u.Lo == 0 }

// Cmp returns -1, 0 or 1.
func (u U128) Cmp(o U128) int { return u.uint256().Cmp(o.uint256()) }

// Add returns u + o, failing instead of wrapping past 2^128 - 1.
func (u U128) Add(o U128) (U128, error) {
	return fromUint256(new(uint256.Int).Add(u.uint256(), o.uint256()))
}

// Sub returns u - o, failing instead of wrapping below zero.
func (u U128) Sub(o U128) (U128, error) {
	z, underflow := new(uint256.Int).SubOverflow(u.uint256(), o.uint256())
	if underflow {
		return U128{}, ErrU128Underflow
	}
	return fromUint256(z)
}

// Big returns u as a big.Int.
func (u U128) Big() *big.Int { return u.uint256().ToBig() }

// String returns the decimal form.
func (u U128) String() string { return u.uint256().Dec() }

// MarshalText implements encoding.TextMarshaler. Values travel as decimal
// strings because JSON numbers can't hold 128 bits.
func (u U128) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *U128) UnmarshalText(text []byte) error {
	parsed, err := ParseU128(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// ParseU128 parses a decimal string.
func ParseU128(s string) (U128, error) {
	z, err := uint256.FromDecimal(s)
	if err != nil {
		return U128{}, fmt.Errorf("%w %q: %s", errU128Parse, s, err)
	}
	return fromUint256(z)
}
