// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objects

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ava-labs/avalanchego/ids"
)

// AddressLen is the byte length of an on-chain address.
const AddressLen = 32

var (
	errAddressLength = errors.New("address must be at most 32 bytes")

	// ZeroAddress is the reserved system sender.
	ZeroAddress Address
)

// Address identifies an object or an account. Object ids and addresses share
// the same space, so a derived field slot is also a valid address.
type Address [AddressLen]byte

// AddressFromID converts an avalanche id into an address.
func AddressFromID(id ids.ID) Address { return Address(id) }

// ID returns the address as an avalanche id.
func (a Address) ID() ids.ID { return ids.ID(a) }

// IsZero reports whether this is the zero address.
func (a Address) IsZero() bool { return a == ZeroAddress }

// Bytes returns a copy of the raw address.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLen)
	copy(b, a[:])
	return b
}

// String returns the 0x-prefixed, zero padded hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ShortString trims leading zeros, so 0x0000...0acc renders as 0xacc.
func (a Address) ShortString() string {
	s := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a hex address with an optional 0x prefix. Short forms
// are left padded with zeros, so "0x2" is the framework address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) > AddressLen {
		return Address{}, errAddressLength
	}
	var a Address
	copy(a[AddressLen-len(raw):], raw)
	return a, nil
}

// MustParseAddress is ParseAddress for constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}
