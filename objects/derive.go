// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objects

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// childObjectScope separates field slots from every other hashed address.
const childObjectScope byte = 0xf0

var errWrongVersion = errors.New("wrong codec version")

// DeriveAddress computes the storage slot of the field [key] of type
// [keyType] attached to [root]:
//
//	blake2b256(0xf0 || root || u64le(len(key)) || key || tag(keyType))
//
// The key length prefix keeps (key, tag) splits unambiguous.
func DeriveAddress(root Address, keyType TypeTag, key []byte) (Address, error) {
	tagBytes, err := keyType.Bytes()
	if err != nil {
		return Address{}, fmt.Errorf("couldn't encode key type %s: %w", keyType, err)
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return Address{}, err
	}
	var keyLen [8]byte
	binary.LittleEndian.PutUint64(keyLen[:], uint64(len(key)))

	_, _ = h.Write([]byte{childObjectScope})
	_, _ = h.Write(root[:])
	_, _ = h.Write(keyLen[:])
	_, _ = h.Write(key)
	_, _ = h.Write(tagBytes)

	var out Address
	copy(out[:], h.Sum(nil))
	return out, nil
}

// DeriveFieldAddress encodes [key] with the canonical codec and derives its
// slot under [root] using the key's own type tag.
func DeriveFieldAddress(root Address, key interface{}) (Address, error) {
	keyBytes, err := Encode(key)
	if err != nil {
		return Address{}, fmt.Errorf("couldn't encode field key: %w", err)
	}
	return DeriveAddress(root, TagOf(key), keyBytes)
}
