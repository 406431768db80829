// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dynamicfield

import (
	"errors"
	"fmt"

	"github.com/ava-labs/settlevm/objects"
)

var ErrBagNotEmpty = errors.New("bag is not empty")

// Bag is a heterogeneous collection whose entries are fields on the bag's own
// id. The bag itself only tracks its id and entry count, so it can be stored
// inline inside another value.
type Bag struct {
	ID   objects.Address `serialize:"true" json:"id"`
	Size uint64          `serialize:"true" json:"size"`
}

// TypeTag implements objects.Typed.
func (Bag) TypeTag() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, "bag", "Bag")
}

// NewBag returns an empty bag with a fresh id.
func NewBag(ctx *objects.TxContext) Bag {
	return Bag{ID: ctx.FreshID()}
}

// Len returns the number of entries.
func (b Bag) Len() uint64 { return b.Size }

// IsEmpty reports whether the bag has no entries.
func (b Bag) IsEmpty() bool { return b.Size == 0 }

// DestroyEmpty fails unless the bag has no entries left.
func (b Bag) DestroyEmpty() error {
	if !b.IsEmpty() {
		return fmt.Errorf("%w: %s holds %d entries", ErrBagNotEmpty, b.ID, b.Size)
	}
	return nil
}

// BagAdd inserts [value] under [key].
func BagAdd[K, V any](s *Store, b *Bag, key K, value V) error {
	if err := Add(s, b.ID, key, value); err != nil {
		return err
	}
	b.Size++
	return nil
}

// BagBorrow returns the V stored under [key].
func BagBorrow[K, V any](s *Store, b Bag, key K) (V, error) {
	return Borrow[K, V](s, b.ID, key)
}

// BagBorrowMut mutates the V stored under [key] in place.
func BagBorrowMut[K, V any](s *Store, b Bag, key K, mutate func(*V) error) error {
	return BorrowMut(s, b.ID, key, mutate)
}

// BagRemove removes and returns the V stored under [key].
func BagRemove[K, V any](s *Store, b *Bag, key K) (V, error) {
	v, err := Remove[K, V](s, b.ID, key)
	if err != nil {
		return v, err
	}
	b.Size--
	return v, nil
}

// BagContains reports whether any value is stored under [key].
func BagContains[K any](s *Store, b Bag, key K) (bool, error) {
	return Exists(s, b.ID, key)
}

// BagContainsWithType reports whether a V is stored under [key].
func BagContainsWithType[K, V any](s *Store, b Bag, key K) (bool, error) {
	return ExistsWithType[K, V](s, b.ID, key)
}
