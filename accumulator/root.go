// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package accumulator

import (
	"errors"
	"fmt"

	"github.com/ava-labs/settlevm/dynamicfield"
	"github.com/ava-labs/settlevm/objects"
)

const (
	moduleName = "accumulator"
)

var (
	// RootAddress is the well-known id of the accumulator root.
	RootAddress = objects.MustParseAddress("0xacc")

	ErrNotSystemAddress   = errors.New("sender is not the system address")
	ErrUnauthorized       = errors.New("system capability required")
	ErrRootExists         = errors.New("accumulator root already exists")
	ErrRootNotFound       = errors.New("accumulator root not found")
	ErrInvariantViolation = errors.New("accumulator invariant violation")
)

// SystemCap authorizes settlement. Only Create and Open hand one out.
type SystemCap struct {
	// Non-empty so that caps compare by identity.
	root objects.Address
}

// Root is the singleton that every accumulator hangs off of as a field.
type Root struct {
	ID objects.Address

	store *dynamicfield.Store
	cap   *SystemCap
}

// RootType is the type tag the root object is registered with.
func RootType() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, moduleName, "AccumulatorRoot")
}

// Create registers the accumulator root. It runs once, at genesis, as the
// system sender.
func Create(store *dynamicfield.Store, ctx *objects.TxContext) (*Root, *SystemCap, error) {
	if ctx.Sender() != objects.SystemAddress {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotSystemAddress, ctx.Sender())
	}
	if err := store.NewObject(RootAddress, RootType()); err != nil {
		if errors.Is(err, dynamicfield.ErrObjectExists) {
			return nil, nil, ErrRootExists
		}
		return nil, nil, err
	}
	return newRoot(store)
}

// Open loads the root registered by a previous Create, for a node restarting
// on an initialized database.
func Open(store *dynamicfield.Store) (*Root, *SystemCap, error) {
	typ, err := store.ObjectType(RootAddress)
	if errors.Is(err, dynamicfield.ErrObjectNotFound) {
		return nil, nil, ErrRootNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if !typ.Equal(RootType()) {
		return nil, nil, fmt.Errorf("%w: %s is a %s", ErrInvariantViolation, RootAddress, typ)
	}
	return newRoot(store)
}

func newRoot(store *dynamicfield.Store) (*Root, *SystemCap, error) {
	sysCap := &SystemCap{root: RootAddress}
	return &Root{
		ID:    RootAddress,
		store: store,
		cap:   sysCap,
	}, sysCap, nil
}

// Store returns the field store the root reads and writes.
func (r *Root) Store() *dynamicfield.Store { return r.store }

// U128 is the value stored for every accumulator.
type U128 struct {
	Value objects.U128 `serialize:"true" json:"value"`
}

// TypeTag implements objects.Typed.
func (U128) TypeTag() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, moduleName, "U128")
}

// Key names the accumulator of type T for one owner. T is carried in the
// type tag only, so two types never share a slot for the same owner.
type Key struct {
	Owner objects.Address `serialize:"true"`

	typ objects.TypeTag
}

// AccumulatorKey returns the key of the T accumulator of [owner].
func AccumulatorKey(t objects.TypeTag, owner objects.Address) Key {
	return Key{Owner: owner, typ: t}
}

// TypeTag implements objects.Typed.
func (k Key) TypeTag() objects.TypeTag {
	return KeyType(k.typ)
}

// KeyType returns the tag of Key<T>.
func KeyType(t objects.TypeTag) objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, moduleName, "Key", t)
}

// BalanceType returns the tag of Balance<coin>, the accumulator type used for
// coin balances.
func BalanceType(coin objects.TypeTag) objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, "balance", "Balance", coin)
}

// AccumulatorAddress returns the field address of the T accumulator of [owner].
func AccumulatorAddress(t objects.TypeTag, owner objects.Address) (objects.Address, error) {
	return dynamicfield.FieldAddress(RootAddress, AccumulatorKey(t, owner))
}

// HasAccumulator reports whether a T accumulator exists for [owner].
func (r *Root) HasAccumulator(t objects.TypeTag, owner objects.Address) (bool, error) {
	return dynamicfield.ExistsWithType[Key, U128](r.store, r.ID, AccumulatorKey(t, owner))
}

// AddAccumulator attaches a new T accumulator holding [value].
func (r *Root) AddAccumulator(t objects.TypeTag, owner objects.Address, value objects.U128) error {
	err := dynamicfield.Add(r.store, r.ID, AccumulatorKey(t, owner), U128{Value: value})
	if errors.Is(err, dynamicfield.ErrFieldAlreadyExists) {
		return fmt.Errorf("%w: %s accumulator of %s: %s", ErrInvariantViolation, t, owner, err)
	}
	return err
}

// BorrowAccumulator returns the current value of the T accumulator.
func (r *Root) BorrowAccumulator(t objects.TypeTag, owner objects.Address) (objects.U128, error) {
	v, err := dynamicfield.Borrow[Key, U128](r.store, r.ID, AccumulatorKey(t, owner))
	return v.Value, err
}

// BorrowAccumulatorMut updates the T accumulator in place.
func (r *Root) BorrowAccumulatorMut(t objects.TypeTag, owner objects.Address, mutate func(*U128) error) error {
	return dynamicfield.BorrowMut(r.store, r.ID, AccumulatorKey(t, owner), mutate)
}

// RemoveAccumulator detaches the T accumulator and returns its last value.
func (r *Root) RemoveAccumulator(t objects.TypeTag, owner objects.Address) (objects.U128, error) {
	v, err := dynamicfield.Remove[Key, U128](r.store, r.ID, AccumulatorKey(t, owner))
	return v.Value, err
}

// Balance returns the T accumulator value, treating an absent accumulator as
// zero.
func (r *Root) Balance(t objects.TypeTag, owner objects.Address) (objects.U128, error) {
	v, err := r.BorrowAccumulator(t, owner)
	if errors.Is(err, dynamicfield.ErrFieldNotFound) {
		return objects.U128{}, nil
	}
	return v, err
}
