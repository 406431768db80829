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
	metadataModuleName = "accumulator_metadata"
)

// OwnerKey names the Owner record of an address under the root.
type OwnerKey struct {
	Owner objects.Address `serialize:"true"`
}

// TypeTag implements objects.Typed.
func (OwnerKey) TypeTag() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, metadataModuleName, "OwnerKey")
}

// Owner lists, as a bag of Metadata keyed by type, the accumulator types that
// are currently non-zero for one address.
type Owner struct {
	Balances dynamicfield.Bag `serialize:"true" json:"balances"`
	Owner    objects.Address  `serialize:"true" json:"owner"`
}

// TypeTag implements objects.Typed.
func (Owner) TypeTag() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, metadataModuleName, "Owner")
}

// MetadataKey names the Metadata of type T inside an Owner's bag.
type MetadataKey struct {
	typ objects.TypeTag
}

// TypeTag implements objects.Typed.
func (k MetadataKey) TypeTag() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, metadataModuleName, "MetadataKey", k.typ)
}

// Metadata is the per (owner, type) side record. It carries no data yet; the
// bag is reserved for future per-accumulator fields and must be empty when the
// metadata is removed.
type Metadata struct {
	Fields dynamicfield.Bag `serialize:"true" json:"fields"`
}

// TypeTag implements objects.Typed.
func (Metadata) TypeTag() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, metadataModuleName, "Metadata")
}

// OwnerExists reports whether [owner] has an Owner record.
func (r *Root) OwnerExists(owner objects.Address) (bool, error) {
	return dynamicfield.ExistsWithType[OwnerKey, Owner](r.store, r.ID, OwnerKey{Owner: owner})
}

// BorrowOwner returns the Owner record of [owner].
func (r *Root) BorrowOwner(owner objects.Address) (Owner, error) {
	return dynamicfield.Borrow[OwnerKey, Owner](r.store, r.ID, OwnerKey{Owner: owner})
}

// OwnerTypes returns how many accumulator types [owner] currently tracks.
func (r *Root) OwnerTypes(owner objects.Address) (uint64, error) {
	o, err := r.BorrowOwner(owner)
	if errors.Is(err, dynamicfield.ErrFieldNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return o.Balances.Len(), nil
}

// MetadataExists reports whether [owner] tracks a T accumulator.
func (r *Root) MetadataExists(t objects.TypeTag, owner objects.Address) (bool, error) {
	o, err := r.BorrowOwner(owner)
	if errors.Is(err, dynamicfield.ErrFieldNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return dynamicfield.BagContainsWithType[MetadataKey, Metadata](r.store, o.Balances, MetadataKey{typ: t})
}

// CreateMetadata records that [owner] now has a T accumulator, creating the
// Owner record if this is its first one.
func (r *Root) CreateMetadata(t objects.TypeTag, owner objects.Address, ctx *objects.TxContext) error {
	metadata := Metadata{Fields: dynamicfield.NewBag(ctx)}

	exists, err := r.OwnerExists(owner)
	if err != nil {
		return err
	}
	if !exists {
		o := Owner{
			Balances: dynamicfield.NewBag(ctx),
			Owner:    owner,
		}
		if err := r.attachMetadata(&o, t, metadata); err != nil {
			return err
		}
		return dynamicfield.Add(r.store, r.ID, OwnerKey{Owner: owner}, o)
	}
	return dynamicfield.BorrowMut(r.store, r.ID, OwnerKey{Owner: owner}, func(o *Owner) error {
		return r.attachMetadata(o, t, metadata)
	})
}

// RemoveMetadata drops the T metadata of [owner] and, when it was the last
// one, the Owner record itself.
func (r *Root) RemoveMetadata(t objects.TypeTag, owner objects.Address) error {
	var empty bool
	err := dynamicfield.BorrowMut(r.store, r.ID, OwnerKey{Owner: owner}, func(o *Owner) error {
		m, err := dynamicfield.BagRemove[MetadataKey, Metadata](r.store, &o.Balances, MetadataKey{typ: t})
		if errors.Is(err, dynamicfield.ErrFieldNotFound) {
			return fmt.Errorf("%w: no %s metadata for %s", ErrInvariantViolation, t, owner)
		}
		if err != nil {
			return err
		}
		if err := m.Fields.DestroyEmpty(); err != nil {
			return fmt.Errorf("%w: %s", ErrInvariantViolation, err)
		}
		empty = o.Balances.IsEmpty()
		return nil
	})
	if errors.Is(err, dynamicfield.ErrFieldNotFound) {
		return fmt.Errorf("%w: no owner record for %s", ErrInvariantViolation, owner)
	}
	if err != nil || !empty {
		return err
	}

	o, err := dynamicfield.Remove[OwnerKey, Owner](r.store, r.ID, OwnerKey{Owner: owner})
	if err != nil {
		return err
	}
	return o.Balances.DestroyEmpty()
}

func (r *Root) attachMetadata(o *Owner, t objects.TypeTag, metadata Metadata) error {
	err := dynamicfield.BagAdd(r.store, &o.Balances, MetadataKey{typ: t}, metadata)
	if errors.Is(err, dynamicfield.ErrFieldAlreadyExists) {
		return fmt.Errorf("%w: %s metadata already exists for %s", ErrInvariantViolation, t, o.Owner)
	}
	return err
}
