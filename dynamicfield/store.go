// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dynamicfield

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"

	"github.com/ava-labs/settlevm/objects"
)

var (
	// These are prefixes for db keys.
	// Objects and fields live in separate key spaces so an object id can
	// never shadow a field slot.
	objectPrefix = []byte("object")
	fieldPrefix  = []byte("field")

	ErrFieldAlreadyExists = errors.New("field already exists")
	ErrFieldNotFound      = errors.New("field not found")
	ErrTypeMismatch       = errors.New("field value type mismatch")
	ErrObjectExists       = errors.New("object already exists")
	ErrObjectNotFound     = errors.New("object not found")
)

// Store attaches typed values to object ids. Each value is stored at the
// address derived from (parent, key type, key), so any number of
// heterogeneous fields can hang off an object without a schema.
type Store struct {
	objectDB database.Database
	fieldDB  database.Database
}

// New returns a store backed by [db]. Writes are not buffered here; wrap [db]
// in a versiondb to make a group of operations atomic.
func New(db database.Database) *Store {
	return &Store{
		objectDB: prefixdb.New(objectPrefix, db),
		fieldDB:  prefixdb.New(fieldPrefix, db),
	}
}

// record is the persisted form of a field.
type record struct {
	Parent    objects.Address `serialize:"true"`
	NameType  objects.TypeTag `serialize:"true"`
	ValueType objects.TypeTag `serialize:"true"`
	Name      []byte          `serialize:"true"`
	Value     []byte          `serialize:"true"`
}

type objectRecord struct {
	Type objects.TypeTag `serialize:"true"`
}

// slot is a resolved field location.
type slot struct {
	addr     objects.Address
	nameType objects.TypeTag
	name     []byte
}

func resolve(parent objects.Address, key interface{}) (slot, error) {
	name, err := objects.Encode(key)
	if err != nil {
		return slot{}, fmt.Errorf("couldn't encode field name: %w", err)
	}
	nameType := objects.TagOf(key)
	addr, err := objects.DeriveAddress(parent, nameType, name)
	if err != nil {
		return slot{}, err
	}
	return slot{addr: addr, nameType: nameType, name: name}, nil
}

// FieldAddress returns the address of the field [key] under [parent].
func FieldAddress(parent objects.Address, key interface{}) (objects.Address, error) {
	sl, err := resolve(parent, key)
	return sl.addr, err
}

func (s *Store) load(addr objects.Address) (*record, bool, error) {
	b, err := s.fieldDB.Get(addr[:])
	if err == database.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	rec := &record{}
	if err := objects.Decode(b, rec); err != nil {
		return nil, false, fmt.Errorf("couldn't decode field %s: %w", addr, err)
	}
	return rec, true, nil
}

func (s *Store) put(addr objects.Address, rec *record) error {
	b, err := objects.Encode(rec)
	if err != nil {
		return fmt.Errorf("couldn't encode field %s: %w", addr, err)
	}
	return s.fieldDB.Put(addr[:], b)
}

// lookup loads the record at [sl] and checks that it holds a V.
func lookup[V any](s *Store, parent objects.Address, sl slot) (*record, error) {
	rec, ok, err := s.load(sl.addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s under %s", ErrFieldNotFound, sl.nameType, parent)
	}
	if want := objects.TypeOf[V](); !rec.ValueType.Equal(want) {
		return nil, fmt.Errorf("%w: %s under %s holds %s, not %s",
			ErrTypeMismatch, sl.nameType, parent, rec.ValueType, want)
	}
	return rec, nil
}

func decodeValue[V any](rec *record) (V, error) {
	var v V
	if err := objects.Decode(rec.Value, &v); err != nil {
		return v, fmt.Errorf("couldn't decode %s: %w", rec.ValueType, err)
	}
	return v, nil
}

// Add attaches [value] under [key] to [parent].
func Add[K, V any](s *Store, parent objects.Address, key K, value V) error {
	sl, err := resolve(parent, key)
	if err != nil {
		return err
	}
	has, err := s.fieldDB.Has(sl.addr[:])
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("%w: %s under %s", ErrFieldAlreadyExists, sl.nameType, parent)
	}
	valueBytes, err := objects.Encode(&value)
	if err != nil {
		return fmt.Errorf("couldn't encode field value: %w", err)
	}
	return s.put(sl.addr, &record{
		Parent:    parent,
		NameType:  sl.nameType,
		ValueType: objects.TypeOf[V](),
		Name:      sl.name,
		Value:     valueBytes,
	})
}

// Borrow returns a copy of the V stored under [key].
func Borrow[K, V any](s *Store, parent objects.Address, key K) (V, error) {
	var zero V
	sl, err := resolve(parent, key)
	if err != nil {
		return zero, err
	}
	rec, err := lookup[V](s, parent, sl)
	if err != nil {
		return zero, err
	}
	return decodeValue[V](rec)
}

// BorrowMut loads the V stored under [key], lets [mutate] change it in place
// and writes it back. Nothing is written if [mutate] fails.
func BorrowMut[K, V any](s *Store, parent objects.Address, key K, mutate func(*V) error) error {
	sl, err := resolve(parent, key)
	if err != nil {
		return err
	}
	rec, err := lookup[V](s, parent, sl)
	if err != nil {
		return err
	}
	v, err := decodeValue[V](rec)
	if err != nil {
		return err
	}
	if err := mutate(&v); err != nil {
		return err
	}
	rec.Value, err = objects.Encode(&v)
	if err != nil {
		return fmt.Errorf("couldn't encode field value: %w", err)
	}
	return s.put(sl.addr, rec)
}

// Remove detaches the V stored under [key] and returns it.
func Remove[K, V any](s *Store, parent objects.Address, key K) (V, error) {
	var zero V
	sl, err := resolve(parent, key)
	if err != nil {
		return zero, err
	}
	rec, err := lookup[V](s, parent, sl)
	if err != nil {
		return zero, err
	}
	v, err := decodeValue[V](rec)
	if err != nil {
		return zero, err
	}
	return v, s.fieldDB.Delete(sl.addr[:])
}

// Exists reports whether any value is stored under [key].
func Exists[K any](s *Store, parent objects.Address, key K) (bool, error) {
	sl, err := resolve(parent, key)
	if err != nil {
		return false, err
	}
	return s.fieldDB.Has(sl.addr[:])
}

// ExistsWithType reports whether a V is stored under [key].
func ExistsWithType[K, V any](s *Store, parent objects.Address, key K) (bool, error) {
	sl, err := resolve(parent, key)
	if err != nil {
		return false, err
	}
	rec, ok, err := s.load(sl.addr)
	if err != nil || !ok {
		return false, err
	}
	return rec.ValueType.Equal(objects.TypeOf[V]()), nil
}

// ValueType returns the type tag of the value stored at a field address, for
// readers that only know the address.
func (s *Store) ValueType(addr objects.Address) (objects.TypeTag, error) {
	rec, ok, err := s.load(addr)
	if err != nil {
		return objects.TypeTag{}, err
	}
	if !ok {
		return objects.TypeTag{}, fmt.Errorf("%w: %s", ErrFieldNotFound, addr)
	}
	return rec.ValueType, nil
}

// NewObject registers a top-level object.
func (s *Store) NewObject(id objects.Address, typ objects.TypeTag) error {
	has, err := s.objectDB.Has(id[:])
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("%w: %s", ErrObjectExists, id)
	}
	b, err := objects.Encode(&objectRecord{Type: typ})
	if err != nil {
		return err
	}
	return s.objectDB.Put(id[:], b)
}

// ObjectExists reports whether [id] was registered.
func (s *Store) ObjectExists(id objects.Address) (bool, error) {
	return s.objectDB.Has(id[:])
}

// ObjectType returns the type [id] was registered with.
func (s *Store) ObjectType(id objects.Address) (objects.TypeTag, error) {
	b, err := s.objectDB.Get(id[:])
	if err == database.ErrNotFound {
		return objects.TypeTag{}, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	if err != nil {
		return objects.TypeTag{}, err
	}
	rec := objectRecord{}
	if err := objects.Decode(b, &rec); err != nil {
		return objects.TypeTag{}, err
	}
	return rec.Type, nil
}

// DeleteObject unregisters [id]. Fields attached to it are left in place.
func (s *Store) DeleteObject(id objects.Address) error {
	has, err := s.objectDB.Has(id[:])
	if err != nil {
		return err
	}
	if !has {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	return s.objectDB.Delete(id[:])
}
