// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dynamicfield

import (
	"errors"
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/settlevm/objects"
)

type name struct {
	Label string `serialize:"true"`
}

type counter struct {
	Count uint64 `serialize:"true"`
}

var parent = objects.MustParseAddress("0x5ea")

func TestAddBorrowRemove(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())

	require.NoError(Add(s, parent, name{"a"}, counter{Count: 1}))

	got, err := Borrow[name, counter](s, parent, name{"a"})
	require.NoError(err)
	require.Equal(uint64(1), got.Count)

	exists, err := Exists(s, parent, name{"a"})
	require.NoError(err)
	require.True(exists)

	removed, err := Remove[name, counter](s, parent, name{"a"})
	require.NoError(err)
	require.Equal(uint64(1), removed.Count)

	exists, err = Exists(s, parent, name{"a"})
	require.NoError(err)
	require.False(exists)
}

func TestAddDuplicate(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())

	require.NoError(Add(s, parent, name{"a"}, counter{}))
	err := Add(s, parent, name{"a"}, uint64(3))
	require.ErrorIs(err, ErrFieldAlreadyExists)
}

func TestMissingField(t *testing.T) {
	assert := assert.New(t)
	s := New(memdb.New())

	_, err := Borrow[name, counter](s, parent, name{"missing"})
	assert.ErrorIs(err, ErrFieldNotFound)

	_, err = Remove[name, counter](s, parent, name{"missing"})
	assert.ErrorIs(err, ErrFieldNotFound)

	err = BorrowMut(s, parent, name{"missing"}, func(*counter) error { return nil })
	assert.ErrorIs(err, ErrFieldNotFound)
}

func TestTypeMismatch(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	s := New(memdb.New())

	require.NoError(Add(s, parent, name{"a"}, counter{Count: 4}))

	_, err := Borrow[name, uint64](s, parent, name{"a"})
	assert.ErrorIs(err, ErrTypeMismatch)

	ok, err := ExistsWithType[name, uint64](s, parent, name{"a"})
	assert.NoError(err)
	assert.False(ok)

	ok, err = ExistsWithType[name, counter](s, parent, name{"a"})
	assert.NoError(err)
	assert.True(ok)

	// The mismatched remove must leave the field in place.
	_, err = Remove[name, uint64](s, parent, name{"a"})
	assert.ErrorIs(err, ErrTypeMismatch)
	ok, err = Exists(s, parent, name{"a"})
	assert.NoError(err)
	assert.True(ok)
}

func TestKeysAreScopedByParentAndType(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())
	other := objects.MustParseAddress("0x5eb")

	require.NoError(Add(s, parent, name{"a"}, counter{Count: 1}))
	require.NoError(Add(s, other, name{"a"}, counter{Count: 2}))
	// Same label, different key type.
	require.NoError(Add(s, parent, "a", counter{Count: 3}))

	a, err := Borrow[name, counter](s, parent, name{"a"})
	require.NoError(err)
	b, err := Borrow[name, counter](s, other, name{"a"})
	require.NoError(err)
	c, err := Borrow[string, counter](s, parent, "a")
	require.NoError(err)
	require.Equal([]uint64{1, 2, 3}, []uint64{a.Count, b.Count, c.Count})
}

func TestBorrowMut(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())

	require.NoError(Add(s, parent, name{"a"}, counter{Count: 1}))
	require.NoError(BorrowMut(s, parent, name{"a"}, func(c *counter) error {
		c.Count += 10
		return nil
	}))

	errStop := errors.New("stop")
	err := BorrowMut(s, parent, name{"a"}, func(c *counter) error {
		c.Count = 0
		return errStop
	})
	require.ErrorIs(err, errStop)

	got, err := Borrow[name, counter](s, parent, name{"a"})
	require.NoError(err)
	require.Equal(uint64(11), got.Count)
}

func TestFieldAddressMatchesDerivation(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())

	require.NoError(Add(s, parent, name{"a"}, counter{}))

	addr, err := FieldAddress(parent, name{"a"})
	require.NoError(err)
	derived, err := objects.DeriveFieldAddress(parent, name{"a"})
	require.NoError(err)
	require.Equal(derived, addr)

	typ, err := s.ValueType(addr)
	require.NoError(err)
	require.True(typ.Equal(objects.TypeOf[counter]()))
}

func TestAbortDiscardsFields(t *testing.T) {
	require := require.New(t)
	base := memdb.New()
	vdb := versiondb.New(base)
	s := New(vdb)

	require.NoError(Add(s, parent, name{"kept"}, counter{}))
	require.NoError(vdb.Commit())

	require.NoError(Add(s, parent, name{"dropped"}, counter{}))
	vdb.Abort()

	committed := New(base)
	ok, err := Exists(committed, parent, name{"kept"})
	require.NoError(err)
	require.True(ok)
	ok, err = Exists(committed, parent, name{"dropped"})
	require.NoError(err)
	require.False(ok)
}

func TestObjects(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())
	tag := objects.StructTag(objects.FrameworkAddress, "test", "Thing")

	require.NoError(s.NewObject(parent, tag))
	require.ErrorIs(s.NewObject(parent, tag), ErrObjectExists)

	got, err := s.ObjectType(parent)
	require.NoError(err)
	require.True(got.Equal(tag))

	require.NoError(s.DeleteObject(parent))
	_, err = s.ObjectType(parent)
	require.ErrorIs(err, ErrObjectNotFound)
	require.ErrorIs(s.DeleteObject(parent), ErrObjectNotFound)
}

func TestBag(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())
	ctx := objects.NewTxContext(objects.SystemAddress, 0, [32]byte{9})

	bag := NewBag(ctx)
	require.True(bag.IsEmpty())

	require.NoError(BagAdd(s, &bag, name{"a"}, counter{Count: 1}))
	require.NoError(BagAdd(s, &bag, uint64(2), "two"))
	require.Equal(uint64(2), bag.Len())
	require.ErrorIs(bag.DestroyEmpty(), ErrBagNotEmpty)

	ok, err := BagContainsWithType[uint64, string](s, bag, 2)
	require.NoError(err)
	require.True(ok)
	ok, err = BagContainsWithType[uint64, bool](s, bag, 2)
	require.NoError(err)
	require.False(ok)
	ok, err = BagContains(s, bag, name{"b"})
	require.NoError(err)
	require.False(ok)

	require.NoError(BagBorrowMut(s, bag, name{"a"}, func(c *counter) error {
		c.Count += 4
		return nil
	}))
	c, err := BagBorrow[name, counter](s, bag, name{"a"})
	require.NoError(err)
	require.Equal(uint64(5), c.Count)

	_, err = BagRemove[name, counter](s, &bag, name{"a"})
	require.NoError(err)
	two, err := BagRemove[uint64, string](s, &bag, 2)
	require.NoError(err)
	require.Equal("two", two)
	require.NoError(bag.DestroyEmpty())

	// A failed remove leaves the count alone.
	_, err = BagRemove[uint64, string](s, &bag, 2)
	require.ErrorIs(err, ErrFieldNotFound)
	require.True(bag.IsEmpty())
}
