// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKey struct {
	Owner Address `serialize:"true"`
}

type otherKey struct {
	Owner Address `serialize:"true"`
}

func TestDeriveAddressDeterministic(t *testing.T) {
	require := require.New(t)

	root := MustParseAddress("0xacc")
	key := testKey{Owner: MustParseAddress("0xa11ce")}

	first, err := DeriveFieldAddress(root, key)
	require.NoError(err)
	second, err := DeriveFieldAddress(root, key)
	require.NoError(err)
	require.Equal(first, second)
	require.NotEqual(ZeroAddress, first)
}

func TestDeriveAddressVariesWithEachInput(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	root := MustParseAddress("0xacc")
	owner := MustParseAddress("0xa11ce")
	base, err := DeriveFieldAddress(root, testKey{Owner: owner})
	require.NoError(err)

	otherRoot, err := DeriveFieldAddress(MustParseAddress("0xacd"), testKey{Owner: owner})
	require.NoError(err)
	assert.NotEqual(base, otherRoot)

	otherOwner, err := DeriveFieldAddress(root, testKey{Owner: MustParseAddress("0xb0b")})
	require.NoError(err)
	assert.NotEqual(base, otherOwner)

	// Same bytes, different key type.
	otherType, err := DeriveFieldAddress(root, otherKey{Owner: owner})
	require.NoError(err)
	assert.NotEqual(base, otherType)
}

func TestDeriveAddressTypeParams(t *testing.T) {
	require := require.New(t)

	root := MustParseAddress("0xacc")
	keyBytes, err := Encode(testKey{Owner: MustParseAddress("0xa11ce")})
	require.NoError(err)

	coinA := StructTag(MustParseAddress("0xabc"), "coin", "A")
	coinB := StructTag(MustParseAddress("0xabc"), "coin", "B")
	keyA := StructTag(FrameworkAddress, "accumulator", "Key", coinA)
	keyB := StructTag(FrameworkAddress, "accumulator", "Key", coinB)

	a, err := DeriveAddress(root, keyA, keyBytes)
	require.NoError(err)
	b, err := DeriveAddress(root, keyB, keyBytes)
	require.NoError(err)
	require.NotEqual(a, b)
}

func TestDeriveAddressPrimitiveKeys(t *testing.T) {
	require := require.New(t)

	root := MustParseAddress("0x2")
	a, err := DeriveFieldAddress(root, uint64(7))
	require.NoError(err)
	b, err := DeriveFieldAddress(root, uint32(7))
	require.NoError(err)
	c, err := DeriveFieldAddress(root, "7")
	require.NoError(err)

	require.NotEqual(a, b)
	require.NotEqual(a, c)
	require.NotEqual(b, c)
}

func TestFreshIDsAreUnique(t *testing.T) {
	require := require.New(t)

	ctx := NewTxContext(SystemAddress, 3, [32]byte{1})
	seen := make(map[Address]struct{})
	for i := 0; i < 16; i++ {
		id := ctx.FreshID()
		_, dup := seen[id]
		require.False(dup)
		seen[id] = struct{}{}
	}
	require.EqualValues(16, ctx.IDsCreated())

	// Another transaction mints a disjoint sequence.
	other := NewTxContext(SystemAddress, 3, [32]byte{2})
	_, dup := seen[other.FreshID()]
	require.False(dup)
}
