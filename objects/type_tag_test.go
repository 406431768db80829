// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type phantomKey struct {
	inner TypeTag
}

func (k phantomKey) TypeTag() TypeTag {
	return StructTag(FrameworkAddress, "test", "Key", k.inner)
}

func TestTypeOfPrimitives(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("u64", TypeOf[uint64]().String())
	assert.Equal("u8", TypeOf[uint8]().String())
	assert.Equal("bool", TypeOf[bool]().String())
	assert.Equal("address", TypeOf[Address]().String())
	assert.Equal("u128", TypeOf[U128]().String())
	assert.Equal("vector<u8>", TypeOf[[]byte]().String())
	assert.Equal("0x1::string::String", TypeOf[string]().String())
}

func TestTagOfPrefersTyped(t *testing.T) {
	assert := assert.New(t)

	coin := StructTag(MustParseAddress("0xabc"), "coin", "C")
	tag := TagOf(phantomKey{inner: coin})
	assert.Equal("0x2::test::Key<0xabc::coin::C>", tag.String())
	assert.True(tag.Equal(StructTag(FrameworkAddress, "test", "Key", coin)))
	assert.False(tag.Equal(StructTag(FrameworkAddress, "test", "Key")))
}

func TestTypeTagEqualIgnoresEmptySlices(t *testing.T) {
	assert := assert.New(t)

	a := TypeTag{Name: "u64"}
	b := TypeTag{Name: "u64", Params: []TypeTag{}}
	assert.True(a.Equal(b))
}

func TestParseAddress(t *testing.T) {
	assert := assert.New(t)

	a, err := ParseAddress("0x2")
	assert.NoError(err)
	assert.Equal(FrameworkAddress, a)
	assert.Equal("0x2", a.ShortString())

	_, err = ParseAddress("0xzz")
	assert.Error(err)

	_, err = ParseAddress("0x" + strings.Repeat("11", AddressLen+1))
	assert.Error(err)
}
