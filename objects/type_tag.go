// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objects

import (
	"reflect"
	"strings"
)

var (
	// StdAddress hosts the standard library types (strings, options).
	StdAddress = MustParseAddress("0x1")
	// FrameworkAddress hosts the object model types (fields, accumulators, config).
	FrameworkAddress = MustParseAddress("0x2")

	addressType = reflect.TypeOf(Address{})
	u128Type    = reflect.TypeOf(U128{})
)

// TypeTag names a type. Primitive types only carry a Name; struct types carry
// the address and module that declare them plus their type parameters.
type TypeTag struct {
	Address Address   `serialize:"true" json:"address"`
	Module  string    `serialize:"true" json:"module"`
	Name    string    `serialize:"true" json:"name"`
	Params  []TypeTag `serialize:"true" json:"params,omitempty"`
}

// Typed is implemented by values whose type tag can't be recovered from the Go
// type alone, usually because they carry a phantom type parameter.
type Typed interface {
	TypeTag() TypeTag
}

// StructTag builds a struct type tag.
func StructTag(addr Address, module, name string, params ...TypeTag) TypeTag {
	return TypeTag{
		Address: addr,
		Module:  module,
		Name:    name,
		Params:  params,
	}
}

// PrimitiveTag builds the tag of a primitive type such as u64.
func PrimitiveTag(name string) TypeTag { return TypeTag{Name: name} }

// IsPrimitive reports whether t names a primitive type.
func (t TypeTag) IsPrimitive() bool { return t.Module == "" }

// Equal compares two tags structurally.
func (t TypeTag) Equal(o TypeTag) bool {
	if t.Address != o.Address || t.Module != o.Module || t.Name != o.Name {
		return false
	}
	if len(t.Params) != len(o.Params) {
		return false
	}
	for i := range t.Params {
		if !t.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

// String renders the canonical 0x2::module::Name<P1, P2> form.
func (t TypeTag) String() string {
	var sb strings.Builder
	if !t.IsPrimitive() {
		sb.WriteString(t.Address.ShortString())
		sb.WriteString("::")
		sb.WriteString(t.Module)
		sb.WriteString("::")
	}
	sb.WriteString(t.Name)
	if len(t.Params) > 0 {
		sb.WriteByte('<')
		for i, p := range t.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		sb.WriteByte('>')
	}
	return sb.String()
}

// Bytes returns the canonical encoding of the tag.
func (t TypeTag) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, &t)
}

// TypeOf returns the tag of the static type V.
func TypeOf[V any]() TypeTag {
	var zero V
	if typed, ok := any(zero).(Typed); ok {
		return typed.TypeTag()
	}
	if typed, ok := any(&zero).(Typed); ok {
		return typed.TypeTag()
	}
	return reflectTag(reflect.TypeOf((*V)(nil)).Elem())
}

// TagOf returns the tag of a value, preferring the value's own Typed
// implementation so phantom parameters are kept.
func TagOf(v interface{}) TypeTag {
	if typed, ok := v.(Typed); ok {
		return typed.TypeTag()
	}
	return reflectTag(reflect.TypeOf(v))
}

func reflectTag(t reflect.Type) TypeTag {
	switch t {
	case addressType:
		return PrimitiveTag("address")
	case u128Type:
		return PrimitiveTag("u128")
	}
	switch t.Kind() {
	case reflect.Bool:
		return PrimitiveTag("bool")
	case reflect.Uint8:
		return PrimitiveTag("u8")
	case reflect.Uint16:
		return PrimitiveTag("u16")
	case reflect.Uint32:
		return PrimitiveTag("u32")
	case reflect.Uint64:
		return PrimitiveTag("u64")
	case reflect.String:
		return StructTag(StdAddress, "string", "String")
	case reflect.Slice:
		return TypeTag{Name: "vector", Params: []TypeTag{reflectTag(t.Elem())}}
	case reflect.Ptr:
		return reflectTag(t.Elem())
	}
	// Go types without a declared tag are named after their package.
	return StructTag(ZeroAddress, t.PkgPath(), t.Name())
}
