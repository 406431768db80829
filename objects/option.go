// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objects

// Option is an optional value that survives the canonical codec, which has no
// representation for nil pointers.
type Option[V any] struct {
	Set   bool `serialize:"true"`
	Value V    `serialize:"true"`
}

// Some wraps v.
func Some[V any](v V) Option[V] { return Option[V]{Set: true, Value: v} }

// None returns the empty option.
func None[V any]() Option[V] { return Option[V]{} }

// IsSome reports whether a value is held.
func (o Option[V]) IsSome() bool { return o.Set }

// IsNone reports whether no value is held.
func (o Option[V]) IsNone() bool { return !o.Set }

// Get returns the held value and whether it was set.
func (o Option[V]) Get() (V, bool) { return o.Value, o.Set }

// Take empties the option and returns what it held.
func (o *Option[V]) Take() (V, bool) {
	v, ok := o.Value, o.Set
	*o = Option[V]{}
	return v, ok
}
