// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package epochconfig

import (
	"fmt"

	"github.com/ava-labs/settlevm/objects"
)

// Setting is the field stored for every configured name.
type Setting[V any] struct {
	Data objects.Option[SettingData[V]] `serialize:"true"`
}

// TypeTag implements objects.Typed.
func (Setting[V]) TypeTag() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, moduleName, "Setting", objects.TypeOf[V]())
}

// SettingData holds at most two generations of a value: the one written
// during NewerValueEpoch, which takes effect in later epochs, and the one it
// replaced, which stays visible until then.
type SettingData[V any] struct {
	NewerValueEpoch uint64            `serialize:"true"`
	NewerValue      objects.Option[V] `serialize:"true"`
	OlderValue      objects.Option[V] `serialize:"true"`
}

// TypeTag implements objects.Typed.
func (SettingData[V]) TypeTag() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, moduleName, "SettingData", objects.TypeOf[V]())
}

// generations classifies a SettingData by how many values it holds.
type generations uint8

const (
	// absent settings are never persisted; the field is removed instead.
	absent generations = iota
	// one holds either a newer value or, after a removal, only an older one.
	one
	two
)

func (g generations) String() string {
	switch g {
	case absent:
		return "absent"
	case one:
		return "one generation"
	case two:
		return "two generations"
	default:
		return "invalid"
	}
}

func (d *SettingData[V]) generations() generations {
	switch {
	case d.NewerValue.IsSome() && d.OlderValue.IsSome():
		return two
	case d.NewerValue.IsSome() || d.OlderValue.IsSome():
		return one
	default:
		return absent
	}
}

// advance prepares d for a write during [epoch]. If the newer generation was
// written in an earlier epoch it becomes the older one, and the previous older
// value is evicted and returned.
func (d *SettingData[V]) advance(epoch uint64) (objects.Option[V], error) {
	switch {
	case epoch > d.NewerValueEpoch:
		evicted := d.OlderValue
		d.OlderValue = d.NewerValue
		d.NewerValue = objects.None[V]()
		d.NewerValueEpoch = epoch
		return evicted, nil
	case epoch == d.NewerValueEpoch:
		return objects.None[V](), nil
	default:
		return objects.None[V](), fmt.Errorf("%w: writing in epoch %d, last written in %d",
			ErrEpochRegression, epoch, d.NewerValueEpoch)
	}
}

// valueAt returns the value in effect during [epoch]. A value written in
// epoch E is only visible from E+1 on.
func (d *SettingData[V]) valueAt(epoch uint64) objects.Option[V] {
	if epoch > d.NewerValueEpoch {
		return d.NewerValue
	}
	return d.OlderValue
}

// pendingFor reports whether a value was written during [epoch].
func (d *SettingData[V]) pendingFor(epoch uint64) bool {
	return d.NewerValueEpoch == epoch && d.NewerValue.IsSome()
}
