// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package epochconfig stores named settings whose writes take effect at the
// next epoch boundary. Writers need the capability the config was created
// with; anyone can read.
package epochconfig

import (
	"errors"
	"fmt"

	"github.com/ava-labs/settlevm/dynamicfield"
	"github.com/ava-labs/settlevm/objects"
)

const moduleName = "config"

var (
	ErrAlreadySetForEpoch = errors.New("setting already written this epoch")
	ErrNotSetForEpoch     = errors.New("setting not written this epoch")
	ErrEpochRegression    = errors.New("epoch precedes the setting's last write")
	ErrUnauthorized       = errors.New("write capability required")
	ErrConfigNotFound     = errors.New("config not found")
)

// Config is a keyed settings store. W is the capability type whose holder may
// write to it.
type Config[W any] struct {
	ID objects.Address `json:"id"`
}

// ConfigType returns the tag of Config<W>.
func ConfigType[W any]() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, moduleName, "Config", objects.TypeOf[W]())
}

// New creates an empty config writable by holders of a W.
func New[W any](store *dynamicfield.Store, cap *W, ctx *objects.TxContext) (*Config[W], error) {
	if cap == nil {
		return nil, ErrUnauthorized
	}
	id := ctx.FreshID()
	if err := store.NewObject(id, ConfigType[W]()); err != nil {
		return nil, err
	}
	return &Config[W]{ID: id}, nil
}

// Load returns the config registered at [id].
func Load[W any](store *dynamicfield.Store, id objects.Address) (*Config[W], error) {
	typ, err := store.ObjectType(id)
	if errors.Is(err, dynamicfield.ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if want := ConfigType[W](); !typ.Equal(want) {
		return nil, fmt.Errorf("%w: %s is a %s, not a %s", ErrConfigNotFound, id, typ, want)
	}
	return &Config[W]{ID: id}, nil
}

func borrowData[K, V any](store *dynamicfield.Store, id objects.Address, name K) (*SettingData[V], bool, error) {
	ok, err := dynamicfield.ExistsWithType[K, Setting[V]](store, id, name)
	if err != nil || !ok {
		return nil, false, err
	}
	setting, err := dynamicfield.Borrow[K, Setting[V]](store, id, name)
	if err != nil {
		return nil, false, err
	}
	data, ok := setting.Data.Get()
	return &data, ok, nil
}

// AddForNextEpoch writes [value] as the value of [name] from the next epoch on.
// At most one value can be written per name per epoch. If writing rolls the
// previous generation over, the value it evicts is returned.
func AddForNextEpoch[W, K, V any](
	store *dynamicfield.Store,
	cfg *Config[W],
	cap *W,
	name K,
	value V,
	ctx *objects.TxContext,
) (V, bool, error) {
	var zero V
	if cap == nil {
		return zero, false, ErrUnauthorized
	}
	epoch := ctx.Epoch()

	exists, err := dynamicfield.Exists(store, cfg.ID, name)
	if err != nil {
		return zero, false, err
	}
	if !exists {
		setting := Setting[V]{Data: objects.Some(SettingData[V]{
			NewerValueEpoch: epoch,
			NewerValue:      objects.Some(value),
		})}
		return zero, false, dynamicfield.Add(store, cfg.ID, name, setting)
	}

	var evicted objects.Option[V]
	err = dynamicfield.BorrowMut(store, cfg.ID, name, func(s *Setting[V]) error {
		data, ok := s.Data.Take()
		if !ok {
			return fmt.Errorf("%w: setting under %s has no data", dynamicfield.ErrFieldNotFound, cfg.ID)
		}
		evicted, err = data.advance(epoch)
		if err != nil {
			return err
		}
		if data.NewerValue.IsSome() {
			return fmt.Errorf("%w: epoch %d", ErrAlreadySetForEpoch, epoch)
		}
		data.NewerValue = objects.Some(value)
		s.Data = objects.Some(data)
		return nil
	})
	if err != nil {
		return zero, false, err
	}
	v, ok := evicted.Get()
	return v, ok, nil
}

// RemoveForNextEpoch clears [name] from the next epoch on and returns the value
// the removal discards. Once no generation is left the setting is deleted.
func RemoveForNextEpoch[W, K, V any](
	store *dynamicfield.Store,
	cfg *Config[W],
	cap *W,
	name K,
	ctx *objects.TxContext,
) (V, bool, error) {
	var zero V
	if cap == nil {
		return zero, false, ErrUnauthorized
	}
	epoch := ctx.Epoch()

	exists, err := dynamicfield.Exists(store, cfg.ID, name)
	if err != nil || !exists {
		return zero, false, err
	}

	var (
		removed objects.Option[V]
		gone    bool
	)
	err = dynamicfield.BorrowMut(store, cfg.ID, name, func(s *Setting[V]) error {
		data, ok := s.Data.Take()
		if !ok {
			return fmt.Errorf("%w: setting under %s has no data", dynamicfield.ErrFieldNotFound, cfg.ID)
		}
		rolled := epoch > data.NewerValueEpoch
		evicted, err := data.advance(epoch)
		if err != nil {
			return err
		}
		if rolled {
			removed = evicted
		} else {
			removed = data.NewerValue
			data.NewerValue = objects.None[V]()
		}
		gone = data.generations() == absent
		s.Data = objects.Some(data)
		return nil
	})
	if err != nil {
		return zero, false, err
	}
	if gone {
		if _, err := dynamicfield.Remove[K, Setting[V]](store, cfg.ID, name); err != nil {
			return zero, false, err
		}
	}
	v, ok := removed.Get()
	return v, ok, nil
}

// ExistsWithType reports whether [name] holds a setting of V values.
func ExistsWithType[W, K, V any](store *dynamicfield.Store, cfg *Config[W], name K) (bool, error) {
	return dynamicfield.ExistsWithType[K, Setting[V]](store, cfg.ID, name)
}

// ExistsWithTypeForNextEpoch reports whether a V was written to [name] during
// the current epoch.
func ExistsWithTypeForNextEpoch[W, K, V any](
	store *dynamicfield.Store,
	cfg *Config[W],
	name K,
	ctx *objects.TxContext,
) (bool, error) {
	data, ok, err := borrowData[K, V](store, cfg.ID, name)
	if err != nil || !ok {
		return false, err
	}
	return data.pendingFor(ctx.Epoch()), nil
}

// BorrowForNextEpochMut lets [mutate] change the value written to [name]
// during the current epoch. Values from earlier epochs are never mutable.
func BorrowForNextEpochMut[W, K, V any](
	store *dynamicfield.Store,
	cfg *Config[W],
	cap *W,
	name K,
	ctx *objects.TxContext,
	mutate func(*V) error,
) error {
	if cap == nil {
		return ErrUnauthorized
	}
	epoch := ctx.Epoch()
	err := dynamicfield.BorrowMut(store, cfg.ID, name, func(s *Setting[V]) error {
		if !s.Data.IsSome() || !s.Data.Value.pendingFor(epoch) {
			return fmt.Errorf("%w: epoch %d", ErrNotSetForEpoch, epoch)
		}
		return mutate(&s.Data.Value.NewerValue.Value)
	})
	if errors.Is(err, dynamicfield.ErrFieldNotFound) {
		return fmt.Errorf("%w: %s", ErrNotSetForEpoch, err)
	}
	return err
}

// ReadSettingForNextEpoch returns the value [name] will have from the next
// epoch on, if it has been written.
func ReadSettingForNextEpoch[W, K, V any](store *dynamicfield.Store, cfg *Config[W], name K) (V, bool, error) {
	var zero V
	data, ok, err := borrowData[K, V](store, cfg.ID, name)
	if err != nil || !ok {
		return zero, false, err
	}
	v, ok := data.NewerValue.Get()
	return v, ok, nil
}

// ReadSetting returns the value of [name] in effect during [epoch] for the
// config at [configID]. It needs no capability.
func ReadSetting[K, V any](store *dynamicfield.Store, configID objects.Address, name K, epoch uint64) (V, bool, error) {
	var zero V
	data, ok, err := borrowData[K, V](store, configID, name)
	if err != nil || !ok {
		return zero, false, err
	}
	v, ok := data.valueAt(epoch).Get()
	return v, ok, nil
}

// Entry makes sure [name] has a value written this epoch, writing the result
// of [initial] if it does not, and then hands that value to [mutate].
func Entry[W, K, V any](
	store *dynamicfield.Store,
	cfg *Config[W],
	cap *W,
	name K,
	initial func() (V, error),
	ctx *objects.TxContext,
	mutate func(*V) error,
) error {
	pending, err := ExistsWithTypeForNextEpoch[W, K, V](store, cfg, name, ctx)
	if err != nil {
		return err
	}
	if !pending {
		value, err := initial()
		if err != nil {
			return err
		}
		if _, _, err := AddForNextEpoch(store, cfg, cap, name, value, ctx); err != nil {
			return err
		}
	}
	return BorrowForNextEpochMut(store, cfg, cap, name, ctx, mutate)
}

// Update is Entry for writers that need the value that was pending before the
// call. [update] receives it, or None if nothing was written yet, along with
// the value it should change.
func Update[W, K, V any](
	store *dynamicfield.Store,
	cfg *Config[W],
	cap *W,
	name K,
	initial func() (V, error),
	update func(objects.Option[V], *V) error,
	ctx *objects.TxContext,
) error {
	previous := objects.None[V]()
	ok, err := ExistsWithType[W, K, V](store, cfg, name)
	if err != nil {
		return err
	}
	if ok {
		v, set, err := ReadSettingForNextEpoch[W, K, V](store, cfg, name)
		if err != nil {
			return err
		}
		if set {
			previous = objects.Some(v)
		}
	}
	return Entry(store, cfg, cap, name, initial, ctx, func(v *V) error {
		return update(previous, v)
	})
}
