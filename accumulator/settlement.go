// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package accumulator

import (
	"errors"
	"fmt"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/settlevm/objects"
)

var (
	ErrInvalidSplitAmount = errors.New("invalid split amount")
	ErrUnderflow          = errors.New("accumulator underflow")
	ErrOverflow           = errors.New("accumulator overflow")
)

// Outcome is what a settlement did to the accumulator it touched.
type Outcome uint8

const (
	Created Outcome = iota + 1
	Updated
	Removed
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// authorize accepts only the cap issued with [r], used by the system sender.
func authorize(r *Root, sysCap *SystemCap, ctx *objects.TxContext) error {
	if sysCap == nil {
		return ErrUnauthorized
	}
	if ctx.Sender() != objects.SystemAddress {
		return fmt.Errorf("%w: %s", ErrNotSystemAddress, ctx.Sender())
	}
	if sysCap != r.cap {
		return fmt.Errorf("%w: cap was not issued with this root", ErrUnauthorized)
	}
	return nil
}

// SettlementPrologue opens a settlement transaction. It only checks
// authorization: its arguments exist so that every settlement transaction has
// a distinct digest, which the executor uses to reject replays.
func SettlementPrologue(r *Root, sysCap *SystemCap, ctx *objects.TxContext, epoch, checkpointHeight, idx uint64) error {
	return authorize(r, sysCap, ctx)
}

// SettleU128 applies one netted delta to the T accumulator of [owner]. Exactly
// one of [merge] and [split] must be non-zero.
//
// This is the only place accumulators and their metadata are created or
// removed, and it always does both. A failure part way through leaves writes
// behind that the enclosing transaction must discard.
func SettleU128(
	r *Root,
	sysCap *SystemCap,
	t objects.TypeTag,
	owner objects.Address,
	merge objects.U128,
	split objects.U128,
	ctx *objects.TxContext,
) (Outcome, error) {
	if err := authorize(r, sysCap, ctx); err != nil {
		return 0, err
	}
	if merge.IsZero() == split.IsZero() {
		return 0, fmt.Errorf("%w: merge %s and split %s must be netted", ErrInvalidSplitAmount, merge, split)
	}

	exists, err := r.HasAccumulator(t, owner)
	if err != nil {
		return 0, err
	}
	if !exists {
		// Nothing to split from.
		if !split.IsZero() {
			return 0, fmt.Errorf("%w: split %s from empty %s accumulator of %s",
				ErrInvalidSplitAmount, split, t, owner)
		}
		if err := r.AddAccumulator(t, owner, merge); err != nil {
			return 0, err
		}
		if err := r.CreateMetadata(t, owner, ctx); err != nil {
			return 0, err
		}
		log.Debug("created accumulator", "type", t, "owner", owner, "value", merge)
		return Created, nil
	}

	var isZero bool
	err = r.BorrowAccumulatorMut(t, owner, func(v *U128) error {
		next, err := v.Value.Add(merge)
		if err != nil {
			return fmt.Errorf("%w: %s + %s", ErrOverflow, v.Value, merge)
		}
		next, err = next.Sub(split)
		if err != nil {
			return fmt.Errorf("%w: %s - %s", ErrUnderflow, v.Value, split)
		}
		v.Value = next
		isZero = next.IsZero()
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !isZero {
		return Updated, nil
	}

	if _, err := r.RemoveAccumulator(t, owner); err != nil {
		return 0, err
	}
	if err := r.RemoveMetadata(t, owner); err != nil {
		return 0, err
	}
	log.Debug("removed accumulator", "type", t, "owner", owner)
	return Removed, nil
}
