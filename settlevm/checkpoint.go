// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ava-labs/settlevm/objects"
)

var (
	ErrUnknownOperation = errors.New("unknown accumulator operation")
	ErrZeroWrite        = errors.New("accumulator write of zero")
)

// Operation is the direction of an accumulator write.
type Operation uint8

const (
	Merge Operation = iota
	Split
)

func (o Operation) String() string {
	switch o {
	case Merge:
		return "merge"
	case Split:
		return "split"
	default:
		return "unknown"
	}
}

func (o Operation) MarshalText() ([]byte, error) {
	if o != Merge && o != Split {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, o)
	}
	return []byte(o.String()), nil
}

func (o *Operation) UnmarshalText(text []byte) error {
	switch string(text) {
	case "merge":
		*o = Merge
	case "split":
		*o = Split
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, text)
	}
	return nil
}

// AccumulatorWrite is one balance change emitted by a transaction in a
// checkpoint.
type AccumulatorWrite struct {
	Owner     objects.Address `json:"owner"`
	Type      objects.TypeTag `json:"type"`
	Operation Operation       `json:"operation"`
	Amount    objects.U128    `json:"amount"`
}

// Checkpoint carries the accumulator writes of one checkpoint for settlement.
type Checkpoint struct {
	Epoch  uint64             `json:"epoch"`
	Height uint64             `json:"height"`
	Idx    uint64             `json:"idx"`
	Writes []AccumulatorWrite `json:"writes"`
}

func (c *Checkpoint) Key() SettlementKey {
	return SettlementKey{Epoch: c.Epoch, Height: c.Height, Idx: c.Idx}
}

// netKey identifies a (owner, type) pair. The type is held in its canonical
// encoding, so distinct types never share a key even when they render alike.
type netKey struct {
	owner objects.Address
	typ   string
}

type netDelta struct {
	owner        objects.Address
	typ          objects.TypeTag
	merge, split objects.U128
}

// Net collapses the checkpoint's writes into at most one settlement per
// (owner, type). Pairs that net to zero are dropped. The result is ordered by
// owner, then by the type's canonical encoding, so every node settles in the
// same order.
func (c *Checkpoint) Net() ([]*SettleTx, error) {
	deltas := make(map[netKey]*netDelta)
	for i, w := range c.Writes {
		if w.Amount.IsZero() {
			return nil, fmt.Errorf("%w: write %d", ErrZeroWrite, i)
		}
		typ, err := w.Type.Bytes()
		if err != nil {
			return nil, fmt.Errorf("couldn't encode type of write %d: %w", i, err)
		}
		k := netKey{owner: w.Owner, typ: string(typ)}
		d, ok := deltas[k]
		if !ok {
			d = &netDelta{owner: w.Owner, typ: w.Type}
			deltas[k] = d
		}

		switch w.Operation {
		case Merge:
			d.merge, err = d.merge.Add(w.Amount)
		case Split:
			d.split, err = d.split.Add(w.Amount)
		default:
			return nil, fmt.Errorf("%w: write %d has operation %d", ErrUnknownOperation, i, w.Operation)
		}
		if err != nil {
			return nil, fmt.Errorf("couldn't net write %d for %s: %w", i, w.Owner, err)
		}
	}

	keys := make([]netKey, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := bytes.Compare(keys[i].owner[:], keys[j].owner[:]); c != 0 {
			return c < 0
		}
		return keys[i].typ < keys[j].typ
	})

	txs := make([]*SettleTx, 0, len(keys))
	for _, k := range keys {
		d := deltas[k]
		tx := &SettleTx{Type: d.typ, Owner: d.owner}
		switch d.merge.Cmp(d.split) {
		case 0:
			continue
		case 1:
			tx.Merge, _ = d.merge.Sub(d.split)
		default:
			tx.Split, _ = d.split.Sub(d.merge)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
