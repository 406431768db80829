// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"encoding/binary"
	"errors"

	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	settlementKeySize = wrappers.LongLen * 3
)

var ErrInvalidSettlementKey = errors.New("invalid settlement key format")

// SettlementKey identifies one settlement transaction: the epoch and
// checkpoint height it settles, and its index within that checkpoint.
type SettlementKey struct {
	Epoch  uint64 `serialize:"true" json:"epoch"`
	Height uint64 `serialize:"true" json:"height"`
	Idx    uint64 `serialize:"true" json:"idx"`
}

// MarshalSettlementKey packs [k] big-endian so that keys sort by epoch, then
// height, then index.
func MarshalSettlementKey(k SettlementKey) []byte {
	raw := make([]byte, settlementKeySize)
	work := raw

	binary.BigEndian.PutUint64(work, k.Epoch)
	work = work[wrappers.LongLen:]
	binary.BigEndian.PutUint64(work, k.Height)
	work = work[wrappers.LongLen:]
	binary.BigEndian.PutUint64(work, k.Idx)
	return raw
}

func UnmarshalSettlementKey(raw []byte) (SettlementKey, error) {
	if len(raw) != settlementKeySize {
		return SettlementKey{}, ErrInvalidSettlementKey
	}
	var k SettlementKey
	work := raw

	k.Epoch = binary.BigEndian.Uint64(work)
	work = work[wrappers.LongLen:]

	k.Height = binary.BigEndian.Uint64(work)
	work = work[wrappers.LongLen:]

	k.Idx = binary.BigEndian.Uint64(work)
	return k, nil
}
