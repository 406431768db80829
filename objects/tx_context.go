// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objects

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

// SystemAddress is the only sender allowed to run settlement and genesis.
var SystemAddress = ZeroAddress

// TxContext carries the ambient values of the executing transaction.
type TxContext struct {
	sender  Address
	epoch   uint64
	digest  ids.ID
	created uint64
}

// NewTxContext returns the context of a transaction sent by [sender] during
// [epoch] whose digest is [digest].
func NewTxContext(sender Address, epoch uint64, digest ids.ID) *TxContext {
	return &TxContext{
		sender: sender,
		epoch:  epoch,
		digest: digest,
	}
}

// Sender returns the transaction sender.
func (c *TxContext) Sender() Address { return c.sender }

// Epoch returns the epoch the transaction executes in.
func (c *TxContext) Epoch() uint64 { return c.epoch }

// Digest returns the transaction digest.
func (c *TxContext) Digest() ids.ID { return c.digest }

// IDsCreated returns the number of ids minted so far.
func (c *TxContext) IDsCreated() uint64 { return c.created }

// FreshID mints a new object id unique to this transaction and call order.
func (c *TxContext) FreshID() Address {
	p := wrappers.Packer{MaxSize: len(c.digest) + wrappers.LongLen}
	p.PackFixedBytes(c.digest[:])
	p.PackLong(c.created)
	c.created++
	return Address(hashing.ComputeHash256Array(p.Bytes))
}
