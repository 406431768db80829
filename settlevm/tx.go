// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"

	"github.com/ava-labs/settlevm/accumulator"
	"github.com/ava-labs/settlevm/epochconfig"
	"github.com/ava-labs/settlevm/objects"
)

var (
	_ Tx = &SettlementPrologueTx{}
	_ Tx = &SettleTx{}
	_ Tx = &SetConfigTx{}
	_ Tx = &RemoveConfigTx{}
)

// Tx is a system transaction the VM can execute.
type Tx interface {
	// Kind labels the transaction in logs and metrics.
	Kind() string

	execute(*execContext) error
}

// execContext is what a transaction sees while it runs.
type execContext struct {
	vm *VM
	tx *objects.TxContext

	outcomes []accumulator.Outcome
}

// txEnvelope is hashed to produce a transaction digest. Seq makes digests of
// otherwise identical transactions distinct, and so the object ids they mint.
type txEnvelope struct {
	Tx    Tx     `serialize:"true"`
	Epoch uint64 `serialize:"true"`
	Seq   uint64 `serialize:"true"`
}

func txDigest(tx Tx, epoch, seq uint64) (ids.ID, error) {
	bytes, err := Codec.Marshal(CodecVersion, &txEnvelope{Tx: tx, Epoch: epoch, Seq: seq})
	if err != nil {
		return ids.Empty, err
	}
	return ids.ID(hashing.ComputeHash256Array(bytes)), nil
}

// SettlementPrologueTx opens the settlement of a checkpoint.
type SettlementPrologueTx struct {
	Epoch            uint64 `serialize:"true" json:"epoch"`
	CheckpointHeight uint64 `serialize:"true" json:"checkpointHeight"`
	Idx              uint64 `serialize:"true" json:"idx"`
}

func (*SettlementPrologueTx) Kind() string { return "settlement_prologue" }

func (t *SettlementPrologueTx) execute(ec *execContext) error {
	return accumulator.SettlementPrologue(ec.vm.root, ec.vm.sysCap, ec.tx, t.Epoch, t.CheckpointHeight, t.Idx)
}

// SettleTx applies one netted delta to an accumulator.
type SettleTx struct {
	Type  objects.TypeTag `serialize:"true" json:"type"`
	Owner objects.Address `serialize:"true" json:"owner"`
	Merge objects.U128    `serialize:"true" json:"merge"`
	Split objects.U128    `serialize:"true" json:"split"`
}

func (*SettleTx) Kind() string { return "settle" }

func (t *SettleTx) execute(ec *execContext) error {
	outcome, err := accumulator.SettleU128(ec.vm.root, ec.vm.sysCap, t.Type, t.Owner, t.Merge, t.Split, ec.tx)
	if err != nil {
		return err
	}
	ec.outcomes = append(ec.outcomes, outcome)
	return nil
}

// SetConfigTx writes a protocol setting for the next epoch, replacing any
// value already written this epoch.
type SetConfigTx struct {
	Name  string `serialize:"true" json:"name"`
	Value uint64 `serialize:"true" json:"value"`
}

func (*SetConfigTx) Kind() string { return "set_config" }

func (t *SetConfigTx) execute(ec *execContext) error {
	return epochconfig.Entry(
		ec.vm.state.Objects(),
		ec.vm.config,
		ec.vm.protocolCap,
		t.Name,
		func() (uint64, error) { return t.Value, nil },
		ec.tx,
		func(v *uint64) error {
			*v = t.Value
			return nil
		},
	)
}

// RemoveConfigTx clears a protocol setting from the next epoch on.
type RemoveConfigTx struct {
	Name string `serialize:"true" json:"name"`
}

func (*RemoveConfigTx) Kind() string { return "remove_config" }

func (t *RemoveConfigTx) execute(ec *execContext) error {
	_, _, err := epochconfig.RemoveForNextEpoch[ProtocolCap, string, uint64](
		ec.vm.state.Objects(),
		ec.vm.config,
		ec.vm.protocolCap,
		t.Name,
		ec.tx,
	)
	return err
}
