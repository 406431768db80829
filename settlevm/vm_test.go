// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/settlevm/accumulator"
	"github.com/ava-labs/settlevm/objects"
)

const testGenesis = `
epoch = 1

[[settings]]
name = "max_writes"
value = 64
`

var (
	coin  = accumulator.BalanceType(objects.StructTag(objects.MustParseAddress("0xc0"), "coin", "COIN"))
	other = accumulator.BalanceType(objects.StructTag(objects.MustParseAddress("0xc0"), "other", "OTHER"))
	alice = objects.MustParseAddress("0xa11ce")
	bob   = objects.MustParseAddress("0xb0b")
)

func newTestVM(t *testing.T, db database.Database) *VM {
	t.Helper()
	vm := (&Factory{}).New()
	require.NoError(t, vm.Initialize(db, []byte(testGenesis), prometheus.NewRegistry()))
	return vm
}

func write(owner objects.Address, typ objects.TypeTag, op Operation, amount uint64) AccumulatorWrite {
	return AccumulatorWrite{Owner: owner, Type: typ, Operation: op, Amount: objects.NewU128(amount)}
}

func accumulatorValue(t *testing.T, vm *VM, typ objects.TypeTag, owner objects.Address) (uint64, bool) {
	t.Helper()
	v, ok, err := vm.Accumulator(typ, owner)
	require.NoError(t, err)
	require.Zero(t, v.Hi)
	return v.Lo, ok
}

// Assert that after initialization, the vm has the state we expect
func TestGenesis(t *testing.T) {
	assert := assert.New(t)
	vm := newTestVM(t, memdb.New())

	ok, err := vm.state.IsInitialized()
	assert.NoError(err)
	assert.True(ok)

	epoch, err := vm.Epoch()
	assert.NoError(err)
	assert.Equal(uint64(1), epoch)
	assert.False(vm.ConfigID().IsZero())
	assert.Equal(accumulator.RootAddress, vm.root.ID)

	// Genesis settings take effect after the genesis epoch.
	_, set, err := vm.ReadSetting("max_writes", 1)
	assert.NoError(err)
	assert.False(set)
	value, set, err := vm.ReadSetting("max_writes", 2)
	assert.NoError(err)
	assert.True(set)
	assert.Equal(uint64(64), value)

	_, err = vm.LastCheckpoint()
	assert.ErrorIs(err, ErrNoCheckpoint)
}

func TestBadGenesis(t *testing.T) {
	for name, genesis := range map[string]string{
		"unknown key":       "epochs = 3",
		"duplicate setting": "[[settings]]\nname = \"a\"\nvalue = 1\n[[settings]]\nname = \"a\"\nvalue = 2\n",
		"unnamed setting":   "[[settings]]\nvalue = 1\n",
		"not toml":          "epoch = = 1",
	} {
		t.Run(name, func(t *testing.T) {
			vm := (&Factory{}).New()
			err := vm.Initialize(memdb.New(), []byte(genesis), prometheus.NewRegistry())
			assert.ErrorIs(t, err, errBadGenesis)
		})
	}
}

func TestReloadKeepsState(t *testing.T) {
	require := require.New(t)
	db := memdb.New()
	vm := newTestVM(t, db)

	_, err := vm.ExecuteCheckpoint(&Checkpoint{
		Epoch:  2,
		Height: 10,
		Writes: []AccumulatorWrite{write(alice, coin, Merge, 40)},
	})
	require.NoError(err)

	reloaded := (&Factory{}).New()
	require.NoError(reloaded.Initialize(db, nil, prometheus.NewRegistry()))
	require.Equal(vm.ConfigID(), reloaded.ConfigID())

	epoch, err := reloaded.Epoch()
	require.NoError(err)
	require.Equal(uint64(2), epoch)
	value, ok := accumulatorValue(t, reloaded, coin, alice)
	require.True(ok)
	require.Equal(uint64(40), value)
	setting, _, err := reloaded.ReadSetting("max_writes", 2)
	require.NoError(err)
	require.Equal(uint64(64), setting)

	// The reloaded VM holds working capabilities.
	_, err = reloaded.ExecuteCheckpoint(&Checkpoint{
		Epoch:  2,
		Height: 11,
		Writes: []AccumulatorWrite{write(alice, coin, Split, 40)},
	})
	require.NoError(err)
	_, ok = accumulatorValue(t, reloaded, coin, alice)
	require.False(ok)
}

func TestExecuteCheckpoint(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, memdb.New())

	record, err := vm.ExecuteCheckpoint(&Checkpoint{
		Epoch:  1,
		Height: 5,
		Writes: []AccumulatorWrite{
			write(alice, coin, Merge, 100),
			write(bob, coin, Merge, 5),
			write(alice, coin, Split, 30),
			write(bob, coin, Split, 5),
			write(alice, other, Merge, 1),
		},
	})
	require.NoError(err)
	require.Equal(SettlementKey{Epoch: 1, Height: 5}, record.Key)
	require.Equal(uint32(5), record.Writes)
	require.Equal(uint32(2), record.Settled)
	require.NotEqual(ids.Empty, record.Digest)

	value, ok := accumulatorValue(t, vm, coin, alice)
	require.True(ok)
	require.Equal(uint64(70), value)
	value, ok = accumulatorValue(t, vm, other, alice)
	require.True(ok)
	require.Equal(uint64(1), value)
	_, ok = accumulatorValue(t, vm, coin, bob)
	require.False(ok)

	exists, types, err := vm.Owner(alice)
	require.NoError(err)
	require.True(exists)
	require.Equal(uint64(2), types)
	exists, _, err = vm.Owner(bob)
	require.NoError(err)
	require.False(exists)

	last, err := vm.LastCheckpoint()
	require.NoError(err)
	require.Equal(record, last)

	require.Equal(float64(2), testutil.ToFloat64(vm.metrics.created))
	require.Equal(float64(1), testutil.ToFloat64(vm.metrics.checkpoints))
	require.Equal(float64(2), testutil.ToFloat64(vm.metrics.txs.WithLabelValues("settle", "success")))
	require.Equal(float64(1), testutil.ToFloat64(vm.metrics.txs.WithLabelValues("settlement_prologue", "success")))
}

func TestCheckpointReplayAndRegression(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, memdb.New())

	cp := &Checkpoint{
		Epoch:  3,
		Height: 7,
		Writes: []AccumulatorWrite{write(alice, coin, Merge, 10)},
	}
	_, err := vm.ExecuteCheckpoint(cp)
	require.NoError(err)

	_, err = vm.ExecuteCheckpoint(cp)
	require.ErrorIs(err, ErrDuplicateSettlement)

	// A second settlement of the same checkpoint is distinct.
	cp.Idx = 1
	_, err = vm.ExecuteCheckpoint(cp)
	require.NoError(err)
	value, _ := accumulatorValue(t, vm, coin, alice)
	require.Equal(uint64(20), value)

	_, err = vm.ExecuteCheckpoint(&Checkpoint{Epoch: 2, Height: 8})
	require.ErrorIs(err, ErrEpochRegression)

	epoch, err := vm.Epoch()
	require.NoError(err)
	require.Equal(uint64(3), epoch)
	require.Equal(float64(3), testutil.ToFloat64(vm.metrics.currentEpoch))
}

func TestFailedCheckpointWritesNothing(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, memdb.New())

	_, err := vm.ExecuteCheckpoint(&Checkpoint{
		Epoch:  1,
		Height: 1,
		Writes: []AccumulatorWrite{write(alice, coin, Merge, 10)},
	})
	require.NoError(err)

	// bob settles first and succeeds; alice then underflows.
	_, err = vm.ExecuteCheckpoint(&Checkpoint{
		Epoch:  4,
		Height: 2,
		Writes: []AccumulatorWrite{
			write(bob, coin, Merge, 5),
			write(alice, coin, Split, 20),
		},
	})
	require.ErrorIs(err, accumulator.ErrUnderflow)

	_, ok := accumulatorValue(t, vm, coin, bob)
	require.False(ok)
	value, _ := accumulatorValue(t, vm, coin, alice)
	require.Equal(uint64(10), value)

	epoch, err := vm.Epoch()
	require.NoError(err)
	require.Equal(uint64(1), epoch)

	settled, err := vm.state.HasSettlement(SettlementKey{Epoch: 4, Height: 2})
	require.NoError(err)
	require.False(settled)
	last, err := vm.LastCheckpoint()
	require.NoError(err)
	require.Equal(uint64(1), last.Key.Height)

	require.Equal(float64(1), testutil.ToFloat64(vm.metrics.created))
	require.Equal(float64(1), testutil.ToFloat64(vm.metrics.txs.WithLabelValues("settle", "failure")))
}

func TestExecuteConfigTxs(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, memdb.New())

	first, err := vm.Execute(&SetConfigTx{Name: "fee", Value: 3})
	require.NoError(err)
	second, err := vm.Execute(&SetConfigTx{Name: "fee", Value: 3})
	require.NoError(err)
	require.NotEqual(first, second)

	_, err = vm.Execute(&SetConfigTx{Name: "fee", Value: 4})
	require.NoError(err)

	pending, ok, err := vm.PendingSetting("fee")
	require.NoError(err)
	require.True(ok)
	require.Equal(uint64(4), pending)
	_, ok, err = vm.ReadSetting("fee", 1)
	require.NoError(err)
	require.False(ok)
	value, _, err := vm.ReadSetting("fee", 2)
	require.NoError(err)
	require.Equal(uint64(4), value)

	// Move to epoch 2 and schedule removal of max_writes.
	_, err = vm.ExecuteCheckpoint(&Checkpoint{Epoch: 2})
	require.NoError(err)
	_, err = vm.Execute(&RemoveConfigTx{Name: "max_writes"})
	require.NoError(err)

	value, ok, err = vm.ReadSetting("max_writes", 2)
	require.NoError(err)
	require.True(ok)
	require.Equal(uint64(64), value)
	_, ok, err = vm.ReadSetting("max_writes", 3)
	require.NoError(err)
	require.False(ok)
}

func TestDirectSettleTx(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, memdb.New())

	_, err := vm.Execute(&SettleTx{Type: coin, Owner: alice, Split: objects.NewU128(1)})
	require.ErrorIs(err, accumulator.ErrInvalidSplitAmount)

	_, err = vm.Execute(&SettleTx{Type: coin, Owner: alice, Merge: objects.NewU128(9)})
	require.NoError(err)
	value, ok := accumulatorValue(t, vm, coin, alice)
	require.True(ok)
	require.Equal(uint64(9), value)
}

func TestUninitializedVM(t *testing.T) {
	assert := assert.New(t)
	vm := (&Factory{}).New()

	_, err := vm.Execute(&SetConfigTx{Name: "fee", Value: 1})
	assert.ErrorIs(err, ErrNotInitialized)
	_, err = vm.ExecuteCheckpoint(&Checkpoint{})
	assert.ErrorIs(err, ErrNotInitialized)
	_, err = vm.Epoch()
	assert.ErrorIs(err, ErrNotInitialized)
	assert.NoError(vm.Shutdown())
}
