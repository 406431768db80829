// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/prometheus/client_golang/prometheus"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/settlevm/accumulator"
	"github.com/ava-labs/settlevm/epochconfig"
	"github.com/ava-labs/settlevm/objects"
)

const (
	Name = "settlevm"
)

var (
	Version = "v0.1.0"

	ErrNotInitialized      = errors.New("vm not initialized")
	ErrDuplicateSettlement = errors.New("checkpoint already settled")
	ErrEpochRegression     = errors.New("checkpoint epoch precedes the current epoch")
	ErrNoCheckpoint        = errors.New("no checkpoint settled yet")
	ErrReadOnlyAPI         = errors.New("api is read only")
)

// ProtocolCap is the write capability of the protocol config. The VM holds
// the only instance.
type ProtocolCap struct {
	Issued bool `serialize:"true"`
}

// TypeTag implements objects.Typed.
func (ProtocolCap) TypeTag() objects.TypeTag {
	return objects.StructTag(objects.FrameworkAddress, Name, "ProtocolCap")
}

// VM executes system transactions against the accumulator root and the
// protocol config. Every transaction, and every checkpoint settlement as a
// whole, either commits all of its writes or none of them.
type VM struct {
	lock sync.RWMutex

	cacheSize   int
	readOnlyAPI bool
	state       State
	metrics     *metrics

	root        *accumulator.Root
	sysCap      *accumulator.SystemCap
	config      *epochconfig.Config[ProtocolCap]
	protocolCap *ProtocolCap
}

// Initialize this vm.
// [db] is the node's database. When it is empty the chain is created from
// [genesisBytes], a TOML Genesis document; otherwise the existing chain is
// reloaded and [genesisBytes] is ignored.
// Metrics are registered with [registerer].
func (vm *VM) Initialize(
	db database.Database,
	genesisBytes []byte,
	registerer prometheus.Registerer,
) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	log.Info("initializing settle VM", "version", Version)

	m, err := newMetrics(registerer)
	if err != nil {
		return fmt.Errorf("couldn't register metrics: %w", err)
	}
	vm.metrics = m
	vm.state = NewState(db, vm.cacheSize)

	initialized, err := vm.state.IsInitialized()
	if err != nil {
		return err
	}
	if initialized {
		err = vm.load()
	} else {
		err = vm.initGenesis(genesisBytes)
	}
	if err != nil {
		vm.state.Abort()
		return err
	}

	epoch, err := vm.state.GetEpoch()
	if err != nil {
		return err
	}
	vm.metrics.currentEpoch.Set(float64(epoch))
	log.Info("settle VM ready", "epoch", epoch, "config", vm.config.ID)
	return nil
}

func (vm *VM) initGenesis(genesisBytes []byte) error {
	genesis, err := ParseGenesis(genesisBytes)
	if err != nil {
		return err
	}
	store := vm.state.Objects()
	ctx := objects.NewTxContext(objects.SystemAddress, genesis.Epoch, hashing.ComputeHash256Array(genesisBytes))

	root, sysCap, err := accumulator.Create(store, ctx)
	if err != nil {
		return fmt.Errorf("couldn't create accumulator root: %w", err)
	}
	protocolCap := &ProtocolCap{Issued: true}
	config, err := epochconfig.New(store, protocolCap, ctx)
	if err != nil {
		return fmt.Errorf("couldn't create protocol config: %w", err)
	}
	for _, s := range genesis.Settings {
		if _, _, err := epochconfig.AddForNextEpoch(store, config, protocolCap, s.Name, s.Value, ctx); err != nil {
			return fmt.Errorf("couldn't apply genesis setting %q: %w", s.Name, err)
		}
	}

	if err := vm.state.SetConfigID(config.ID.ID()); err != nil {
		return err
	}
	if err := vm.state.SetEpoch(genesis.Epoch); err != nil {
		return err
	}
	if err := vm.state.SetInitialized(); err != nil {
		return fmt.Errorf("error while setting db to initialized: %w", err)
	}
	if err := vm.state.Commit(); err != nil {
		return err
	}

	vm.root, vm.sysCap = root, sysCap
	vm.config, vm.protocolCap = config, protocolCap
	log.Info("created genesis", "root", root.ID, "settings", len(genesis.Settings))
	return nil
}

func (vm *VM) load() error {
	store := vm.state.Objects()
	root, sysCap, err := accumulator.Open(store)
	if err != nil {
		return err
	}
	configID, err := vm.state.GetConfigID()
	if err != nil {
		return fmt.Errorf("couldn't get protocol config id: %w", err)
	}
	config, err := epochconfig.Load[ProtocolCap](store, objects.AddressFromID(configID))
	if err != nil {
		return err
	}

	vm.root, vm.sysCap = root, sysCap
	vm.config, vm.protocolCap = config, &ProtocolCap{Issued: true}
	return nil
}

// execute runs [tx] against the uncommitted state. The caller commits or
// aborts.
func (vm *VM) execute(tx Tx, epoch uint64) (*execContext, ids.ID, error) {
	seq, err := vm.state.GetTxCount()
	if err != nil {
		return nil, ids.Empty, err
	}
	digest, err := txDigest(tx, epoch, seq)
	if err != nil {
		return nil, ids.Empty, fmt.Errorf("couldn't compute %s digest: %w", tx.Kind(), err)
	}

	ec := &execContext{
		vm: vm,
		tx: objects.NewTxContext(objects.SystemAddress, epoch, digest),
	}
	err = tx.execute(ec)
	vm.metrics.observeTx(tx.Kind(), err)
	if err != nil {
		return nil, digest, fmt.Errorf("%s %s failed: %w", tx.Kind(), digest, err)
	}
	return ec, digest, vm.state.SetTxCount(seq + 1)
}

// Execute runs [tx] in the current epoch and commits it. On failure nothing is
// written.
func (vm *VM) Execute(tx Tx) (ids.ID, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state == nil {
		return ids.Empty, ErrNotInitialized
	}
	epoch, err := vm.state.GetEpoch()
	if err != nil {
		return ids.Empty, err
	}

	ec, digest, err := vm.execute(tx, epoch)
	if err == nil {
		err = vm.state.Commit()
	}
	if err != nil {
		vm.state.Abort()
		log.Debug("aborted transaction", "kind", tx.Kind(), "err", err)
		return ids.Empty, err
	}
	vm.metrics.observeOutcomes(ec.outcomes)
	return digest, nil
}

// ExecuteCheckpoint nets the writes of [cp] and settles them as one
// transaction: a prologue followed by one settlement per (owner, type) whose
// writes do not cancel out. A checkpoint in a later epoch advances the epoch.
func (vm *VM) ExecuteCheckpoint(cp *Checkpoint) (*SettlementRecord, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state == nil {
		return nil, ErrNotInitialized
	}
	epoch, err := vm.state.GetEpoch()
	if err != nil {
		return nil, err
	}
	if cp.Epoch < epoch {
		return nil, fmt.Errorf("%w: checkpoint in epoch %d, current epoch %d", ErrEpochRegression, cp.Epoch, epoch)
	}
	key := cp.Key()
	settled, err := vm.state.HasSettlement(key)
	if err != nil {
		return nil, err
	}
	if settled {
		return nil, fmt.Errorf("%w: epoch %d height %d idx %d", ErrDuplicateSettlement, key.Epoch, key.Height, key.Idx)
	}
	settles, err := cp.Net()
	if err != nil {
		return nil, err
	}

	record, outcomes, err := vm.settle(cp, epoch, settles)
	if err == nil {
		err = vm.state.Commit()
	}
	if err != nil {
		vm.state.Abort()
		log.Warn("aborted checkpoint settlement", "epoch", key.Epoch, "height", key.Height, "idx", key.Idx, "err", err)
		return nil, err
	}

	vm.metrics.observeOutcomes(outcomes)
	vm.metrics.checkpoints.Inc()
	vm.metrics.currentEpoch.Set(float64(cp.Epoch))
	log.Info("settled checkpoint",
		"epoch", key.Epoch,
		"height", key.Height,
		"idx", key.Idx,
		"writes", record.Writes,
		"settled", record.Settled,
	)
	return record, nil
}

func (vm *VM) settle(cp *Checkpoint, epoch uint64, settles []*SettleTx) (*SettlementRecord, []accumulator.Outcome, error) {
	if cp.Epoch > epoch {
		if err := vm.state.SetEpoch(cp.Epoch); err != nil {
			return nil, nil, err
		}
		log.Info("advanced epoch", "from", epoch, "to", cp.Epoch)
	}

	prologue := &SettlementPrologueTx{
		Epoch:            cp.Epoch,
		CheckpointHeight: cp.Height,
		Idx:              cp.Idx,
	}
	_, digest, err := vm.execute(prologue, cp.Epoch)
	if err != nil {
		return nil, nil, err
	}

	var outcomes []accumulator.Outcome
	for _, tx := range settles {
		ec, _, err := vm.execute(tx, cp.Epoch)
		if err != nil {
			return nil, nil, err
		}
		outcomes = append(outcomes, ec.outcomes...)
	}

	record := &SettlementRecord{
		Key:     cp.Key(),
		Digest:  digest,
		Settled: uint32(len(settles)),
		Writes:  uint32(len(cp.Writes)),
	}
	if err := vm.state.PutSettlement(record); err != nil {
		return nil, nil, err
	}
	if err := vm.state.SetLastCheckpoint(MarshalSettlementKey(record.Key)); err != nil {
		return nil, nil, err
	}
	return record, outcomes, nil
}

// Epoch returns the current epoch.
func (vm *VM) Epoch() (uint64, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.state == nil {
		return 0, ErrNotInitialized
	}
	return vm.state.GetEpoch()
}

// Accumulator returns the T accumulator of [owner], if it exists.
func (vm *VM) Accumulator(t objects.TypeTag, owner objects.Address) (objects.U128, bool, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.state == nil {
		return objects.U128{}, false, ErrNotInitialized
	}
	// Settlement never leaves a zero accumulator behind.
	value, err := vm.root.Balance(t, owner)
	return value, err == nil && !value.IsZero(), err
}

// FieldType returns the type of the value stored in the field at [addr].
func (vm *VM) FieldType(addr objects.Address) (objects.TypeTag, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.state == nil {
		return objects.TypeTag{}, ErrNotInitialized
	}
	return vm.state.Objects().ValueType(addr)
}

// Owner reports whether [owner] has any accumulator and how many types it
// holds.
func (vm *VM) Owner(owner objects.Address) (bool, uint64, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.state == nil {
		return false, 0, ErrNotInitialized
	}
	n, err := vm.root.OwnerTypes(owner)
	return n > 0, n, err
}

// ReadSetting returns the protocol setting [name] in effect during [epoch].
func (vm *VM) ReadSetting(name string, epoch uint64) (uint64, bool, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.state == nil {
		return 0, false, ErrNotInitialized
	}
	return epochconfig.ReadSetting[string, uint64](vm.state.Objects(), vm.config.ID, name, epoch)
}

// PendingSetting returns the value most recently written to [name], which is
// the one the next epoch will use unless it is written again.
func (vm *VM) PendingSetting(name string) (uint64, bool, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.state == nil {
		return 0, false, ErrNotInitialized
	}
	return epochconfig.ReadSettingForNextEpoch[ProtocolCap, string, uint64](vm.state.Objects(), vm.config, name)
}

// LastCheckpoint returns the record of the most recently settled checkpoint.
func (vm *VM) LastCheckpoint() (*SettlementRecord, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.state == nil {
		return nil, ErrNotInitialized
	}
	keyBytes, err := vm.state.GetLastCheckpoint()
	if err == database.ErrNotFound {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, err
	}
	key, err := UnmarshalSettlementKey(keyBytes)
	if err != nil {
		return nil, err
	}
	return vm.state.GetSettlement(key)
}

// ConfigID returns the address of the protocol config.
func (vm *VM) ConfigID() objects.Address {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.config == nil {
		return objects.ZeroAddress
	}
	return vm.config.ID
}

// Shutdown closes the VM's state.
func (vm *VM) Shutdown() error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state == nil {
		return nil
	}
	return vm.state.Close()
}
