// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	IsInitializedKey byte = iota
	ConfigIDKey
	EpochKey
	TxCountKey
	LastCheckpointKey
)

var (
	isInitializedKey  = []byte{IsInitializedKey}
	configIDKey       = []byte{ConfigIDKey}
	epochKey          = []byte{EpochKey}
	txCountKey        = []byte{TxCountKey}
	lastCheckpointKey = []byte{LastCheckpointKey}

	_ SingletonState = (*singletonState)(nil)
)

// SingletonState holds the VM's scalar bookkeeping: whether genesis ran, the
// id of the protocol config, the current epoch, the number of executed
// transactions and the key of the last settled checkpoint.
type SingletonState interface {
	IsInitialized() (bool, error)
	SetInitialized() error

	GetConfigID() (ids.ID, error)
	SetConfigID(ids.ID) error

	GetEpoch() (uint64, error)
	SetEpoch(uint64) error

	GetTxCount() (uint64, error)
	SetTxCount(uint64) error

	GetLastCheckpoint() ([]byte, error)
	SetLastCheckpoint([]byte) error
}

type singletonState struct {
	singletonDB database.Database
}

func NewSingletonState(db database.Database) SingletonState {
	return &singletonState{
		singletonDB: db,
	}
}

func (s *singletonState) IsInitialized() (bool, error) {
	return s.singletonDB.Has(isInitializedKey)
}

func (s *singletonState) SetInitialized() error {
	return s.singletonDB.Put(isInitializedKey, nil)
}

func (s *singletonState) GetConfigID() (ids.ID, error) {
	b, err := s.singletonDB.Get(configIDKey)
	if err != nil {
		return ids.Empty, err
	}
	return ids.ToID(b)
}

func (s *singletonState) SetConfigID(id ids.ID) error {
	return s.singletonDB.Put(configIDKey, id[:])
}

// GetEpoch returns 0 until the first epoch is recorded.
func (s *singletonState) GetEpoch() (uint64, error) {
	return s.getLong(epochKey)
}

func (s *singletonState) SetEpoch(epoch uint64) error {
	return s.putLong(epochKey, epoch)
}

func (s *singletonState) GetTxCount() (uint64, error) {
	return s.getLong(txCountKey)
}

func (s *singletonState) SetTxCount(n uint64) error {
	return s.putLong(txCountKey, n)
}

// GetLastCheckpoint returns database.ErrNotFound before the first checkpoint
// settles.
func (s *singletonState) GetLastCheckpoint() ([]byte, error) {
	return s.singletonDB.Get(lastCheckpointKey)
}

func (s *singletonState) SetLastCheckpoint(key []byte) error {
	return s.singletonDB.Put(lastCheckpointKey, key)
}

func (s *singletonState) getLong(key []byte) (uint64, error) {
	b, err := s.singletonDB.Get(key)
	if err == database.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	p := wrappers.Packer{Bytes: b}
	v := p.UnpackLong()
	return v, p.Err
}

func (s *singletonState) putLong(key []byte, v uint64) error {
	p := wrappers.Packer{MaxSize: wrappers.LongLen}
	p.PackLong(v)
	if p.Err != nil {
		return p.Err
	}
	return s.singletonDB.Put(key, p.Bytes)
}
