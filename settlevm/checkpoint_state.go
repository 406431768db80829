// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"errors"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
)

const (
	defaultCheckpointCacheSize = 8192
)

var (
	errSettlementWrongVersion = errors.New("wrong version")

	_ CheckpointState = &checkpointState{}
)

// SettlementRecord is persisted for every settled checkpoint.
type SettlementRecord struct {
	Key SettlementKey `serialize:"true" json:"key"`
	// Digest of the settlement's prologue transaction.
	Digest  ids.ID `serialize:"true" json:"digest"`
	Settled uint32 `serialize:"true" json:"settled"`
	Writes  uint32 `serialize:"true" json:"writes"`
}

type CheckpointState interface {
	GetSettlement(SettlementKey) (*SettlementRecord, error)
	HasSettlement(SettlementKey) (bool, error)
	PutSettlement(*SettlementRecord) error

	ClearCache()
}

type checkpointState struct {
	recordCache  cache.Cacher
	checkpointDB database.Database
}

func NewCheckpointState(db database.Database, cacheSize int) CheckpointState {
	if cacheSize <= 0 {
		cacheSize = defaultCheckpointCacheSize
	}
	return &checkpointState{
		recordCache:  &cache.LRU{Size: cacheSize},
		checkpointDB: db,
	}
}

// GetSettlement returns database.ErrNotFound for keys that never settled.
func (s *checkpointState) GetSettlement(key SettlementKey) (*SettlementRecord, error) {
	if cached, ok := s.recordCache.Get(key); ok {
		return cached.(*SettlementRecord), nil
	}

	recordBytes, err := s.checkpointDB.Get(MarshalSettlementKey(key))
	if err != nil {
		return nil, err
	}

	record := &SettlementRecord{}
	parsedVersion, err := Codec.Unmarshal(recordBytes, record)
	if err != nil {
		return nil, err
	}
	if parsedVersion != CodecVersion {
		return nil, errSettlementWrongVersion
	}

	s.recordCache.Put(key, record)
	return record, nil
}

func (s *checkpointState) HasSettlement(key SettlementKey) (bool, error) {
	if _, ok := s.recordCache.Get(key); ok {
		return true, nil
	}
	return s.checkpointDB.Has(MarshalSettlementKey(key))
}

func (s *checkpointState) PutSettlement(record *SettlementRecord) error {
	bytes, err := Codec.Marshal(CodecVersion, record)
	if err != nil {
		return err
	}

	s.recordCache.Put(record.Key, record)
	return s.checkpointDB.Put(MarshalSettlementKey(record.Key), bytes)
}

func (s *checkpointState) ClearCache() {
	s.recordCache.Flush()
}
