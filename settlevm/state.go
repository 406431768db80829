// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"

	"github.com/ava-labs/settlevm/dynamicfield"
)

var (
	// Each partition of the base database gets its own prefix.
	singletonStatePrefix  = []byte("singleton")
	checkpointStatePrefix = []byte("checkpoint")
	objectStatePrefix     = []byte("objects")

	_ State = &state{}
)

// State groups the VM's persisted partitions over a single versioned
// database. Nothing reaches the underlying database until Commit; Abort drops
// every write made since the last Commit.
type State interface {
	SingletonState
	CheckpointState

	// Objects is the field store holding the accumulator root, the protocol
	// config and everything attached to them.
	Objects() *dynamicfield.Store

	Commit() error
	Abort()
	Close() error
}

type state struct {
	SingletonState
	CheckpointState

	objects *dynamicfield.Store
	baseDB  *versiondb.Database
}

// NewState wraps [db] in a versioned database and partitions it.
func NewState(db database.Database, cacheSize int) State {
	baseDB := versiondb.New(db)

	singletonDB := prefixdb.New(singletonStatePrefix, baseDB)
	checkpointDB := prefixdb.New(checkpointStatePrefix, baseDB)
	objectDB := prefixdb.New(objectStatePrefix, baseDB)

	return &state{
		SingletonState:  NewSingletonState(singletonDB),
		CheckpointState: NewCheckpointState(checkpointDB, cacheSize),
		objects:         dynamicfield.New(objectDB),
		baseDB:          baseDB,
	}
}

func (s *state) Objects() *dynamicfield.Store { return s.objects }

// Commit flushes pending writes to the underlying database.
func (s *state) Commit() error {
	return s.baseDB.Commit()
}

// Abort discards pending writes along with any cached records they produced.
func (s *state) Abort() {
	s.baseDB.Abort()
	s.ClearCache()
}

// Close closes the underlying database.
func (s *state) Close() error {
	return s.baseDB.Close()
}
