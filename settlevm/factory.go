// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"github.com/ava-labs/avalanchego/ids"
)

// ID is a unique identifier for this VM
var (
	ID = ids.ID{'s', 'e', 't', 't', 'l', 'e', 'v', 'm'}
)

// Factory builds VMs that share node level configuration.
type Factory struct {
	// CheckpointCacheSize bounds the number of settlement records kept in
	// memory. Zero selects the default.
	CheckpointCacheSize int

	// ReadOnlyAPI stops the JSON-RPC service from accepting checkpoints and
	// config writes. Transactions run as the system sender, so a node whose
	// API is reachable by untrusted callers should set it.
	ReadOnlyAPI bool
}

// New returns an uninitialized VM.
func (f *Factory) New() *VM {
	return &VM{
		cacheSize:   f.CheckpointCacheSize,
		readOnlyAPI: f.ReadOnlyAPI,
	}
}
