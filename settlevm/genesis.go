// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	errBadGenesis = errors.New("invalid genesis")
)

// Genesis is the TOML document a chain starts from:
//
//	epoch = 0
//
//	[[settings]]
//	name = "max_writes_per_checkpoint"
//	value = 1024
//
// Settings are written during the genesis epoch, so they are in effect from
// the following epoch on.
type Genesis struct {
	Epoch    uint64           `toml:"epoch"`
	Settings []GenesisSetting `toml:"settings"`
}

type GenesisSetting struct {
	Name  string `toml:"name"`
	Value uint64 `toml:"value"`
}

// ParseGenesis decodes [genesisBytes]. Empty input is an empty genesis.
func ParseGenesis(genesisBytes []byte) (*Genesis, error) {
	g := &Genesis{}
	md, err := toml.Decode(string(genesisBytes), g)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errBadGenesis, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", errBadGenesis, strings.Join(keys, ", "))
	}

	seen := make(map[string]struct{}, len(g.Settings))
	for _, s := range g.Settings {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: setting without a name", errBadGenesis)
		}
		if _, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%w: setting %q appears twice", errBadGenesis, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return g, nil
}
