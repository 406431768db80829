// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	versionKey     = "version"
	dbDirKey       = "db-dir"
	httpHostKey    = "http-host"
	httpPortKey    = "http-port"
	genesisFileKey = "genesis-file"
	logLevelKey    = "log-level"
	cacheSizeKey   = "cache-size"
	readOnlyKey    = "api-read-only"

	envPrefix = "settlevm"
)

// config is the node configuration after flags and environment are merged.
type config struct {
	dbDir       string
	httpHost    string
	httpPort    uint16
	genesisFile string
	logLevel    string
	cacheSize   int
	readOnly    bool
}

func (c *config) httpAddr() string {
	return fmt.Sprintf("%s:%d", c.httpHost, c.httpPort)
}

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("settlevm", flag.ContinueOnError)

	fs.Bool(versionKey, false, "If true, prints version and quit")
	fs.String(dbDirKey, "settlevm-db", "Directory of the node database")
	fs.String(httpHostKey, "127.0.0.1", "Address the API server listens on")
	fs.Uint(httpPortKey, 9650, "Port the API server listens on")
	fs.String(genesisFileKey, "", "Genesis TOML file, only read when the database is empty")
	fs.String(logLevelKey, "info", "Log level: crit, error, warn, info or debug")
	fs.Int(cacheSizeKey, 0, "Number of settlement records cached in memory, 0 for the default")
	fs.Bool(readOnlyKey, false, "If true, the API rejects checkpoints and config writes")

	return fs
}

// getViper returns the viper environment for the node binary. Every flag can
// also be set through SETTLEVM_<FLAG>, with dashes as underscores.
func getViper(args []string) (*viper.Viper, error) {
	v := viper.New()

	fs := pflag.NewFlagSet("settlevm", pflag.ContinueOnError)
	fs.AddGoFlagSet(buildFlagSet())
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v, nil
}

func getConfig(v *viper.Viper) (*config, error) {
	port := v.GetUint(httpPortKey)
	if port > 1<<16-1 {
		return nil, fmt.Errorf("invalid %s %d", httpPortKey, port)
	}
	c := &config{
		dbDir:       v.GetString(dbDirKey),
		httpHost:    v.GetString(httpHostKey),
		httpPort:    uint16(port),
		genesisFile: v.GetString(genesisFileKey),
		logLevel:    v.GetString(logLevelKey),
		cacheSize:   v.GetInt(cacheSizeKey),
		readOnly:    v.GetBool(readOnlyKey),
	}
	if c.dbDir == "" {
		return nil, fmt.Errorf("%s must be set", dbDirKey)
	}
	return c, nil
}

// exposesWrites reports whether mutating API methods are served beyond the
// loopback interface.
func (c *config) exposesWrites() bool {
	if c.readOnly {
		return false
	}
	if c.httpHost == "localhost" {
		return false
	}
	ip := net.ParseIP(c.httpHost)
	return ip == nil || !ip.IsLoopback()
}

// readGenesis returns the genesis file's contents, or nothing if no file is
// configured.
func readGenesis(c *config) ([]byte, error) {
	if c.genesisFile == "" {
		return nil, nil
	}
	return os.ReadFile(c.genesisFile)
}
