// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ava-labs/avalanchego/database/leveldb"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/settlevm/settlevm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	v, err := getViper(os.Args[1:])
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	// Print version and exit
	if v.GetBool(versionKey) {
		fmt.Printf("%s@%s %s\n", settlevm.Name, settlevm.Version, settlevm.ID)
		os.Exit(0)
	}
	c, err := getConfig(v)
	if err != nil {
		fmt.Printf("invalid config: %s\n", err)
		os.Exit(1)
	}

	lvl, err := log.LvlFromString(c.logLevel)
	if err != nil {
		fmt.Printf("invalid %s: %s\n", logLevelKey, err)
		os.Exit(1)
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat())))

	if err := run(c); err != nil {
		log.Error("node stopped", "err", err)
		os.Exit(1)
	}
}

func run(c *config) error {
	genesisBytes, err := readGenesis(c)
	if err != nil {
		return fmt.Errorf("couldn't read genesis: %w", err)
	}

	db, err := leveldb.New(c.dbDir, nil, logging.NoLog{})
	if err != nil {
		return fmt.Errorf("couldn't open database at %s: %w", c.dbDir, err)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	vm := (&settlevm.Factory{
		CheckpointCacheSize: c.cacheSize,
		ReadOnlyAPI:         c.readOnly,
	}).New()
	if err := vm.Initialize(db, genesisBytes, registry); err != nil {
		return err
	}
	defer vm.Shutdown()

	handlers, err := vm.CreateHandlers()
	if err != nil {
		return err
	}
	staticHandlers, err := settlevm.CreateStaticHandlers()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	for ext, h := range handlers {
		mux.Handle("/ext/"+settlevm.Name+ext, h)
	}
	for ext, h := range staticHandlers {
		mux.Handle("/ext/"+settlevm.Name+"/static"+ext, h)
	}
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if c.exposesWrites() {
		log.Warn("API accepts system transactions on a non-loopback address", "host", c.httpHost)
	}

	server := &http.Server{Addr: c.httpAddr(), Handler: mux}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		log.Info("serving API", "addr", server.Addr, "readOnly", c.readOnly)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
