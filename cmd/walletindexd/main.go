// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command walletindexd runs the watch-only address cache as a standalone
// daemon: it rehydrates its durable store, serves the wallet-facing RPC
// surface, and drives the cache from whatever chain source is configured to
// push blocks at it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/toole-brendan/walletindex/chainsync"
	"github.com/toole-brendan/walletindex/engine"
	"github.com/toole-brendan/walletindex/rpc"
	"github.com/toole-brendan/walletindex/walletstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	initLogging(filepath.Join(cfg.LogDir, defaultLogFilename), cfg.DebugLevel)
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	store, err := walletstore.OpenLevelStore(filepath.Join(cfg.DataDir, "walletindex.ldb"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	e, err := engine.New(store, cfg.GapLimit)
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}

	// consumer is the hook a full-node block-notification client attaches to
	// in a real deployment; wiring that client is outside this engine's
	// scope. Locally, --blockreplayfile drives it instead.
	consumer := chainsync.NewConsumer(e)
	if cfg.BlockReplayFile != "" {
		if err := replayBlocks(cfg.BlockReplayFile, consumer); err != nil {
			return fmt.Errorf("replaying blocks: %w", err)
		}
	}

	server := rpc.NewServer(e, nopChainSource{}, &chaincfg.MainNetParams)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	subsystemLoggers["RPCS"].Infof("walletindexd ready, listening on %s", cfg.RPCListen)
	return server.ListenAndServe(ctx, cfg.RPCListen)
}

// nopChainSource is the placeholder ChainSource wired in until a concrete
// full-node RPC client is configured. The registered
// blockchain.headers.get_roots and blockchain.transaction.find_out
// commands reach it and get back a "no chain source configured" error.
type nopChainSource struct{}

func (nopChainSource) GetRoots() ([]string, error) {
	return nil, fmt.Errorf("no chain source configured")
}

func (nopChainSource) FindTxOut(_ chainhash.Hash, _ uint32) (*wire.TxOut, error) {
	return nil, fmt.Errorf("no chain source configured")
}
