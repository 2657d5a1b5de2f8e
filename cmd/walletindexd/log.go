// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/toole-brendan/walletindex/cache"
	"github.com/toole-brendan/walletindex/chainsync"
	"github.com/toole-brendan/walletindex/engine"
	"github.com/toole-brendan/walletindex/rpc"
	"github.com/toole-brendan/walletindex/walletstore"
)

// logWriter implements an io.Writer that outputs to both standard output
// and the rotating log file.
type logWriter struct {
	rotator *rotator.Rotator
}

func (w logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	return w.rotator.Write(p)
}

var (
	backendLog *btclog.Backend
	logRotator *rotator.Rotator
)

var subsystemLoggers = make(map[string]btclog.Logger)

// initLogRotator opens a rotating log file at logFile and routes the
// backend's output through it alongside stdout.
func initLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log rotator: %v\n", err)
		os.Exit(1)
	}
	logRotator = r
	backendLog = btclog.NewBackend(logWriter{rotator: r})
}

func initLogging(logFile, level string) {
	initLogRotator(logFile)

	for name, setter := range map[string]func(btclog.Logger){
		"CACH": cache.UseLogger,
		"ENGN": engine.UseLogger,
		"SYNC": chainsync.UseLogger,
		"RPCS": rpc.UseLogger,
		"STOR": walletstore.UseLogger,
	} {
		logger := backendLog.Logger(name)
		logger.SetLevel(parseLevel(level))
		subsystemLoggers[name] = logger
		setter(logger)
	}
}

func parseLevel(level string) btclog.Level {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return btclog.LevelInfo
	}
	return lvl
}
