// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/toole-brendan/walletindex/cache"
)

const (
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "walletindexd.log"
	defaultRPCListen      = "127.0.0.1:9337"
	defaultConfigFilename = "walletindexd.conf"
)

var (
	defaultHomeDir = btcdHomeDir()
	defaultDataDir = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir  = filepath.Join(defaultHomeDir, defaultLogDirname)
	defaultConfig  = filepath.Join(defaultHomeDir, defaultConfigFilename)
)

func btcdHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".walletindexd")
}

// config holds every command-line and config-file option walletindexd
// accepts, the same role btcd's config struct plays for the full node.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"Directory to store the address cache database"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	RPCListen  string `long:"rpclisten" description:"Address and port to listen for RPC connections"`
	GapLimit   uint32 `long:"gaplimit" description:"Number of unused scripts kept derived beyond the highest used index"`
	DebugLevel string `long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`

	// BlockReplayFile points at a newline-delimited height:hexblock file
	// replayed into the cache at startup. There is no other in-repo path
	// that ever calls OnBlock/OnBlockDisconnected: a real deployment
	// attaches chainsync.Consumer to a full node's block-notification
	// client instead of setting this.
	BlockReplayFile string `long:"blockreplayfile" description:"Path to a newline-delimited height:hexblock file replayed into the cache at startup, for local testing without a full node attached"`
}

// loadConfig resolves options in the same precedence order btcd's own
// config.go uses: command-line flags win, the config file (defaultConfig
// unless overridden with -C) fills whatever flags left unset, and the
// struct literal below supplies whatever neither set.
func loadConfig() (*config, []string, error) {
	cfg := config{
		ConfigFile: defaultConfig,
		DataDir:    defaultDataDir,
		LogDir:     defaultLogDir,
		RPCListen:  defaultRPCListen,
		GapLimit:   cache.DefaultGapLimit,
		DebugLevel: "info",
	}

	// First pass: CLI only, just to learn where the config file lives.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.Parse(); err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}
	cfg.ConfigFile = preCfg.ConfigFile

	if _, statErr := os.Stat(cfg.ConfigFile); statErr == nil {
		iniParser := flags.NewIniParser(flags.NewParser(&cfg, flags.Default))
		if err := iniParser.ParseFile(cfg.ConfigFile); err != nil {
			return nil, nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Second pass: re-apply the CLI on top of the config file, so an
	// explicit flag always wins over whatever the file set.
	parser := flags.NewParser(&cfg, flags.Default)
	remaining, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}

	if cfg.DataDir == "" {
		return nil, nil, fmt.Errorf("datadir must not be empty")
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	return &cfg, remaining, nil
}
