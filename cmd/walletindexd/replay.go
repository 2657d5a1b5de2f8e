// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/wire"

	"github.com/toole-brendan/walletindex/chainsync"
)

// replayBlocks is the in-repo entry point for local testing without a full
// node attached: it reads newline-delimited "height:hexblock" records from
// path and feeds each one through consumer in order, exactly the path a real
// chain source would drive by calling OnBlock directly. A production
// deployment wires consumer to a real block-notification client instead and
// never calls this.
func replayBlocks(path string, consumer *chainsync.Consumer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening block replay file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		heightStr, blockHex, ok := strings.Cut(line, ":")
		if !ok {
			return fmt.Errorf("malformed replay line %q: want height:hexblock", line)
		}
		height, err := strconv.ParseUint(heightStr, 10, 32)
		if err != nil {
			return fmt.Errorf("malformed height in replay line %q: %w", line, err)
		}
		raw, err := hex.DecodeString(blockHex)
		if err != nil {
			return fmt.Errorf("malformed block hex at height %d: %w", height, err)
		}

		var block wire.MsgBlock
		if err := block.Deserialize(bytes.NewReader(raw)); err != nil {
			return fmt.Errorf("deserializing block at height %d: %w", height, err)
		}
		if err := consumer.OnBlock(&block, uint32(height)); err != nil {
			return fmt.Errorf("processing block at height %d: %w", height, err)
		}

		subsystemLoggers["SYNC"].Debugf("replayed block at height %d", height)
	}

	return scanner.Err()
}
