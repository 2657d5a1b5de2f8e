// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainsync adapts the engine to whatever full node or header
// source feeds it blocks, the same role blockManager plays for btcd's
// chain. It never decides what blocks exist or when a reorg happens; it
// only translates those decisions into engine calls.
package chainsync

import (
	"github.com/btcsuite/btcd/wire"
)

// Engine is the subset of the engine façade the block consumer drives.
// Defined here, rather than imported from package engine directly, so a
// test double can stand in for it without constructing a real cache.
type Engine interface {
	ProcessBlock(block *wire.MsgBlock, height uint32) error
	Rollback(height uint32) error
}

// Consumer adapts a chain source's notifications into engine writes.
type Consumer struct {
	engine Engine
}

// NewConsumer returns a Consumer driving engine.
func NewConsumer(engine Engine) *Consumer {
	return &Consumer{engine: engine}
}

// WantsSpentUTXOs always returns false: the engine re-derives spent values
// from its own cached producing transactions rather than needing the chain
// source to supply them.
func (c *Consumer) WantsSpentUTXOs() bool {
	return false
}

// OnBlock delegates to the engine's block-processing write path.
func (c *Consumer) OnBlock(block *wire.MsgBlock, height uint32) error {
	return c.engine.ProcessBlock(block, height)
}

// OnBlockDisconnected undoes exactly the current tip block, leaving the
// engine's cache height at newTip. A multi-block reorg is handled by the
// chain source calling this once per disconnected block, in tip-to-fork
// order, before calling OnBlock for each block of the new best chain.
func (c *Consumer) OnBlockDisconnected(newTip uint32) error {
	return c.engine.Rollback(newTip)
}
