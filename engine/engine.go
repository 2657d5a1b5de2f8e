// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package engine wraps the inner cache behind a single read-write
// coordination primitive: exactly one writer may proceed at a time, and
// any number of readers may proceed concurrently when no writer holds the
// lock. This is the surface every adapter (RPC, block consumer) talks to.
package engine

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/toole-brendan/walletindex/cache"
	"github.com/toole-brendan/walletindex/merkleproof"
	"github.com/toole-brendan/walletindex/scripthash"
	"github.com/toole-brendan/walletindex/walletstore"
	"github.com/toole-brendan/walletindex/wallettypes"
)

// Engine is the thread-safe façade over the inner cache. The bulk load at
// startup happens inside New, before the façade is returned to callers, so
// it is never observed mid-rehydration.
type Engine struct {
	mu    sync.RWMutex
	inner *cache.Cache
}

// New constructs an Engine whose inner cache is rehydrated from store.
// gapLimit of zero selects cache.DefaultGapLimit.
func New(store walletstore.Store, gapLimit uint32) (*Engine, error) {
	inner, err := cache.New(store, gapLimit)
	if err != nil {
		return nil, err
	}
	return &Engine{inner: inner}, nil
}

// ProcessBlock is the single write path driven by the chain source.
func (e *Engine) ProcessBlock(block *wire.MsgBlock, height uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inner.ProcessBlock(block, height)
}

// Rollback undoes the tip block, mirroring ProcessBlock's write discipline.
func (e *Engine) Rollback(height uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inner.Rollback(height)
}

// PushDescriptor begins watching a new descriptor.
func (e *Engine) PushDescriptor(expr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inner.PushDescriptor(expr)
}

// CacheAddress begins watching a raw output script.
func (e *Engine) CacheAddress(script []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inner.CacheAddress(script)
}

// DeriveAddresses pre-derives count further scripts from an already-watched
// descriptor, beyond whatever the gap-limit policy would derive on its own.
func (e *Engine) DeriveAddresses(expr string, count uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inner.DeriveAddresses(expr, count)
}

// GetAddressBalance returns the confirmed balance of a watched script.
func (e *Engine) GetAddressBalance(h scripthash.Hash) (uint64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.inner.GetAddressBalance(h)
}

// GetAddressHistory returns the txids touching a watched script.
func (e *Engine) GetAddressHistory(h scripthash.Hash) ([]chainhash.Hash, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.inner.GetAddressHistory(h)
}

// GetAddressUTXOs returns the unspent outpoints credited to a watched
// script.
func (e *Engine) GetAddressUTXOs(h scripthash.Hash) ([]wire.OutPoint, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.inner.GetAddressUTXOs(h)
}

// GetMerkleProof returns the inclusion proof cached alongside a
// transaction, if any.
func (e *Engine) GetMerkleProof(txid chainhash.Hash) (*merkleproof.Proof, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.inner.GetMerkleProof(txid)
}

// GetCachedTransaction returns a previously observed transaction by txid.
func (e *Engine) GetCachedTransaction(txid chainhash.Hash) (*wallettypes.CachedTransaction, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.inner.GetCachedTransaction(txid)
}

// ListDescriptors returns every watched descriptor and its derivation
// counter.
func (e *Engine) ListDescriptors() []wallettypes.DescriptorRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.inner.ListDescriptors()
}

// GetCacheHeight returns the last fully processed block height.
func (e *Engine) GetCacheHeight() (uint32, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.inner.GetCacheHeight()
}
