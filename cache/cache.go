// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cache holds the in-memory indices that link watched scripts,
// their unspent outputs, and the transactions that touch them, and
// implements the per-block reconciliation algorithm that keeps those
// indices (and their durable copies) consistent across restarts.
//
// Cache itself does no locking; callers that need concurrent access wrap
// it the way rpcserver wraps blockManager, with a single coordination
// primitive around the handful of writer methods.
package cache

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/toole-brendan/walletindex/descriptor"
	"github.com/toole-brendan/walletindex/merkleproof"
	"github.com/toole-brendan/walletindex/scripthash"
	"github.com/toole-brendan/walletindex/walleterr"
	"github.com/toole-brendan/walletindex/walletstore"
	"github.com/toole-brendan/walletindex/wallettypes"
)

// DefaultGapLimit is the number of consecutive unused scripts the engine
// keeps derived above the highest used index of every descriptor.
const DefaultGapLimit = 100

// descriptorState tracks one watched descriptor's derivation progress
// alongside the parsed Descriptor itself.
type descriptorState struct {
	desc            *descriptor.Descriptor
	highestUsedIdx  int64 // -1 means no script of this descriptor has ever been used
}

// derivedRef records which descriptor and index a watched script came from,
// so that marking a script used can find the descriptor to extend.
type derivedRef struct {
	expr  string
	index uint32
}

// Cache is the inner, single-threaded address cache.
type Cache struct {
	store    walletstore.Store
	gapLimit uint32

	addresses map[scripthash.Hash]*wallettypes.CachedAddress
	utxoIndex map[wire.OutPoint]scripthash.Hash
	txByHash  map[chainhash.Hash]*wallettypes.CachedTransaction

	descriptors map[string]*descriptorState
	derivedFrom map[scripthash.Hash]derivedRef

	height     uint32
	haveHeight bool
}

// New constructs a Cache backed by store, rehydrating every address,
// transaction, descriptor, and the last-processed height from it. gapLimit
// of zero selects DefaultGapLimit.
func New(store walletstore.Store, gapLimit uint32) (*Cache, error) {
	if gapLimit == 0 {
		gapLimit = DefaultGapLimit
	}

	c := &Cache{
		store:       store,
		gapLimit:    gapLimit,
		addresses:   make(map[scripthash.Hash]*wallettypes.CachedAddress),
		utxoIndex:   make(map[wire.OutPoint]scripthash.Hash),
		txByHash:    make(map[chainhash.Hash]*wallettypes.CachedTransaction),
		descriptors: make(map[string]*descriptorState),
		derivedFrom: make(map[scripthash.Hash]derivedRef),
	}

	if err := c.rehydrate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) rehydrate() error {
	addrs, err := c.store.LoadAllAddresses()
	if err != nil {
		return walleterr.Store("rehydrate", err)
	}
	for _, a := range addrs {
		c.addresses[a.ScriptHash] = a
		for _, op := range a.UTXOs {
			c.utxoIndex[op] = a.ScriptHash
		}
	}

	txs, err := c.store.ListTransactions()
	if err != nil {
		return walleterr.Store("rehydrate", err)
	}
	for _, t := range txs {
		c.txByHash[t.Hash] = t
	}

	recs, err := c.store.ListDescriptors()
	if err != nil {
		return walleterr.Store("rehydrate", err)
	}
	for _, rec := range recs {
		d, err := descriptor.Parse(rec.Expr)
		if err != nil {
			return walleterr.Descriptor("rehydrate", fmt.Errorf("descriptor %q: %w", rec.Expr, err))
		}
		d.SetNextIndex(rec.NextIndex)
		st := &descriptorState{desc: d, highestUsedIdx: -1}
		c.descriptors[rec.Expr] = st

		for i := uint32(0); i < rec.NextIndex; i++ {
			script, err := d.Derive(i)
			if err != nil {
				return walleterr.Descriptor("rehydrate", err)
			}
			h := scripthash.New(script)
			c.derivedFrom[h] = derivedRef{expr: rec.Expr, index: i}
			if a, ok := c.addresses[h]; ok && len(a.Transactions) > 0 {
				st.highestUsedIdx = int64(i)
			}
		}
	}

	height, ok, err := c.store.GetCacheHeight()
	if err != nil {
		return walleterr.Store("rehydrate", err)
	}
	c.height = height
	c.haveHeight = ok

	if _, _, err := c.store.GetStats(); err != nil {
		return walleterr.Store("rehydrate", err)
	}

	log.Infof("rehydrated %d addresses, %d transactions, %d descriptors", len(c.addresses), len(c.txByHash), len(c.descriptors))

	return nil
}

// saveStats persists the schema-versioned bookkeeping record alongside the
// dedicated cache-height key, so a future binary with a higher
// wallettypes.StatsSchemaVersion can refuse to load a store it doesn't
// understand instead of silently misinterpreting it.
func (c *Cache) saveStats() error {
	return c.store.SaveStats(&wallettypes.Stats{
		SchemaVersion: wallettypes.StatsSchemaVersion,
		CacheHeight:   c.height,
		HaveHeight:    c.haveHeight,
	})
}

// GetCacheHeight returns the last fully processed block height.
func (c *Cache) GetCacheHeight() (uint32, bool) {
	return c.height, c.haveHeight
}

// GetAddressBalance returns the confirmed balance of a watched script, in
// satoshis. ok is false if the script hash is not watched.
func (c *Cache) GetAddressBalance(h scripthash.Hash) (uint64, bool) {
	a, ok := c.addresses[h]
	if !ok {
		return 0, false
	}
	return a.Balance, true
}

// GetAddressHistory returns the txids of every transaction touching a
// watched script, oldest observed first. ok is false if the script hash is
// not watched.
func (c *Cache) GetAddressHistory(h scripthash.Hash) ([]chainhash.Hash, bool) {
	a, ok := c.addresses[h]
	if !ok {
		return nil, false
	}
	return append([]chainhash.Hash(nil), a.Transactions...), true
}

// GetAddressUTXOs returns the unspent outpoints currently credited to a
// watched script. ok is false if the script hash is not watched.
func (c *Cache) GetAddressUTXOs(h scripthash.Hash) ([]wire.OutPoint, bool) {
	a, ok := c.addresses[h]
	if !ok {
		return nil, false
	}
	return append([]wire.OutPoint(nil), a.UTXOs...), true
}

// GetCachedTransaction returns a previously observed transaction by txid.
func (c *Cache) GetCachedTransaction(txid chainhash.Hash) (*wallettypes.CachedTransaction, bool) {
	t, ok := c.txByHash[txid]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// GetMerkleProof returns the inclusion proof stored alongside a cached
// transaction, if any.
func (c *Cache) GetMerkleProof(txid chainhash.Hash) (*merkleproof.Proof, bool) {
	t, ok := c.txByHash[txid]
	if !ok || t.MerkleBlock == nil {
		return nil, false
	}
	cp := *t.MerkleBlock
	cp.Siblings = append([]chainhash.Hash(nil), t.MerkleBlock.Siblings...)
	return &cp, true
}

// ListDescriptors returns every watched descriptor's expression and current
// derivation counter.
func (c *Cache) ListDescriptors() []wallettypes.DescriptorRecord {
	out := make([]wallettypes.DescriptorRecord, 0, len(c.descriptors))
	for expr, st := range c.descriptors {
		out = append(out, wallettypes.DescriptorRecord{Expr: expr, NextIndex: st.desc.NextIndex()})
	}
	return out
}
