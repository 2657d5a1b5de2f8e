// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package walletstore defines the durable-storage contract used by the
// inner cache (spec: addresses, transactions, descriptors and stats
// namespaces, plus a last-processed-height scalar) and provides two
// interchangeable implementations: a goleveldb-backed KV store and an
// in-memory store for tests and for hosts that don't need persistence.
//
// Every method is modeled as a capability, not an interface hierarchy:
// concrete backends are drop-in replacements for one another, following
// the same polymorphism style indexers.AddrIndex used for its db
// database.DB field, generalized here to the engine's own namespaces
// instead of a single btcd-style chain database.
package walletstore

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/toole-brendan/walletindex/wallettypes"
)

// Store is the durable-backend capability surface. Writes are durable
// before the method returns, or the method returns an error; reads see
// every prior completed write from the same process. No cross-method
// transactionality is required.
type Store interface {
	// SaveAddress persists a newly watched address. It is an error to
	// call SaveAddress twice for the same ScriptHash; use UpdateAddress
	// for subsequent writes.
	SaveAddress(addr *wallettypes.CachedAddress) error

	// UpdateAddress persists the current state of an already-saved
	// address.
	UpdateAddress(addr *wallettypes.CachedAddress) error

	// LoadAllAddresses returns every persisted address, for startup
	// rehydration. Order is unspecified.
	LoadAllAddresses() ([]*wallettypes.CachedAddress, error)

	// GetCacheHeight returns the last fully processed block height. ok is
	// false if no block has ever been processed.
	GetCacheHeight() (height uint32, ok bool, err error)

	// SetCacheHeight persists the last fully processed block height. Must
	// be called last within a block's write sequence.
	SetCacheHeight(height uint32) error

	// SaveDescriptor persists a descriptor's expression and its current
	// derivation counter. Idempotent: saving the same expression again
	// updates its counter in place.
	SaveDescriptor(rec wallettypes.DescriptorRecord) error

	// ListDescriptors returns every persisted descriptor, in the order
	// they were first saved.
	ListDescriptors() ([]wallettypes.DescriptorRecord, error)

	// GetTransaction returns a cached transaction by txid. ok is false if
	// it is not present.
	GetTransaction(txid chainhash.Hash) (tx *wallettypes.CachedTransaction, ok bool, err error)

	// SaveTransaction persists a transaction the block processor decided
	// was relevant to at least one watched address.
	SaveTransaction(tx *wallettypes.CachedTransaction) error

	// DeleteTransaction removes a persisted transaction. Used only when
	// rolling back the tip block undoes the last reason the transaction
	// was cached at all. A no-op if txid is not present.
	DeleteTransaction(txid chainhash.Hash) error

	// ListTransactions returns every persisted transaction, for startup
	// rehydration. Order is unspecified.
	ListTransactions() ([]*wallettypes.CachedTransaction, error)

	// GetStats returns the persisted schema version and cache height
	// bookkeeping. ok is false if stats have never been written.
	GetStats() (stats *wallettypes.Stats, ok bool, err error)

	// SaveStats persists the schema version and cache height bookkeeping.
	SaveStats(stats *wallettypes.Stats) error

	// Close releases any resources held by the backend.
	Close() error
}
