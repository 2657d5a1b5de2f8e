// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallettypes holds the data model shared between the in-memory
// cache, the durable store contract, and the query surface, so that none
// of those packages needs to import one another just to see a struct
// definition.
package wallettypes

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/toole-brendan/walletindex/merkleproof"
	"github.com/toole-brendan/walletindex/scripthash"
)

// StatsSchemaVersion is the current on-disk Stats schema. A durable store
// that finds a higher, unknown version during rehydration refuses to load
// it (walleterr.ErrDecode) rather than silently misinterpret it; no
// migration path is defined since no prior version has ever shipped.
const StatsSchemaVersion = 1

// CachedAddress is one record per watched output script. balance always
// equals the sum of the values of the outputs named in utxos; every txid in
// transactions appears at most once; every outpoint in utxos references a
// transaction whose txid is in transactions.
type CachedAddress struct {
	ScriptHash   scripthash.Hash
	Script       []byte
	Balance      uint64
	Transactions []chainhash.Hash
	UTXOs        []wire.OutPoint
}

// HasTxid reports whether txid is already recorded against this address.
func (a *CachedAddress) HasTxid(txid chainhash.Hash) bool {
	for _, t := range a.Transactions {
		if t == txid {
			return true
		}
	}
	return false
}

// AddTxid appends txid if it is not already present, preserving
// first-observed order.
func (a *CachedAddress) AddTxid(txid chainhash.Hash) {
	if !a.HasTxid(txid) {
		a.Transactions = append(a.Transactions, txid)
	}
}

// HasUTXO reports whether op is currently tracked as unspent for this
// address.
func (a *CachedAddress) HasUTXO(op wire.OutPoint) bool {
	for _, u := range a.UTXOs {
		if u == op {
			return true
		}
	}
	return false
}

// AddUTXO adds op if it is not already present. Idempotent so that a
// replayed block does not double-count a balance credit.
func (a *CachedAddress) AddUTXO(op wire.OutPoint) {
	if !a.HasUTXO(op) {
		a.UTXOs = append(a.UTXOs, op)
	}
}

// RemoveUTXO removes op if present and reports whether it was found, so
// callers can decide whether to apply the corresponding balance debit (a
// replayed spend of an already-removed outpoint is a no-op).
func (a *CachedAddress) RemoveUTXO(op wire.OutPoint) bool {
	for i, u := range a.UTXOs {
		if u == op {
			a.UTXOs = append(a.UTXOs[:i], a.UTXOs[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to a reader outside the facade's
// lock.
func (a *CachedAddress) Clone() *CachedAddress {
	out := &CachedAddress{
		ScriptHash: a.ScriptHash,
		Balance:    a.Balance,
	}
	out.Script = append([]byte(nil), a.Script...)
	out.Transactions = append([]chainhash.Hash(nil), a.Transactions...)
	out.UTXOs = append([]wire.OutPoint(nil), a.UTXOs...)
	return out
}

// CachedTransaction is a full transaction the engine has observed, stored
// because at least one input spends a cached UTXO or at least one output
// pays a cached script. MerkleBlock is present whenever Height > 0.
type CachedTransaction struct {
	Tx          *wire.MsgTx
	Height      uint32
	MerkleBlock *merkleproof.Proof
	Hash        chainhash.Hash
	Position    uint32
}

// Clone returns a shallow copy: Tx and MerkleBlock point at the same values
// as the original. CachedTransaction is never mutated in place after being
// stored, so sharing them is sufficient for handing to a reader.
func (t *CachedTransaction) Clone() *CachedTransaction {
	cp := *t
	return &cp
}

// DescriptorRecord is the persisted form of a descriptor: its expression
// and its current derivation counter.
type DescriptorRecord struct {
	Expr      string
	NextIndex uint32
}

// Stats is the persisted scalar bookkeeping: the schema version and the
// last fully processed block height. It does not hold per-descriptor
// derivation indices; those are stored only in each DescriptorRecord.
type Stats struct {
	SchemaVersion uint32
	CacheHeight   uint32
	HaveHeight    bool
}
