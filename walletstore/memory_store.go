// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletstore

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/toole-brendan/walletindex/wallettypes"
	"github.com/toole-brendan/walletindex/walleterr"
)

// MemStore is an in-memory Store, used in tests and by hosts that accept
// losing the cache on restart in exchange for never touching a disk.
type MemStore struct {
	mu sync.Mutex

	addresses    map[[32]byte]*wallettypes.CachedAddress
	transactions map[chainhash.Hash]*wallettypes.CachedTransaction
	descriptors  []wallettypes.DescriptorRecord
	cacheHeight  uint32
	haveHeight   bool
	stats        *wallettypes.Stats
}

// NewMemStore returns an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{
		addresses:    make(map[[32]byte]*wallettypes.CachedAddress),
		transactions: make(map[chainhash.Hash]*wallettypes.CachedTransaction),
	}
}

func (s *MemStore) SaveAddress(addr *wallettypes.CachedAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.addresses[addr.ScriptHash]; ok {
		return walleterr.Store("save-address", fmt.Errorf("address %s already exists", addr.ScriptHash.String()))
	}
	s.addresses[addr.ScriptHash] = addr.Clone()
	return nil
}

func (s *MemStore) UpdateAddress(addr *wallettypes.CachedAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addresses[addr.ScriptHash] = addr.Clone()
	return nil
}

func (s *MemStore) LoadAllAddresses() ([]*wallettypes.CachedAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*wallettypes.CachedAddress, 0, len(s.addresses))
	for _, a := range s.addresses {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (s *MemStore) GetCacheHeight() (uint32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cacheHeight, s.haveHeight, nil
}

func (s *MemStore) SetCacheHeight(height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHeight = height
	s.haveHeight = true
	return nil
}

func (s *MemStore) SaveDescriptor(rec wallettypes.DescriptorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.descriptors {
		if e.Expr == rec.Expr {
			s.descriptors[i] = rec
			return nil
		}
	}
	s.descriptors = append(s.descriptors, rec)
	return nil
}

func (s *MemStore) ListDescriptors() ([]wallettypes.DescriptorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]wallettypes.DescriptorRecord, len(s.descriptors))
	copy(out, s.descriptors)
	return out, nil
}

func (s *MemStore) GetTransaction(txid chainhash.Hash) (*wallettypes.CachedTransaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[txid]
	if !ok {
		return nil, false, nil
	}
	return tx.Clone(), true, nil
}

func (s *MemStore) SaveTransaction(tx *wallettypes.CachedTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[tx.Hash] = tx.Clone()
	return nil
}

func (s *MemStore) DeleteTransaction(txid chainhash.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.transactions, txid)
	return nil
}

func (s *MemStore) ListTransactions() ([]*wallettypes.CachedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*wallettypes.CachedTransaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, tx.Clone())
	}
	return out, nil
}

func (s *MemStore) GetStats() (*wallettypes.Stats, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stats == nil {
		return nil, false, nil
	}
	cp := *s.stats
	return &cp, true, nil
}

func (s *MemStore) SaveStats(stats *wallettypes.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *stats
	s.stats = &cp
	return nil
}

func (s *MemStore) Close() error { return nil }

var _ Store = (*MemStore)(nil)
