// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletstore

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/toole-brendan/walletindex/wallettypes"
	"github.com/toole-brendan/walletindex/walleterr"
)

// Key namespace prefixes. A single flat goleveldb keyspace is split into
// logical namespaces by prefix byte, the same approach the indexers package
// uses to share one chain database across several independent indexes.
const (
	prefixAddress    byte = 'a'
	prefixTx         byte = 't'
	prefixDescriptor byte = 'd'
	prefixMeta       byte = 'm'
)

// Well-known keys within the meta namespace.
var (
	metaCacheHeightKey = []byte{prefixMeta, 'h'}
	metaStatsKey       = []byte{prefixMeta, 's'}
	metaDescSeqKey     = []byte{prefixMeta, 'n'}
)

// LevelStore is a goleveldb-backed Store. A single *leveldb.DB instance
// backs all four namespaces; goleveldb's own internal locking makes this
// safe for concurrent use, though the engine facade above it serializes
// writers regardless.
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevelStore opens (creating if necessary) a goleveldb database at dir.
func OpenLevelStore(dir string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{
		Filter: nil,
	})
	if err != nil {
		return nil, walleterr.Store("open", err)
	}
	log.Infof("opened leveldb store at %s", dir)
	return &LevelStore{db: db}, nil
}

func addressKey(h [32]byte) []byte {
	key := make([]byte, 1+len(h))
	key[0] = prefixAddress
	copy(key[1:], h[:])
	return key
}

func txKey(txid chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = prefixTx
	copy(key[1:], txid[:])
	return key
}

func descriptorKey(seq uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixDescriptor
	for i := 0; i < 8; i++ {
		key[1+i] = byte(seq >> (8 * (7 - i)))
	}
	return key
}

func (s *LevelStore) SaveAddress(addr *wallettypes.CachedAddress) error {
	key := addressKey(addr.ScriptHash)
	has, err := s.db.Has(key, nil)
	if err != nil {
		return walleterr.Store("save-address", err)
	}
	if has {
		return walleterr.Store("save-address", fmt.Errorf("address %s already exists", addr.ScriptHash.String()))
	}
	if err := s.db.Put(key, encodeAddress(addr), nil); err != nil {
		return walleterr.Store("save-address", err)
	}
	return nil
}

func (s *LevelStore) UpdateAddress(addr *wallettypes.CachedAddress) error {
	if err := s.db.Put(addressKey(addr.ScriptHash), encodeAddress(addr), nil); err != nil {
		return walleterr.Store("update-address", err)
	}
	return nil
}

func (s *LevelStore) LoadAllAddresses() ([]*wallettypes.CachedAddress, error) {
	var out []*wallettypes.CachedAddress

	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixAddress}), nil)
	defer iter.Release()

	for iter.Next() {
		a, err := decodeAddress(iter.Value())
		if err != nil {
			return nil, walleterr.Decode("load-all-addresses", err)
		}
		out = append(out, a)
	}
	if err := iter.Error(); err != nil {
		return nil, walleterr.Store("load-all-addresses", err)
	}
	return out, nil
}

func (s *LevelStore) GetCacheHeight() (uint32, bool, error) {
	data, err := s.db.Get(metaCacheHeightKey, nil)
	if err == errors.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, walleterr.Store("get-cache-height", err)
	}
	height, err := readUint32FromBytes(data)
	if err != nil {
		return 0, false, walleterr.Decode("get-cache-height", err)
	}
	return height, true, nil
}

func (s *LevelStore) SetCacheHeight(height uint32) error {
	if err := s.db.Put(metaCacheHeightKey, uint32Bytes(height), nil); err != nil {
		return walleterr.Store("set-cache-height", err)
	}
	return nil
}

func (s *LevelStore) SaveDescriptor(rec wallettypes.DescriptorRecord) error {
	existing, err := s.ListDescriptors()
	if err != nil {
		return err
	}
	for i, e := range existing {
		if e.Expr == rec.Expr {
			existing[i] = rec
			return s.rewriteDescriptors(existing)
		}
	}

	seq, err := s.nextDescriptorSeq()
	if err != nil {
		return err
	}
	if err := s.db.Put(descriptorKey(seq), encodeDescriptor(rec), nil); err != nil {
		return walleterr.Store("save-descriptor", err)
	}
	return nil
}

// rewriteDescriptors replaces the whole descriptor namespace to update an
// existing entry's derivation counter in place. Descriptor counts are small
// (tens, not millions), so a full rewrite stays cheap.
func (s *LevelStore) rewriteDescriptors(recs []wallettypes.DescriptorRecord) error {
	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixDescriptor}), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return walleterr.Store("save-descriptor", err)
	}

	for i, rec := range recs {
		batch.Put(descriptorKey(uint64(i)), encodeDescriptor(rec))
	}
	batch.Put(metaDescSeqKey, uint64Bytes(uint64(len(recs))))

	if err := s.db.Write(batch, nil); err != nil {
		return walleterr.Store("save-descriptor", err)
	}
	return nil
}

func (s *LevelStore) nextDescriptorSeq() (uint64, error) {
	data, err := s.db.Get(metaDescSeqKey, nil)
	if err == errors.ErrNotFound {
		if putErr := s.db.Put(metaDescSeqKey, uint64Bytes(1), nil); putErr != nil {
			return 0, walleterr.Store("save-descriptor", putErr)
		}
		return 0, nil
	}
	if err != nil {
		return 0, walleterr.Store("save-descriptor", err)
	}
	seq, err := readUint64FromBytes(data)
	if err != nil {
		return 0, walleterr.Decode("save-descriptor", err)
	}
	if putErr := s.db.Put(metaDescSeqKey, uint64Bytes(seq+1), nil); putErr != nil {
		return 0, walleterr.Store("save-descriptor", putErr)
	}
	return seq, nil
}

func (s *LevelStore) ListDescriptors() ([]wallettypes.DescriptorRecord, error) {
	var out []wallettypes.DescriptorRecord

	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixDescriptor}), nil)
	defer iter.Release()

	for iter.Next() {
		rec, err := decodeDescriptor(iter.Value())
		if err != nil {
			return nil, walleterr.Decode("list-descriptors", err)
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, walleterr.Store("list-descriptors", err)
	}
	return out, nil
}

func (s *LevelStore) GetTransaction(txid chainhash.Hash) (*wallettypes.CachedTransaction, bool, error) {
	data, err := s.db.Get(txKey(txid), nil)
	if err == errors.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, walleterr.Store("get-transaction", err)
	}
	tx, err := decodeTransaction(data)
	if err != nil {
		return nil, false, walleterr.Decode("get-transaction", err)
	}
	return tx, true, nil
}

func (s *LevelStore) SaveTransaction(tx *wallettypes.CachedTransaction) error {
	data, err := encodeTransaction(tx)
	if err != nil {
		return walleterr.Store("save-transaction", err)
	}
	if err := s.db.Put(txKey(tx.Hash), data, nil); err != nil {
		return walleterr.Store("save-transaction", err)
	}
	return nil
}

func (s *LevelStore) DeleteTransaction(txid chainhash.Hash) error {
	if err := s.db.Delete(txKey(txid), nil); err != nil {
		return walleterr.Store("delete-transaction", err)
	}
	return nil
}

func (s *LevelStore) ListTransactions() ([]*wallettypes.CachedTransaction, error) {
	var out []*wallettypes.CachedTransaction

	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixTx}), nil)
	defer iter.Release()

	for iter.Next() {
		tx, err := decodeTransaction(iter.Value())
		if err != nil {
			return nil, walleterr.Decode("list-transactions", err)
		}
		out = append(out, tx)
	}
	if err := iter.Error(); err != nil {
		return nil, walleterr.Store("list-transactions", err)
	}
	return out, nil
}

func (s *LevelStore) GetStats() (*wallettypes.Stats, bool, error) {
	data, err := s.db.Get(metaStatsKey, nil)
	if err == errors.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, walleterr.Store("get-stats", err)
	}
	stats, err := decodeStats(data)
	if err != nil {
		return nil, false, walleterr.Decode("get-stats", err)
	}
	return stats, true, nil
}

func (s *LevelStore) SaveStats(stats *wallettypes.Stats) error {
	if err := s.db.Put(metaStatsKey, encodeStats(stats), nil); err != nil {
		return walleterr.Store("save-stats", err)
	}
	return nil
}

func (s *LevelStore) Close() error {
	if err := s.db.Close(); err != nil {
		return walleterr.Store("close", err)
	}
	return nil
}

func uint32Bytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func readUint32FromBytes(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("expected 4 bytes, got %d", len(b))
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func uint64Bytes(v uint64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * (7 - i)))
	}
	return out
}

func readUint64FromBytes(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d", len(b))
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

var _ Store = (*LevelStore)(nil)
