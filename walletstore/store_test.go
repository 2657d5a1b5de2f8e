// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletstore

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/walletindex/merkleproof"
	"github.com/toole-brendan/walletindex/scripthash"
	"github.com/toole-brendan/walletindex/wallettypes"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	lvl, err := OpenLevelStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { lvl.Close() })

	return map[string]Store{
		"leveldb": lvl,
		"memory":  NewMemStore(),
	}
}

func sampleAddress(tag byte) *wallettypes.CachedAddress {
	script := []byte{0x76, 0xa9, 0x14, tag}
	return &wallettypes.CachedAddress{
		ScriptHash: scripthash.New(script),
		Script:     script,
		Balance:    1234,
		Transactions: []chainhash.Hash{
			{tag, 1, 2, 3},
		},
		UTXOs: []wire.OutPoint{
			{Hash: chainhash.Hash{tag, 1, 2, 3}, Index: 0},
		},
	}
}

func sampleTransaction(tag byte) *wallettypes.CachedTransaction {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{tag}, Index: 0},
		SignatureScript:  []byte{0x01, tag},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: 5000, PkScript: []byte{0x76, 0xa9, 0x14, tag}})

	hash := tx.TxHash()
	return &wallettypes.CachedTransaction{
		Tx:     tx,
		Height: 100,
		Hash:   hash,
		MerkleBlock: &merkleproof.Proof{
			TargetTxid: hash,
			Position:   0,
			Siblings:   []chainhash.Hash{{tag, 9, 9, 9}},
		},
	}
}

func TestStoreAddressRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			addr := sampleAddress(0x01)
			require.NoError(t, store.SaveAddress(addr))

			err := store.SaveAddress(addr)
			require.Error(t, err, "saving the same address twice must fail")

			addr.Balance = 9999
			require.NoError(t, store.UpdateAddress(addr))

			all, err := store.LoadAllAddresses()
			require.NoError(t, err)
			require.Len(t, all, 1)
			require.Equal(t, uint64(9999), all[0].Balance)
		})
	}
}

func TestStoreCacheHeight(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.GetCacheHeight()
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, store.SetCacheHeight(42))

			height, ok, err := store.GetCacheHeight()
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, uint32(42), height)
		})
	}
}

func TestStoreDescriptorUpsert(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			rec := wallettypes.DescriptorRecord{Expr: "wpkh(...)", NextIndex: 0}
			require.NoError(t, store.SaveDescriptor(rec))

			rec.NextIndex = 7
			require.NoError(t, store.SaveDescriptor(rec))

			all, err := store.ListDescriptors()
			require.NoError(t, err)
			require.Len(t, all, 1)
			require.Equal(t, uint32(7), all[0].NextIndex)
		})
	}
}

func TestStoreTransactionRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			tx := sampleTransaction(0x02)
			require.NoError(t, store.SaveTransaction(tx))

			got, ok, err := store.GetTransaction(tx.Hash)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, tx.Hash, got.Hash)
			require.Equal(t, tx.Height, got.Height)
			require.Equal(t, tx.Tx.TxHash(), got.Tx.TxHash())

			_, ok, err = store.GetTransaction(chainhash.Hash{0xff})
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestStoreStatsRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.GetStats()
			require.NoError(t, err)
			require.False(t, ok)

			stats := &wallettypes.Stats{SchemaVersion: wallettypes.StatsSchemaVersion, CacheHeight: 10, HaveHeight: true}
			require.NoError(t, store.SaveStats(stats))

			got, ok, err := store.GetStats()
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, stats.CacheHeight, got.CacheHeight)
		})
	}
}
