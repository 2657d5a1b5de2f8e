// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"sync"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/walletindex/scripthash"
	"github.com/toole-brendan/walletindex/walletstore"
)

func TestConcurrentReadersDontBlockEachOther(t *testing.T) {
	e, err := New(walletstore.NewMemStore(), 2)
	require.NoError(t, err)

	script := []byte{0x76, 0xa9, 0x14, 0x01, 0x88, 0xac}
	require.NoError(t, e.CacheAddress(script))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.GetAddressBalance(scripthash.New(script))
		}()
	}
	wg.Wait()
}

func TestWriteThenReadIsLinearizable(t *testing.T) {
	e, err := New(walletstore.NewMemStore(), 2)
	require.NoError(t, err)

	script := []byte{0x76, 0xa9, 0x14, 0x02, 0x88, 0xac}
	require.NoError(t, e.CacheAddress(script))
	h := scripthash.New(script)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{0x09}, Index: 0}, Sequence: wire.MaxTxInSequenceNum})
	tx.AddTxOut(&wire.TxOut{Value: 1500, PkScript: script})

	require.NoError(t, e.ProcessBlock(&wire.MsgBlock{Transactions: []*wire.MsgTx{tx}}, 0))

	balance, ok := e.GetAddressBalance(h)
	require.True(t, ok)
	require.Equal(t, uint64(1500), balance)
}
