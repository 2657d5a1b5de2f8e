// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/toole-brendan/walletindex/scripthash"
	"github.com/toole-brendan/walletindex/walleterr"
	"github.com/toole-brendan/walletindex/wallettypes"
)

// Rollback undoes the single most recently processed block, restoring the
// cache to its state as of height, which must be exactly one below the
// current tip. It only ever rolls back the current
// tip by exactly one block; a deeper reorg is handled by the chain source
// calling Rollback repeatedly, one block at a time, down to the fork
// point. There is no multi-block undo log: each call recomputes the
// reversal from the cached transactions themselves, which is why rollback
// is restricted to the tip.
func (c *Cache) Rollback(height uint32) error {
	if !c.haveHeight {
		return walleterr.Store("rollback", fmt.Errorf("cache has no processed blocks"))
	}
	if c.height == 0 {
		return walleterr.Store("rollback", fmt.Errorf("cannot roll back the genesis block"))
	}
	if height != c.height-1 {
		return walleterr.Store("rollback", fmt.Errorf("rollback only undoes the tip: expected target height %d, got %d", c.height-1, height))
	}

	tip := c.height
	var tipTxs []*wallettypes.CachedTransaction
	for _, t := range c.txByHash {
		if t.Height == tip {
			tipTxs = append(tipTxs, t)
		}
	}

	// Undo in reverse block-position order, the mirror image of how they
	// were applied.
	for i := len(tipTxs) - 1; i >= 0; i-- {
		if err := c.undoTx(tipTxs[i]); err != nil {
			return err
		}
	}

	if err := c.store.SetCacheHeight(height); err != nil {
		return walleterr.Store("rollback", err)
	}
	c.height = height

	if err := c.saveStats(); err != nil {
		return err
	}

	log.Infof("rolled back tip block %d to height %d (%d transactions undone)", tip, height, len(tipTxs))
	return nil
}

func (c *Cache) undoTx(t *wallettypes.CachedTransaction) error {
	tx := t.Tx
	touched := make(map[scripthash.Hash]bool)

	// Reverse the output pass: drop any UTXO this transaction created.
	for n, out := range tx.TxOut {
		h := scripthash.New(out.PkScript)
		a, ok := c.addresses[h]
		if !ok {
			continue
		}

		outpoint := wire.OutPoint{Hash: tx.TxHash(), Index: uint32(n)}
		if a.RemoveUTXO(outpoint) {
			a.Balance -= uint64(out.Value)
			delete(c.utxoIndex, outpoint)
		}
		touched[h] = true
	}

	// Reverse the input pass: restore any UTXO this transaction spent,
	// provided the producing output still belongs to a watched script.
	for _, in := range tx.TxIn {
		producing, ok := c.txByHash[in.PreviousOutPoint.Hash]
		if !ok {
			continue
		}
		h := scripthash.New(producing.Tx.TxOut[in.PreviousOutPoint.Index].PkScript)
		a, ok := c.addresses[h]
		if !ok {
			continue
		}
		if !a.HasUTXO(in.PreviousOutPoint) {
			a.AddUTXO(in.PreviousOutPoint)
			a.Balance += uint64(producing.Tx.TxOut[in.PreviousOutPoint.Index].Value)
			c.utxoIndex[in.PreviousOutPoint] = h
		}
		touched[h] = true
	}

	for h := range touched {
		a := c.addresses[h]
		removeTxid(a, t.Hash)
		if err := c.store.UpdateAddress(a); err != nil {
			return err
		}
	}

	delete(c.txByHash, t.Hash)
	return c.store.DeleteTransaction(t.Hash)
}

func removeTxid(a *wallettypes.CachedAddress, txid chainhash.Hash) {
	for i, t := range a.Transactions {
		if t == txid {
			a.Transactions = append(a.Transactions[:i], a.Transactions[i+1:]...)
			return
		}
	}
}
