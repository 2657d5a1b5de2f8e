// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/toole-brendan/walletindex/merkleproof"
	"github.com/toole-brendan/walletindex/scripthash"
	"github.com/toole-brendan/walletindex/walleterr"
	"github.com/toole-brendan/walletindex/wallettypes"
)

// ProcessBlock reconciles every transaction in block against the watched
// scripts, crediting and debiting balances, maintaining the UTXO index,
// caching relevant transactions with their inclusion proofs, and extending
// descriptor derivation to preserve the gap-limit invariant. height must be
// exactly one more than the last processed height, or equal to it (a
// forced replay, which this method tolerates idempotently), or zero if no
// block has ever been processed.
func (c *Cache) ProcessBlock(block *wire.MsgBlock, height uint32) error {
	if err := c.checkHeightPrecondition(height); err != nil {
		return err
	}

	for position, tx := range block.Transactions {
		if err := c.processTx(block.Transactions, tx, height, uint32(position)); err != nil {
			return err
		}
	}

	if err := c.store.SetCacheHeight(height); err != nil {
		return walleterr.Store("process-block", err)
	}
	c.height = height
	c.haveHeight = true

	if err := c.saveStats(); err != nil {
		return err
	}

	log.Debugf("processed block at height %d (%d transactions)", height, len(block.Transactions))

	return nil
}

func (c *Cache) checkHeightPrecondition(height uint32) error {
	if !c.haveHeight {
		if height != 0 {
			return walleterr.Store("process-block", fmt.Errorf("first block processed must be height 0, got %d", height))
		}
		return nil
	}
	if height != c.height+1 && height != c.height {
		return walleterr.Store("process-block", fmt.Errorf("expected height %d (or replay of %d), got %d", c.height+1, c.height, height))
	}
	return nil
}

// processTx applies the input pass then the output pass of tx, which sits
// at position within blockTxs. If tx turns out relevant to any watched
// script, it is cached once alongside a single inclusion proof built
// against the full block.
func (c *Cache) processTx(blockTxs []*wire.MsgTx, tx *wire.MsgTx, height, position uint32) error {
	relevant := make(map[scripthash.Hash]bool)

	for _, in := range tx.TxIn {
		h, ok := c.utxoIndex[in.PreviousOutPoint]
		if !ok {
			continue
		}
		a := c.addresses[h]
		producing, ok := c.txByHash[in.PreviousOutPoint.Hash]
		if !ok {
			return walleterr.Store("process-block", fmt.Errorf("missing producing transaction for outpoint %v", in.PreviousOutPoint))
		}
		value := uint64(producing.Tx.TxOut[in.PreviousOutPoint.Index].Value)

		if a.RemoveUTXO(in.PreviousOutPoint) {
			a.Balance -= value
			delete(c.utxoIndex, in.PreviousOutPoint)
		}
		relevant[h] = true
	}

	for n, out := range tx.TxOut {
		h := scripthash.New(out.PkScript)
		a, ok := c.addresses[h]
		if !ok {
			continue
		}

		op := wire.OutPoint{Hash: tx.TxHash(), Index: uint32(n)}
		if !a.HasUTXO(op) {
			a.AddUTXO(op)
			a.Balance += uint64(out.Value)
			c.utxoIndex[op] = h
		}
		relevant[h] = true
	}

	if len(relevant) == 0 {
		return nil
	}

	txid := tx.TxHash()
	cached, alreadyCached := c.txByHash[txid]
	if !alreadyCached {
		proof, err := merkleproof.Build(blockTxs, txid)
		if err != nil {
			return walleterr.Proof("process-block", err)
		}
		cached = &wallettypes.CachedTransaction{
			Tx:          tx,
			Height:      height,
			MerkleBlock: proof,
			Hash:        txid,
			Position:    position,
		}
		c.txByHash[txid] = cached
		if err := c.store.SaveTransaction(cached); err != nil {
			return err
		}
	}

	for h := range relevant {
		if ref, ok := c.derivedFrom[h]; ok {
			if err := c.markUsed(ref); err != nil {
				return err
			}
		}
		a := c.addresses[h]
		a.AddTxid(txid)
		if err := c.store.UpdateAddress(a); err != nil {
			return err
		}
	}

	return nil
}
