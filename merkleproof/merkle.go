// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package merkleproof builds and verifies per-transaction SPV inclusion
// proofs against a block's Merkle root. The pairing rule (double-SHA256,
// duplicate-the-rightmost-node at odd levels) follows the same
// HashMerkleBranches/BuildMerkleTreeStore convention used by
// blockchain.BuildMerkleTreeStore in the wider btcsuite family, generalized
// here to produce and replay a single leaf-to-root path instead of the
// whole tree.
package merkleproof

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/toole-brendan/walletindex/walleterr"
)

// Proof is the inclusion path for one transaction within one block: the
// sibling hashes from leaf to root, plus enough information to fold them
// back in the right order.
type Proof struct {
	TargetTxid chainhash.Hash
	Position   uint32
	Siblings   []chainhash.Hash
}

// errNotInBlock is returned by Build when the target txid is not among the
// block's transactions.
var errNotInBlock = fmt.Errorf("transaction not found in block")

// IsNotInBlock reports whether err is the "target not in block" sentinel.
func IsNotInBlock(err error) bool {
	return err == errNotInBlock
}

// hashMerkleBranches concatenates two node hashes and double-SHA256s the
// result, exactly as blockchain.HashMerkleBranches does.
func hashMerkleBranches(left, right chainhash.Hash) chainhash.Hash {
	var buf [chainhash.HashSize * 2]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])
	return chainhash.DoubleHashH(buf[:])
}

// Build computes the inclusion path for target among the given block
// transactions, in block order, where position i's txid is
// transactions[i].TxHash(). O(log n) levels, O(n) total work.
func Build(transactions []*wire.MsgTx, target chainhash.Hash) (*Proof, error) {
	if len(transactions) == 0 {
		return nil, errNotInBlock
	}

	level := make([]chainhash.Hash, len(transactions))
	targetIdx := -1
	for i, tx := range transactions {
		level[i] = tx.TxHash()
		if level[i] == target {
			targetIdx = i
		}
	}
	if targetIdx == -1 {
		return nil, errNotInBlock
	}

	proof := &Proof{
		TargetTxid: target,
		Position:   uint32(targetIdx),
	}

	pos := targetIdx
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		siblingIdx := pos ^ 1
		proof.Siblings = append(proof.Siblings, level[siblingIdx])

		next := make([]chainhash.Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = hashMerkleBranches(level[2*i], level[2*i+1])
		}
		level = next
		pos /= 2
	}

	return proof, nil
}

// Verify folds proof.TargetTxid with its siblings, choosing left/right at
// each level from the corresponding bit of proof.Position, and reports
// whether the resulting root equals root.
func Verify(proof *Proof, root chainhash.Hash) bool {
	if proof == nil {
		return false
	}

	cur := proof.TargetTxid
	pos := proof.Position
	for _, sibling := range proof.Siblings {
		if pos&1 == 0 {
			cur = hashMerkleBranches(cur, sibling)
		} else {
			cur = hashMerkleBranches(sibling, cur)
		}
		pos >>= 1
	}

	return cur == root
}

// VerifyHex parses hex-encoded sibling hashes and the expected root, then
// verifies as Verify does. Returns walleterr.ErrProof for malformed hex or
// a sibling of the wrong length, and walleterr.ErrInvalidProof for a
// well-formed proof that does not fold to rootHex.
func VerifyHex(targetTxidHex string, position uint32, siblingHexes []string, rootHex string) error {
	target, err := chainhash.NewHashFromStr(targetTxidHex)
	if err != nil {
		return walleterr.Proof("parse target txid", err)
	}
	root, err := chainhash.NewHashFromStr(rootHex)
	if err != nil {
		return walleterr.Proof("parse root", err)
	}

	siblings := make([]chainhash.Hash, len(siblingHexes))
	for i, s := range siblingHexes {
		h, err := chainhash.NewHashFromStr(s)
		if err != nil {
			return walleterr.Proof(fmt.Sprintf("parse sibling %d", i), err)
		}
		siblings[i] = *h
	}

	proof := &Proof{TargetTxid: *target, Position: position, Siblings: siblings}
	if !Verify(proof, *root) {
		return walleterr.ErrInvalidProof
	}
	return nil
}
