// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package scripthash implements the Electrum-style script hash used to key
// every watched output script in the address cache.
package scripthash

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Hash is a 32-byte Electrum script hash: reverse(SHA256(script)).
type Hash [chainhash.HashSize]byte

// String returns the hex encoding of the hash's bytes in stored order,
// which is the Electrum wire form (the reversed SHA-256 digest). Unlike
// chainhash.Hash.String, it does not reverse the bytes again.
func (h Hash) String() string {
	var reversed Hash
	for i, b := range h[:] {
		reversed[chainhash.HashSize-1-i] = b
	}
	return chainhash.Hash(reversed).String()
}

// New computes the Electrum script hash for a raw output script: the
// single SHA-256 digest of the script, with its bytes reversed.
//
// Pure, total, never fails. Two distinct scripts sharing a Hash would be a
// SHA-256 collision.
func New(script []byte) Hash {
	digest := sha256.Sum256(script)

	var h Hash
	for i, b := range digest {
		h[chainhash.HashSize-1-i] = b
	}
	return h
}
