// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package walleterr defines the error taxonomy shared by every layer of the
// wallet indexing engine: the durable store, the descriptor resolver, the
// Merkle-proof verifier, and the query surface. Callers should use
// errors.Is against the sentinels below rather than string-matching.
package walleterr

import "errors"

var (
	// ErrStore indicates a durable-backend I/O failure. Always surfaced to
	// the caller; never swallowed.
	ErrStore = errors.New("durable store error")

	// ErrDescriptor indicates malformed descriptor syntax, an unsupported
	// script type, a bad checksum, or a descriptor requiring secret
	// material.
	ErrDescriptor = errors.New("descriptor error")

	// ErrDecode indicates a corrupted serialized record read from the
	// durable store. Fatal for the affected record.
	ErrDecode = errors.New("decode error")

	// ErrProof indicates bad hex or a structurally malformed Merkle proof
	// passed to a verification call.
	ErrProof = errors.New("proof error")

	// ErrInvalidProof indicates a well-formed Merkle proof that does not
	// verify against the expected root.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrTxNotFound indicates gettransaction was called for a txid that is
	// not in the cache.
	ErrTxNotFound = errors.New("transaction not found")

	// ErrInvalidVerbosity indicates the verbose argument to gettransaction
	// was neither 0 nor 1.
	ErrInvalidVerbosity = errors.New("invalid verbosity level")
)

// Store wraps an underlying backend error with ErrStore so callers can
// errors.Is(err, walleterr.ErrStore) regardless of backend.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{op: op, sentinel: ErrStore, cause: err}
}

// Decode wraps a deserialization failure with ErrDecode.
func Decode(op string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{op: op, sentinel: ErrDecode, cause: err}
}

// Descriptor wraps a parse/derive failure with ErrDescriptor.
func Descriptor(op string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{op: op, sentinel: ErrDescriptor, cause: err}
}

// Proof wraps a malformed-proof failure with ErrProof.
func Proof(op string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{op: op, sentinel: ErrProof, cause: err}
}

type wrapped struct {
	op       string
	sentinel error
	cause    error
}

func (w *wrapped) Error() string {
	if w.cause == nil {
		return w.op + ": " + w.sentinel.Error()
	}
	return w.op + ": " + w.sentinel.Error() + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.sentinel, w.cause}
}
