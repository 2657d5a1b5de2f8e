// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc maps external JSON-RPC commands onto the engine façade,
// following the same handleXxx(s, cmd, closeChan) dispatch idiom
// btcd's rpcserver uses for its own command table.
package rpc

import (
	"bytes"
	"encoding/hex"
	"fmt"

	upstream "github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	walletjson "github.com/toole-brendan/walletindex/btcjson"
	"github.com/toole-brendan/walletindex/engine"
	"github.com/toole-brendan/walletindex/scripthash"
)

// ChainSource is the subset of the full node's query surface this adapter
// delegates to rather than answering itself: getroots and findtxout are
// chain-wide queries the wallet cache has no authority over.
type ChainSource interface {
	GetRoots() ([]string, error)
	FindTxOut(txid chainhash.Hash, index uint32) (*wire.TxOut, error)
}

// commandHandler mirrors rpcserver's own handler signature: closeChan lets
// a long-running handler notice client disconnects, though none of these
// handlers block long enough to need it.
type commandHandler func(s *Server, cmd interface{}, closeChan <-chan struct{}) (interface{}, error)

// Server dispatches the wallet-facing RPC commands against an engine and a
// delegate chain source.
type Server struct {
	engine      *engine.Engine
	chain       ChainSource
	chainParams *chaincfg.Params
}

// NewServer returns a Server backed by e, delegating chain-wide queries to
// chain and decoding addresses for params.
func NewServer(e *engine.Engine, chain ChainSource, params *chaincfg.Params) *Server {
	return &Server{engine: e, chain: chain, chainParams: params}
}

var handlers = map[string]commandHandler{
	walletjson.MethodListDescriptors:   handleListDescriptors,
	walletjson.MethodLoadDescriptor:    handleLoadDescriptor,
	walletjson.MethodGetAddressBalance: handleGetAddressBalance,
	walletjson.MethodGetAddressHistory: handleGetAddressHistory,
	walletjson.MethodGetAddressUTXOs:   handleGetAddressUTXOs,
	walletjson.MethodGetTxMerkleProof:  handleGetTxMerkleProof,
	walletjson.MethodGetTransaction:    handleGetTransaction,
	"blockchain.headers.get_roots":     handleGetRoots,
	"blockchain.transaction.find_out":  handleFindTxOut,
}

// Dispatch looks up and invokes the handler registered for method.
func (s *Server) Dispatch(method string, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	handler, ok := handlers[method]
	if !ok {
		log.Warnf("rejected unknown RPC method %q", method)
		return nil, &upstream.RPCError{
			Code:    upstream.ErrRPCMethodNotFound,
			Message: fmt.Sprintf("unknown method %q", method),
		}
	}
	log.Tracef("dispatching RPC method %q", method)
	return handler(s, cmd, closeChan)
}

// parseScriptHash is the inverse of scripthash.Hash.String: the hex is
// decoded in order, without chainhash's byte reversal.
func parseScriptHash(s string) (scripthash.Hash, error) {
	var h scripthash.Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("script hash must be %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func handleListDescriptors(s *Server, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	recs := s.engine.ListDescriptors()
	result := walletjson.ListDescriptorsResult{Descriptors: make([]walletjson.DescriptorInfo, len(recs))}
	for i, r := range recs {
		result.Descriptors[i] = walletjson.DescriptorInfo{Descriptor: r.Expr, NextIndex: r.NextIndex}
	}
	return &result, nil
}

func handleLoadDescriptor(s *Server, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*walletjson.LoadDescriptorCmd)

	if err := s.engine.PushDescriptor(c.Descriptor); err != nil {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidParameter, Message: err.Error()}
	}
	after := s.engine.ListDescriptors()

	var derived uint32
	for _, rec := range after {
		if rec.Expr == c.Descriptor {
			derived = rec.NextIndex
		}
	}

	return &walletjson.LoadDescriptorResult{AddressesDerived: derived}, nil
}

func handleGetAddressBalance(s *Server, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*walletjson.GetAddressBalanceCmd)
	h, err := parseScriptHash(c.ScriptHash)
	if err != nil {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidParameter, Message: err.Error()}
	}

	balance, ok := s.engine.GetAddressBalance(h)
	if !ok {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidAddressOrKey, Message: "script hash not watched"}
	}
	return &walletjson.GetAddressBalanceResult{Confirmed: balance}, nil
}

func handleGetAddressHistory(s *Server, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*walletjson.GetAddressHistoryCmd)
	h, err := parseScriptHash(c.ScriptHash)
	if err != nil {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidParameter, Message: err.Error()}
	}

	txids, ok := s.engine.GetAddressHistory(h)
	if !ok {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidAddressOrKey, Message: "script hash not watched"}
	}

	result := walletjson.GetAddressHistoryResult{History: make([]walletjson.HistoryEntry, len(txids))}
	for i, txid := range txids {
		height := uint32(0)
		if tx, ok := s.engine.GetCachedTransaction(txid); ok {
			height = tx.Height
		}
		result.History[i] = walletjson.HistoryEntry{TxID: txid.String(), Height: height}
	}
	return &result, nil
}

func handleGetAddressUTXOs(s *Server, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*walletjson.GetAddressUTXOsCmd)
	h, err := parseScriptHash(c.ScriptHash)
	if err != nil {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidParameter, Message: err.Error()}
	}

	utxos, ok := s.engine.GetAddressUTXOs(h)
	if !ok {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidAddressOrKey, Message: "script hash not watched"}
	}

	result := walletjson.GetAddressUTXOsResult{UTXOs: make([]walletjson.UTXOEntry, len(utxos))}
	for i, op := range utxos {
		entry := walletjson.UTXOEntry{TxID: op.Hash.String(), Vout: op.Index}
		if tx, ok := s.engine.GetCachedTransaction(op.Hash); ok {
			entry.Height = tx.Height
			entry.Value = uint64(tx.Tx.TxOut[op.Index].Value)
		}
		result.UTXOs[i] = entry
	}
	return &result, nil
}

func handleGetTxMerkleProof(s *Server, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*walletjson.GetTxMerkleProofCmd)
	txid, err := chainhash.NewHashFromStr(c.TxID)
	if err != nil {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidParameter, Message: err.Error()}
	}

	proof, ok := s.engine.GetMerkleProof(*txid)
	if !ok {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCNoTxInfo, Message: "no proof cached for this transaction"}
	}

	cachedTx, _ := s.engine.GetCachedTransaction(*txid)
	merkle := make([]string, len(proof.Siblings))
	for i, sib := range proof.Siblings {
		merkle[i] = sib.String()
	}

	result := walletjson.GetTxMerkleProofResult{
		BlockHeight: cachedTx.Height,
		Position:    proof.Position,
		Merkle:      merkle,
	}
	return &result, nil
}

func handleGetTransaction(s *Server, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*walletjson.GetTransactionCmd)
	txid, err := chainhash.NewHashFromStr(c.TxID)
	if err != nil {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidParameter, Message: err.Error()}
	}

	cachedTx, ok := s.engine.GetCachedTransaction(*txid)
	if !ok {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCNoTxInfo, Message: "transaction not cached"}
	}

	var buf bytes.Buffer
	if err := cachedTx.Tx.Serialize(&buf); err != nil {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInternal, Message: err.Error()}
	}
	hexTx := hex.EncodeToString(buf.Bytes())

	verbose := c.Verbose != nil && *c.Verbose
	if !verbose {
		result := walletjson.GetTransactionResult(hexTx)
		return &result, nil
	}

	return s.decodeVerbose(cachedTx.Tx, hexTx), nil
}

func handleGetRoots(s *Server, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	roots, err := s.chain.GetRoots()
	if err != nil {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInternal, Message: err.Error()}
	}
	return roots, nil
}

// findTxOutCmd is the request shape for the delegated find-outpoint query.
type findTxOutCmd struct {
	Txid  string `json:"txid"`
	Index uint32 `json:"index"`
}

func handleFindTxOut(s *Server, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*findTxOutCmd)
	txid, err := chainhash.NewHashFromStr(c.Txid)
	if err != nil {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidParameter, Message: err.Error()}
	}

	out, err := s.chain.FindTxOut(*txid, c.Index)
	if err != nil {
		return nil, &upstream.RPCError{Code: upstream.ErrRPCInvalidAddressOrKey, Message: err.Error()}
	}
	return out, nil
}

func (s *Server) decodeVerbose(tx *wire.MsgTx, hexTx string) *VerboseTransaction {
	// weight = strippedSize*3 + totalSize, per BIP-141; vsize rounds the
	// weight up to the next whole vbyte.
	weight := tx.SerializeSizeStripped()*3 + tx.SerializeSize()
	result := &VerboseTransaction{
		Txid:     tx.TxHash().String(),
		Hash:     tx.WitnessHash().String(),
		Version:  tx.Version,
		Size:     tx.SerializeSize(),
		Vsize:    (weight + 3) / 4,
		Weight:   weight,
		Locktime: tx.LockTime,
	}

	result.Vin = make([]VerboseVin, len(tx.TxIn))
	for i, in := range tx.TxIn {
		witness := make([]string, len(in.Witness))
		for j, w := range in.Witness {
			witness[j] = hex.EncodeToString(w)
		}
		asm, _ := txscript.DisasmString(in.SignatureScript)
		result.Vin[i] = VerboseVin{
			Txid: in.PreviousOutPoint.Hash.String(),
			Vout: in.PreviousOutPoint.Index,
			ScriptSig: ScriptSig{
				Asm: asm,
				Hex: hex.EncodeToString(in.SignatureScript),
			},
			Sequence: in.Sequence,
			Witness:  witness,
		}
	}

	result.Vout = make([]VerboseVout, len(tx.TxOut))
	for i, out := range tx.TxOut {
		result.Vout[i] = VerboseVout{
			Value:        uint64(out.Value),
			N:            uint32(i),
			ScriptPubKey: s.decodeScriptPubKey(out.PkScript),
		}
	}

	return result
}

func (s *Server) decodeScriptPubKey(script []byte) ScriptPubKeyResult {
	asm, _ := txscript.DisasmString(script)
	class, addrs, reqSigs, _ := txscript.ExtractPkScriptAddrs(script, s.chainParams)

	result := ScriptPubKeyResult{
		Asm:     asm,
		Hex:     hex.EncodeToString(script),
		ReqSigs: reqSigs,
		Type:    class.String(),
	}
	if len(addrs) > 0 {
		addr := addrs[0].EncodeAddress()
		result.Address = &addr
	}
	return result
}
