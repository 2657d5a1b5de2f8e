// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	upstream "github.com/btcsuite/btcd/btcjson"
	walletjson "github.com/toole-brendan/walletindex/btcjson"
	"github.com/toole-brendan/walletindex/engine"
	"github.com/toole-brendan/walletindex/scripthash"
	"github.com/toole-brendan/walletindex/walletstore"
)

type stubChainSource struct {
	roots []string
	out   *wire.TxOut
	err   error
}

func (s stubChainSource) GetRoots() ([]string, error) { return s.roots, nil }

func (s stubChainSource) FindTxOut(_ chainhash.Hash, _ uint32) (*wire.TxOut, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func p2pkhScript(tag byte) []byte {
	return []byte{0x76, 0xa9, 0x14, tag, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x88, 0xac}
}

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	e, err := engine.New(walletstore.NewMemStore(), 5)
	require.NoError(t, err)
	s := NewServer(e, stubChainSource{roots: []string{"aabb"}}, &chaincfg.MainNetParams)
	return s, e
}

func TestDispatchRejectsUnknownMethod(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.Dispatch("not.a.real.method", nil, nil)
	require.Error(t, err)

	rpcErr, ok := err.(*upstream.RPCError)
	require.True(t, ok)
	require.Equal(t, upstream.ErrRPCMethodNotFound, rpcErr.Code)
}

func TestGetAddressBalanceRoundTrip(t *testing.T) {
	s, e := newTestServer(t)
	script := p2pkhScript(0x01)
	require.NoError(t, e.CacheAddress(script))
	h := scripthash.New(script)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{0x42}, Index: 0},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: 2500, PkScript: script})
	require.NoError(t, e.ProcessBlock(&wire.MsgBlock{Transactions: []*wire.MsgTx{tx}}, 0))

	cmd := &walletjson.GetAddressBalanceCmd{ScriptHash: h.String()}
	raw, err := s.Dispatch(walletjson.MethodGetAddressBalance, cmd, nil)
	require.NoError(t, err)

	result, ok := raw.(*walletjson.GetAddressBalanceResult)
	require.True(t, ok)
	require.Equal(t, uint64(2500), result.Confirmed)
}

func TestGetAddressBalanceRejectsUnwatchedScriptHash(t *testing.T) {
	s, _ := newTestServer(t)

	cmd := &walletjson.GetAddressBalanceCmd{ScriptHash: chainhash.Hash{0x01}.String()}
	_, err := s.Dispatch(walletjson.MethodGetAddressBalance, cmd, nil)
	require.Error(t, err)

	rpcErr, ok := err.(*upstream.RPCError)
	require.True(t, ok)
	require.Equal(t, upstream.ErrRPCInvalidAddressOrKey, rpcErr.Code)
}

func TestGetAddressBalanceRejectsMalformedScriptHash(t *testing.T) {
	s, _ := newTestServer(t)

	cmd := &walletjson.GetAddressBalanceCmd{ScriptHash: "not-hex"}
	_, err := s.Dispatch(walletjson.MethodGetAddressBalance, cmd, nil)
	require.Error(t, err)

	rpcErr, ok := err.(*upstream.RPCError)
	require.True(t, ok)
	require.Equal(t, upstream.ErrRPCInvalidParameter, rpcErr.Code)
}

func TestLoadDescriptorDerivesGapLimitAddresses(t *testing.T) {
	s, e := newTestServer(t)

	cmd := &walletjson.LoadDescriptorCmd{Descriptor: "wpkh(" + testXpub + "/0/*)"}
	raw, err := s.Dispatch(walletjson.MethodLoadDescriptor, cmd, nil)
	require.NoError(t, err)

	result, ok := raw.(*walletjson.LoadDescriptorResult)
	require.True(t, ok)
	require.Equal(t, uint32(5), result.AddressesDerived)

	recs := e.ListDescriptors()
	require.Len(t, recs, 1)
	require.Equal(t, cmd.Descriptor, recs[0].Expr)
}

func TestGetTransactionReturnsRawHexWhenNotVerbose(t *testing.T) {
	s, e := newTestServer(t)
	script := p2pkhScript(0x02)
	require.NoError(t, e.CacheAddress(script))

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{0x43}, Index: 0},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: 1000, PkScript: script})
	require.NoError(t, e.ProcessBlock(&wire.MsgBlock{Transactions: []*wire.MsgTx{tx}}, 0))

	cmd := &walletjson.GetTransactionCmd{TxID: tx.TxHash().String()}
	raw, err := s.Dispatch(walletjson.MethodGetTransaction, cmd, nil)
	require.NoError(t, err)

	result, ok := raw.(*walletjson.GetTransactionResult)
	require.True(t, ok)
	require.NotEmpty(t, string(*result))
}

func TestGetTransactionVerboseDecodesScriptPubKey(t *testing.T) {
	s, e := newTestServer(t)
	script := p2pkhScript(0x03)
	require.NoError(t, e.CacheAddress(script))

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{0x44}, Index: 0},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: 1000, PkScript: script})
	require.NoError(t, e.ProcessBlock(&wire.MsgBlock{Transactions: []*wire.MsgTx{tx}}, 0))

	verbose := true
	cmd := &walletjson.GetTransactionCmd{TxID: tx.TxHash().String(), Verbose: &verbose}
	raw, err := s.Dispatch(walletjson.MethodGetTransaction, cmd, nil)
	require.NoError(t, err)

	result, ok := raw.(*VerboseTransaction)
	require.True(t, ok)
	require.Equal(t, tx.TxHash().String(), result.Txid)
	require.Len(t, result.Vout, 1)
	require.Equal(t, "pubkeyhash", result.Vout[0].ScriptPubKey.Type)

	// tx carries no witness data, so stripped size equals total size and
	// weight collapses to the familiar non-segwit 4x multiplier.
	require.Equal(t, tx.SerializeSize()*4, result.Weight)
	require.Equal(t, tx.SerializeSize(), result.Vsize)
}

func TestGetTransactionRejectsUncachedTxid(t *testing.T) {
	s, _ := newTestServer(t)

	cmd := &walletjson.GetTransactionCmd{TxID: chainhash.Hash{0x01}.String()}
	_, err := s.Dispatch(walletjson.MethodGetTransaction, cmd, nil)
	require.Error(t, err)

	rpcErr, ok := err.(*upstream.RPCError)
	require.True(t, ok)
	require.Equal(t, upstream.ErrRPCNoTxInfo, rpcErr.Code)
}

func TestGetRootsDelegatesToChainSource(t *testing.T) {
	s, _ := newTestServer(t)

	raw, err := s.Dispatch("blockchain.headers.get_roots", &struct{}{}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"aabb"}, raw)
}

func TestFindTxOutDelegatesToChainSource(t *testing.T) {
	e, err := engine.New(walletstore.NewMemStore(), 5)
	require.NoError(t, err)
	want := &wire.TxOut{Value: 7777, PkScript: p2pkhScript(0x05)}
	s := NewServer(e, stubChainSource{out: want}, &chaincfg.MainNetParams)

	cmd := &findTxOutCmd{Txid: chainhash.Hash{0x09}.String(), Index: 0}
	raw, err := s.Dispatch("blockchain.transaction.find_out", cmd, nil)
	require.NoError(t, err)
	require.Equal(t, want, raw)
}

const testXpub = "xpub6CUGRUonZSQ4TWtTMmzXdrXDtypWKiKrhko4egpiMZbpiaQL2jkwSB1icqYh2cfDfVxdx4df189oLKnC5fSwqPfgyP3hooxujYzAu3fDVmz"
