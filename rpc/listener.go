// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	upstream "github.com/btcsuite/btcd/btcjson"

	walletjson "github.com/toole-brendan/walletindex/btcjson"
)

// jsonRequest is the standard JSON-RPC 1.0 envelope bitcoind and btcd both
// speak: a method name, positional params, and an echoed id.
type jsonRequest struct {
	ID     interface{}       `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type jsonResponse struct {
	ID     interface{}        `json:"id"`
	Result interface{}        `json:"result"`
	Error  *upstream.RPCError `json:"error"`
}

// ListenAndServe starts an HTTP JSON-RPC listener at addr. It blocks until
// the server stops or ctx is canceled.
//
// There is no dedicated JSON-RPC transport library in this project's
// dependency set, so the HTTP plumbing is hand-rolled on top of net/http
// and encoding/json the way btcd's own rpcserver does underneath its much
// larger command table.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHTTP)

	httpServer := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req jsonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, nil, &upstream.RPCError{Code: upstream.ErrRPCParse, Message: err.Error()})
		return
	}

	cmd, err := unmarshalCmd(req.Method, req.Params)
	if err != nil {
		writeJSONError(w, req.ID, &upstream.RPCError{Code: upstream.ErrRPCInvalidParameter, Message: err.Error()})
		return
	}

	result, err := s.Dispatch(req.Method, cmd, r.Context().Done())
	if err != nil {
		var rpcErr *upstream.RPCError
		if errors.As(err, &rpcErr) {
			writeJSONError(w, req.ID, rpcErr)
			return
		}
		writeJSONError(w, req.ID, &upstream.RPCError{Code: upstream.ErrRPCInternal, Message: err.Error()})
		return
	}

	writeJSONResult(w, req.ID, result)
}

// unmarshalCmd decodes the first param, a JSON object keyed by the
// command's field tags, into the concrete command type registered for
// method. Any further params are ignored.
func unmarshalCmd(method string, params []json.RawMessage) (interface{}, error) {
	cmd, err := newEmptyCmd(method)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params[0], cmd); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

func newEmptyCmd(method string) (interface{}, error) {
	switch method {
	case walletjson.MethodListDescriptors:
		return &walletjson.ListDescriptorsCmd{}, nil
	case walletjson.MethodLoadDescriptor:
		return &walletjson.LoadDescriptorCmd{}, nil
	case walletjson.MethodGetAddressBalance:
		return &walletjson.GetAddressBalanceCmd{}, nil
	case walletjson.MethodGetAddressHistory:
		return &walletjson.GetAddressHistoryCmd{}, nil
	case walletjson.MethodGetAddressUTXOs:
		return &walletjson.GetAddressUTXOsCmd{}, nil
	case walletjson.MethodGetTxMerkleProof:
		return &walletjson.GetTxMerkleProofCmd{}, nil
	case walletjson.MethodGetTransaction:
		return &walletjson.GetTransactionCmd{}, nil
	case "blockchain.headers.get_roots":
		return &struct{}{}, nil
	case "blockchain.transaction.find_out":
		return &findTxOutCmd{}, nil
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
}

func writeJSONResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jsonResponse{ID: id, Result: result})
}

func writeJSONError(w http.ResponseWriter, id interface{}, rpcErr *upstream.RPCError) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jsonResponse{ID: id, Error: rpcErr})
}
