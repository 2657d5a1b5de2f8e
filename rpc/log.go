// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger sets the package-wide logger used by the RPC server.
func UseLogger(logger btclog.Logger) {
	log = logger
}
