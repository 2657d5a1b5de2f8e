// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import "github.com/btcsuite/btclog"

// log is the package-level logger, disabled by default until the caller
// wires one up with UseLogger.
var log = btclog.Disabled

// UseLogger sets the package-wide logger used by the cache.
func UseLogger(logger btclog.Logger) {
	log = logger
}
