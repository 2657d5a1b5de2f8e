// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"fmt"

	"github.com/toole-brendan/walletindex/descriptor"
	"github.com/toole-brendan/walletindex/scripthash"
	"github.com/toole-brendan/walletindex/walleterr"
	"github.com/toole-brendan/walletindex/wallettypes"
)

// CacheAddress watches a raw output script directly, outside of any
// descriptor. Watching a script that is already watched is a no-op.
func (c *Cache) CacheAddress(script []byte) error {
	h := scripthash.New(script)
	if _, ok := c.addresses[h]; ok {
		return nil
	}

	a := &wallettypes.CachedAddress{ScriptHash: h, Script: append([]byte(nil), script...)}
	if err := c.store.SaveAddress(a); err != nil {
		return err
	}
	c.addresses[h] = a
	return nil
}

// PushDescriptor begins watching a new descriptor, deriving and caching
// DefaultGapLimit (or the configured gap limit) addresses immediately so
// the gap-limit invariant holds from the start.
func (c *Cache) PushDescriptor(expr string) error {
	if _, exists := c.descriptors[expr]; exists {
		return walleterr.Descriptor("push-descriptor", fmt.Errorf("descriptor %q already watched", expr))
	}

	d, err := descriptor.Parse(expr)
	if err != nil {
		return walleterr.Descriptor("push-descriptor", err)
	}

	st := &descriptorState{desc: d, highestUsedIdx: -1}
	c.descriptors[expr] = st

	if err := c.store.SaveDescriptor(wallettypes.DescriptorRecord{Expr: expr, NextIndex: 0}); err != nil {
		delete(c.descriptors, expr)
		return err
	}

	return c.extendDescriptor(expr, st)
}

// DeriveAddresses derives and watches count more scripts from an
// already-watched descriptor, beyond whatever the gap-limit policy would
// derive on its own. Used by callers that want to pre-warm a specific
// range (for example, restoring a wallet from a known used-address count).
func (c *Cache) DeriveAddresses(expr string, count uint32) error {
	st, ok := c.descriptors[expr]
	if !ok {
		return walleterr.Descriptor("derive-addresses", fmt.Errorf("descriptor %q not watched", expr))
	}
	for i := uint32(0); i < count; i++ {
		if err := c.deriveOne(expr, st); err != nil {
			return err
		}
	}
	return c.store.SaveDescriptor(wallettypes.DescriptorRecord{Expr: expr, NextIndex: st.desc.NextIndex()})
}

// deriveOne advances the descriptor's counter by one, registers the newly
// derived script as a watched address with zero balance, and persists it.
func (c *Cache) deriveOne(expr string, st *descriptorState) error {
	index, script, err := st.desc.Advance()
	if err != nil {
		return walleterr.Descriptor("derive", err)
	}

	h := scripthash.New(script)
	c.derivedFrom[h] = derivedRef{expr: expr, index: index}

	a := &wallettypes.CachedAddress{ScriptHash: h, Script: script}
	if err := c.store.SaveAddress(a); err != nil {
		return err
	}
	c.addresses[h] = a
	return nil
}

// extendDescriptor derives additional scripts until at least c.gapLimit
// consecutive unused scripts follow the highest used index.
func (c *Cache) extendDescriptor(expr string, st *descriptorState) error {
	target := uint32(st.highestUsedIdx+1) + c.gapLimit
	for st.desc.NextIndex() < target {
		if err := c.deriveOne(expr, st); err != nil {
			return err
		}
	}
	return c.store.SaveDescriptor(wallettypes.DescriptorRecord{Expr: expr, NextIndex: st.desc.NextIndex()})
}

// markUsed records that the script at derivedRef belongs to a descriptor
// index that has now been observed in a block, extending that descriptor's
// derivation if the gap-limit invariant would otherwise be violated.
func (c *Cache) markUsed(ref derivedRef) error {
	st, ok := c.descriptors[ref.expr]
	if !ok {
		return nil
	}
	if int64(ref.index) <= st.highestUsedIdx {
		return nil
	}
	st.highestUsedIdx = int64(ref.index)
	return c.extendDescriptor(ref.expr, st)
}
