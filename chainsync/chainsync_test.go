// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/toole-brendan/walletindex/engine"
	"github.com/toole-brendan/walletindex/walletstore"
)

func TestEngineSatisfiesConsumerInterface(t *testing.T) {
	e, err := engine.New(walletstore.NewMemStore(), 2)
	require.NoError(t, err)

	var _ Engine = e
	NewConsumer(e)
}

type fakeEngine struct {
	processed  []uint32
	rolledBack []uint32
	failNext   error
}

func (f *fakeEngine) ProcessBlock(block *wire.MsgBlock, height uint32) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.processed = append(f.processed, height)
	return nil
}

func (f *fakeEngine) Rollback(height uint32) error {
	f.rolledBack = append(f.rolledBack, height)
	return nil
}

func TestWantsSpentUTXOsIsAlwaysFalse(t *testing.T) {
	c := NewConsumer(&fakeEngine{})
	require.False(t, c.WantsSpentUTXOs())
}

func TestOnBlockDelegatesToEngine(t *testing.T) {
	fe := &fakeEngine{}
	c := NewConsumer(fe)

	require.NoError(t, c.OnBlock(&wire.MsgBlock{}, 42))
	require.Equal(t, []uint32{42}, fe.processed)
}

func TestOnBlockDisconnectedDelegatesToEngine(t *testing.T) {
	fe := &fakeEngine{}
	c := NewConsumer(fe)

	require.NoError(t, c.OnBlockDisconnected(41))
	require.Equal(t, []uint32{41}, fe.rolledBack)
}
