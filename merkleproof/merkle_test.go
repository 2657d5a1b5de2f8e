package merkleproof

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func dummyTx(seed byte) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{seed}, Index: 0},
	})
	tx.AddTxOut(&wire.TxOut{Value: int64(seed) + 1, PkScript: []byte{seed}})
	return tx
}

func TestSingleTransactionBlockRootIsTxid(t *testing.T) {
	tx := dummyTx(1)
	txid := tx.TxHash()

	proof, err := Build([]*wire.MsgTx{tx}, txid)
	require.NoError(t, err)
	require.Empty(t, proof.Siblings)
	require.Equal(t, uint32(0), proof.Position)

	require.True(t, Verify(proof, txid))
}

func TestBuildThenVerifyRoundTrips(t *testing.T) {
	for n := 1; n <= 13; n++ {
		txs := make([]*wire.MsgTx, n)
		for i := range txs {
			txs[i] = dummyTx(byte(i + 1))
		}
		root := computeRoot(t, txs)

		for i, tx := range txs {
			txid := tx.TxHash()
			proof, err := Build(txs, txid)
			require.NoError(t, err, "n=%d i=%d", n, i)
			require.True(t, Verify(proof, root), "n=%d i=%d", n, i)
		}
	}
}

func TestTamperedSiblingFailsVerify(t *testing.T) {
	txs := []*wire.MsgTx{dummyTx(1), dummyTx(2), dummyTx(3)}
	root := computeRoot(t, txs)

	proof, err := Build(txs, txs[0].TxHash())
	require.NoError(t, err)
	require.NotEmpty(t, proof.Siblings)

	proof.Siblings[0][0] ^= 0xff
	require.False(t, Verify(proof, root))
}

func TestTargetNotInBlock(t *testing.T) {
	txs := []*wire.MsgTx{dummyTx(1), dummyTx(2)}
	_, err := Build(txs, chainhash.Hash{0xff})
	require.True(t, IsNotInBlock(err))
}

func TestVerifyHexMalformed(t *testing.T) {
	err := VerifyHex("not-hex", 0, nil, "also-not-hex")
	require.Error(t, err)
}

func TestRapidRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "n")
		txs := make([]*wire.MsgTx, n)
		for i := range txs {
			txs[i] = dummyTx(byte(rapid.IntRange(0, 255).Draw(t, "seed")))
		}
		root := computeRootT(t, txs)

		idx := rapid.IntRange(0, n-1).Draw(t, "idx")
		target := txs[idx].TxHash()

		proof, err := Build(txs, target)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		if !Verify(proof, root) {
			t.Fatalf("proof for index %d of %d did not verify", idx, n)
		}
	})
}

// computeRoot folds the full tree the same way Build does, for use as an
// oracle independent of Build's own internal bookkeeping.
func computeRoot(t *testing.T, txs []*wire.MsgTx) chainhash.Hash {
	t.Helper()
	return foldRoot(txs)
}

func computeRootT(t *rapid.T, txs []*wire.MsgTx) chainhash.Hash {
	return foldRoot(txs)
}

func foldRoot(txs []*wire.MsgTx) chainhash.Hash {
	level := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.TxHash()
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			next[i] = hashMerkleBranches(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}
