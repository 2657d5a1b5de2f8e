package scripthash

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewKnownVector(t *testing.T) {
	// A P2PKH script to OP_DUP OP_HASH160 <20 zero bytes> OP_EQUALVERIFY OP_CHECKSIG.
	script := []byte{
		0x76, 0xa9, 0x14,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0x88, 0xac,
	}

	digest := sha256.Sum256(script)
	var want Hash
	for i, b := range digest {
		want[len(want)-1-i] = b
	}

	require.Equal(t, want, New(script))
}

func TestRoundTripAgainstDefinition(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		script := rapid.SliceOfN(rapid.Byte(), 0, 520).Draw(t, "script")

		got := New(script)

		digest := sha256.Sum256(script)
		for i := range digest {
			if got[i] != digest[len(digest)-1-i] {
				t.Fatalf("byte %d: got %x want reversed digest byte %x", i, got[i], digest[len(digest)-1-i])
			}
		}
	})
}

func TestDistinctScriptsRarelyCollide(t *testing.T) {
	seen := make(map[Hash][]byte)
	rapid.Check(t, func(t *rapid.T) {
		script := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "script")
		h := New(script)
		if prior, ok := seen[h]; ok {
			require.Equal(t, prior, script, "collision between distinct scripts")
			return
		}
		seen[h] = script
	})
}
