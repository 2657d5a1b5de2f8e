package descriptor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// A well-formed compressed pubkey (generator point G, from secp256k1 test
// vectors) used wherever a concrete key is needed.
const testPubKeyHex = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

const testXpub = "xpub6CUGRUonZSQ4TWtTMmzXdrXDtypWKiKrhko4egpiMZbpiaQL2jkwSB1icqYh2cfDfVxdx4df189oLKnC5fSwqPfgyP3hooxujYzAu3fDVmz"

func TestParseRejectsPrivateMaterial(t *testing.T) {
	_, err := Parse("pkh(xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbPy6cq3jPTfjp7nZnwnQdJkghUHB9EEiAZSQyKgjhKpEKf5RxVWMP42/0)")
	require.Error(t, err)
}

func TestParseRejectsHardenedPath(t *testing.T) {
	_, err := Parse("wpkh(" + testXpub + "/0'/*)")
	require.Error(t, err)
}

func TestParseChecksumMismatch(t *testing.T) {
	_, err := Parse("pkh(" + testPubKeyHex + ")#deadbeef")
	require.Error(t, err)
}

func TestParseAndDeriveConcretePubKey(t *testing.T) {
	d, err := Parse("pkh(" + testPubKeyHex + ")")
	require.NoError(t, err)
	require.Equal(t, KindPKH, d.Kind())

	script, err := d.Derive(0)
	require.NoError(t, err)
	require.NotEmpty(t, script)

	script2, err := d.Derive(0)
	require.NoError(t, err)
	require.Equal(t, script, script2)

	_, err = d.Derive(1)
	require.Error(t, err)
}

func TestRangedDescriptorDeterministicAndSequential(t *testing.T) {
	d, err := Parse("wpkh(" + testXpub + "/0/*)")
	require.NoError(t, err)
	require.Equal(t, uint32(0), d.NextIndex())

	idx0, s0, err := d.Advance()
	require.NoError(t, err)
	require.Equal(t, uint32(0), idx0)
	require.Equal(t, uint32(1), d.NextIndex())

	idx1, s1, err := d.Advance()
	require.NoError(t, err)
	require.Equal(t, uint32(1), idx1)
	require.NotEqual(t, s0, s1)

	// Re-deriving index 0 must be stable.
	again, err := d.Derive(0)
	require.NoError(t, err)
	require.Equal(t, s0, again)
}

func TestDifferentKindsProduceDifferentScripts(t *testing.T) {
	kinds := []string{
		"pkh(" + testPubKeyHex + ")",
		"wpkh(" + testPubKeyHex + ")",
		"sh(wpkh(" + testPubKeyHex + "))",
		"tr(" + testPubKeyHex + ")",
	}
	seen := map[string]bool{}
	for _, expr := range kinds {
		d, err := Parse(expr)
		require.NoError(t, err)
		script, err := d.Derive(0)
		require.NoError(t, err)
		require.False(t, seen[string(script)], "duplicate script for %s", expr)
		seen[string(script)] = true
	}
}

func TestSetNextIndexRestoresCounterWithoutDeriving(t *testing.T) {
	d, err := Parse("wpkh(" + testXpub + "/0/*)")
	require.NoError(t, err)
	d.SetNextIndex(42)
	require.Equal(t, uint32(42), d.NextIndex())
}

// TestDerivationIsDeterministicForAnyIndex checks that deriving the same
// ranged-descriptor index twice in a row, for any index in 0..10000,
// yields the same script.
func TestDerivationIsDeterministicForAnyIndex(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d, err := Parse("wpkh(" + testXpub + "/0/*)")
		require.NoError(rt, err)

		index := rapid.Uint32Range(0, 10000).Draw(rt, "index")

		first, err := d.Derive(index)
		require.NoError(rt, err)

		second, err := d.Derive(index)
		require.NoError(rt, err)

		require.Equal(rt, first, second)
	})
}
