// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package descriptor parses output-script descriptors and derives the
// scripts they describe. It recognizes pkh(key), wpkh(key), sh(wpkh(key))
// and tr(key), where key is either a concrete public key or an xpub with an
// optional derivation path ending in the wildcard "*". It never accepts a
// descriptor that would require a private key: no xprv/tprv keys, no
// hardened path segments.
//
// Script construction follows the same ScriptBuilder/Hash160/bech32 idiom
// as addresses.shell_addresses.go, generalized from that file's
// Shell-specific address family to the standard P2PKH/P2WPKH/P2SH-P2WPKH/
// P2TR script kinds a descriptor can name.
package descriptor

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/lru"

	"github.com/toole-brendan/walletindex/walleterr"
)

// Kind identifies which output script family a descriptor derives.
type Kind int

const (
	KindPKH Kind = iota
	KindWPKH
	KindSHWPKH
	KindTR
)

func (k Kind) String() string {
	switch k {
	case KindPKH:
		return "pkh"
	case KindWPKH:
		return "wpkh"
	case KindSHWPKH:
		return "sh(wpkh)"
	case KindTR:
		return "tr"
	default:
		return "unknown"
	}
}

// scriptCacheSize bounds the memoized-script LRU per descriptor. Eviction
// only drops memoized bytes, never the authoritative nextIndex counter, so
// it cannot affect correctness, only re-derivation cost.
const scriptCacheSize = 4096

// Descriptor is a parsed, ready-to-derive descriptor expression. It owns a
// monotonically increasing derivation counter: derived indices are never
// skipped, and re-deriving any index yields the same script every time.
type Descriptor struct {
	// Expr is the canonical expression, without any "#checksum" suffix.
	Expr string
	kind Kind

	// Exactly one of concreteKey / extendedKey is set.
	concreteKey *btcec.PublicKey
	extendedKey *hdkeychain.ExtendedKey // already walked to the branch before the wildcard
	ranged      bool                    // true if extendedKey has a wildcard path segment

	mu        sync.Mutex
	nextIndex uint32
	cache     *lru.Map[uint32, []byte]
}

// Parse recognizes pkh(key), wpkh(key), sh(wpkh(key)) and tr(key), where
// key is a compressed-pubkey hex string or an extended public key
// optionally followed by "/path/*". An optional "#xxxxxxxx" checksum
// suffix is validated if present.
func Parse(expr string) (*Descriptor, error) {
	body := expr
	if i := strings.IndexByte(expr, '#'); i >= 0 {
		body = expr[:i]
		suffix := expr[i+1:]
		want, ok := checksum(body)
		if !ok {
			return nil, walleterr.Descriptor("parse", fmt.Errorf("invalid characters in descriptor"))
		}
		if suffix != want {
			return nil, walleterr.Descriptor("parse", fmt.Errorf("descriptor checksum mismatch: have %q want %q", suffix, want))
		}
	}

	kind, keyExpr, err := unwrap(body)
	if err != nil {
		return nil, walleterr.Descriptor("parse", err)
	}

	d := &Descriptor{
		Expr:  body,
		kind:  kind,
		cache: lru.NewMap[uint32, []byte](scriptCacheSize),
	}

	if err := d.parseKey(keyExpr); err != nil {
		return nil, walleterr.Descriptor("parse", err)
	}

	return d, nil
}

// unwrap strips the outer function wrapper(s) and returns the script kind
// and the innermost key expression.
func unwrap(body string) (Kind, string, error) {
	switch {
	case strings.HasPrefix(body, "pkh(") && strings.HasSuffix(body, ")"):
		return KindPKH, body[len("pkh(") : len(body)-1], nil
	case strings.HasPrefix(body, "wpkh(") && strings.HasSuffix(body, ")"):
		return KindWPKH, body[len("wpkh(") : len(body)-1], nil
	case strings.HasPrefix(body, "tr(") && strings.HasSuffix(body, ")"):
		return KindTR, body[len("tr(") : len(body)-1], nil
	case strings.HasPrefix(body, "sh(wpkh(") && strings.HasSuffix(body, "))"):
		return KindSHWPKH, body[len("sh(wpkh(") : len(body)-2], nil
	default:
		return 0, "", fmt.Errorf("unsupported or malformed descriptor expression %q", body)
	}
}

// parseKey fills in either concreteKey or extendedKey+ranged from a key
// expression of the form "<hexpubkey>" or "<xpub...>[/path]".
func (d *Descriptor) parseKey(keyExpr string) error {
	parts := strings.Split(keyExpr, "/")
	keyStr := parts[0]
	pathParts := parts[1:]

	if strings.HasPrefix(keyStr, "xprv") || strings.HasPrefix(keyStr, "tprv") {
		return fmt.Errorf("descriptor requires a private key, which this engine never handles")
	}

	if strings.HasPrefix(keyStr, "xpub") || strings.HasPrefix(keyStr, "tpub") {
		ext, err := hdkeychain.NewKeyFromString(keyStr)
		if err != nil {
			return fmt.Errorf("invalid extended key: %w", err)
		}
		if ext.IsPrivate() {
			return fmt.Errorf("descriptor requires a private key, which this engine never handles")
		}

		branch := ext
		ranged := false
		for i, seg := range pathParts {
			last := i == len(pathParts)-1
			if seg == "*" {
				if !last {
					return fmt.Errorf("wildcard must be the final path element")
				}
				ranged = true
				break
			}
			if strings.HasSuffix(seg, "'") || strings.HasSuffix(seg, "h") || strings.HasSuffix(seg, "H") {
				return fmt.Errorf("hardened derivation %q requires a private key, which this engine never handles", seg)
			}
			idx, err := strconv.ParseUint(seg, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid path element %q: %w", seg, err)
			}
			branch, err = branch.Derive(uint32(idx))
			if err != nil {
				return fmt.Errorf("deriving path element %q: %w", seg, err)
			}
		}

		d.extendedKey = branch
		d.ranged = ranged
		return nil
	}

	raw, err := decodeHex(keyStr)
	if err != nil {
		return fmt.Errorf("invalid public key %q: %w", keyStr, err)
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return fmt.Errorf("invalid public key %q: %w", keyStr, err)
	}
	d.concreteKey = pub
	return nil
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, ok1 := hexDigit(s[2*i])
		lo, ok2 := hexDigit(s[2*i+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("invalid hex character")
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexDigit(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}

// NextIndex returns the current derivation counter: the lowest index that
// has never been derived. Callers use this for gap-limit extension.
func (d *Descriptor) NextIndex() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nextIndex
}

// Derive returns the output script for index, deterministically. It does
// not advance nextIndex; re-deriving any already-derived index is always
// safe and yields the same bytes.
func (d *Descriptor) Derive(index uint32) ([]byte, error) {
	if script, ok := d.cache.Get(index); ok {
		return script, nil
	}

	pub, err := d.pubKeyAt(index)
	if err != nil {
		return nil, walleterr.Descriptor("derive", err)
	}

	script, err := scriptFor(d.kind, pub)
	if err != nil {
		return nil, walleterr.Descriptor("derive", err)
	}

	d.cache.Put(index, script)
	return script, nil
}

// Advance derives the script at the current nextIndex, advances the
// counter, and returns both the index that was just derived and its
// script. This is how the cache extends gap-limit coverage.
func (d *Descriptor) Advance() (uint32, []byte, error) {
	d.mu.Lock()
	index := d.nextIndex
	d.mu.Unlock()

	script, err := d.Derive(index)
	if err != nil {
		return 0, nil, err
	}

	d.mu.Lock()
	if d.nextIndex == index {
		d.nextIndex = index + 1
	}
	d.mu.Unlock()

	return index, script, nil
}

// SetNextIndex restores the derivation counter after rehydrating from the
// durable store; it never derives anything itself.
func (d *Descriptor) SetNextIndex(n uint32) {
	d.mu.Lock()
	d.nextIndex = n
	d.mu.Unlock()
}

func (d *Descriptor) pubKeyAt(index uint32) (*btcec.PublicKey, error) {
	if d.concreteKey != nil {
		if index != 0 {
			return nil, fmt.Errorf("index %d out of range for non-ranged descriptor", index)
		}
		return d.concreteKey, nil
	}

	key := d.extendedKey
	if d.ranged {
		if index >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("index %d would derive a hardened child, which requires a private key", index)
		}
		child, err := key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("deriving index %d: %w", index, err)
		}
		key = child
	} else if index != 0 {
		return nil, fmt.Errorf("index %d out of range for non-ranged descriptor", index)
	}

	return key.ECPubKey()
}

// scriptFor builds the output script for kind from a derived public key,
// following the same ScriptBuilder/Hash160 technique as
// addresses.GenerateShellAddress and addresses.CreateShellScript.
func scriptFor(kind Kind, pub *btcec.PublicKey) ([]byte, error) {
	compressed := pub.SerializeCompressed()

	switch kind {
	case KindPKH:
		hash := btcutil.Hash160(compressed)
		return txscript.NewScriptBuilder().
			AddOp(txscript.OP_DUP).
			AddOp(txscript.OP_HASH160).
			AddData(hash).
			AddOp(txscript.OP_EQUALVERIFY).
			AddOp(txscript.OP_CHECKSIG).
			Script()

	case KindWPKH:
		hash := btcutil.Hash160(compressed)
		return txscript.NewScriptBuilder().
			AddOp(txscript.OP_0).
			AddData(hash).
			Script()

	case KindSHWPKH:
		hash := btcutil.Hash160(compressed)
		redeem, err := txscript.NewScriptBuilder().
			AddOp(txscript.OP_0).
			AddData(hash).
			Script()
		if err != nil {
			return nil, err
		}
		redeemHash := btcutil.Hash160(redeem)
		return txscript.NewScriptBuilder().
			AddOp(txscript.OP_HASH160).
			AddData(redeemHash).
			AddOp(txscript.OP_EQUAL).
			Script()

	case KindTR:
		// Key-path-only output: tweak the internal key with the BIP-341
		// TapTweak before building the witness program, exactly as a real
		// tr(key) output does with an empty script tree.
		outputKey := txscript.ComputeTaprootOutputKey(pub, nil)
		return txscript.NewScriptBuilder().
			AddOp(txscript.OP_1).
			AddData(schnorr.SerializePubKey(outputKey)).
			Script()

	default:
		return nil, fmt.Errorf("unsupported script kind %v", kind)
	}
}

// Kind reports which script family this descriptor derives.
func (d *Descriptor) Kind() Kind { return d.kind }
