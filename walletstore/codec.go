// Copyright (c) 2025 The walletindex developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/toole-brendan/walletindex/merkleproof"
	"github.com/toole-brendan/walletindex/wallettypes"
)

// codecVersion is bumped whenever the on-disk record layout changes in a
// non-backward-compatible way. It is written ahead of every record so a
// future reader (or this one, with a corrupted record) can tell an honest
// decode failure from an unreadable format.
const codecVersion = 1

func encodeAddress(a *wallettypes.CachedAddress) []byte {
	var buf bytes.Buffer
	buf.WriteByte(codecVersion)
	buf.Write(a.ScriptHash[:])
	writeVarBytes(&buf, a.Script)
	writeUint64(&buf, a.Balance)

	writeVarInt(&buf, uint64(len(a.Transactions)))
	for _, txid := range a.Transactions {
		buf.Write(txid[:])
	}

	writeVarInt(&buf, uint64(len(a.UTXOs)))
	for _, op := range a.UTXOs {
		buf.Write(op.Hash[:])
		writeUint32(&buf, op.Index)
	}

	return buf.Bytes()
}

func decodeAddress(data []byte) (*wallettypes.CachedAddress, error) {
	r := bytes.NewReader(data)
	if err := expectVersion(r); err != nil {
		return nil, err
	}

	a := &wallettypes.CachedAddress{}
	if _, err := io.ReadFull(r, a.ScriptHash[:]); err != nil {
		return nil, fmt.Errorf("script hash: %w", err)
	}
	script, err := readVarBytes(r)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	a.Script = script

	balance, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	a.Balance = balance

	nTx, err := readVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("tx count: %w", err)
	}
	a.Transactions = make([]chainhash.Hash, nTx)
	for i := range a.Transactions {
		if _, err := io.ReadFull(r, a.Transactions[i][:]); err != nil {
			return nil, fmt.Errorf("txid %d: %w", i, err)
		}
	}

	nUtxo, err := readVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("utxo count: %w", err)
	}
	a.UTXOs = make([]wire.OutPoint, nUtxo)
	for i := range a.UTXOs {
		if _, err := io.ReadFull(r, a.UTXOs[i].Hash[:]); err != nil {
			return nil, fmt.Errorf("utxo %d hash: %w", i, err)
		}
		idx, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("utxo %d index: %w", i, err)
		}
		a.UTXOs[i].Index = idx
	}

	return a, nil
}

func encodeTransaction(t *wallettypes.CachedTransaction) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(codecVersion)
	buf.Write(t.Hash[:])
	writeUint32(&buf, t.Height)
	writeUint32(&buf, t.Position)

	if t.MerkleBlock != nil {
		buf.WriteByte(1)
		writeUint32(&buf, t.MerkleBlock.Position)
		writeVarInt(&buf, uint64(len(t.MerkleBlock.Siblings)))
		for _, s := range t.MerkleBlock.Siblings {
			buf.Write(s[:])
		}
	} else {
		buf.WriteByte(0)
	}

	var txBuf bytes.Buffer
	if err := t.Tx.Serialize(&txBuf); err != nil {
		return nil, fmt.Errorf("serialize tx: %w", err)
	}
	writeVarBytes(&buf, txBuf.Bytes())

	return buf.Bytes(), nil
}

func decodeTransaction(data []byte) (*wallettypes.CachedTransaction, error) {
	r := bytes.NewReader(data)
	if err := expectVersion(r); err != nil {
		return nil, err
	}

	t := &wallettypes.CachedTransaction{}
	if _, err := io.ReadFull(r, t.Hash[:]); err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	height, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}
	t.Height = height

	position, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("position: %w", err)
	}
	t.Position = position

	hasProof, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("proof flag: %w", err)
	}
	if hasProof == 1 {
		proof := &merkleproof.Proof{TargetTxid: t.Hash}
		pos, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("proof position: %w", err)
		}
		proof.Position = pos

		n, err := readVarInt(r)
		if err != nil {
			return nil, fmt.Errorf("proof sibling count: %w", err)
		}
		proof.Siblings = make([]chainhash.Hash, n)
		for i := range proof.Siblings {
			if _, err := io.ReadFull(r, proof.Siblings[i][:]); err != nil {
				return nil, fmt.Errorf("proof sibling %d: %w", i, err)
			}
		}
		t.MerkleBlock = proof
	}

	txBytes, err := readVarBytes(r)
	if err != nil {
		return nil, fmt.Errorf("tx bytes: %w", err)
	}
	msgTx := wire.NewMsgTx(wire.TxVersion)
	if err := msgTx.Deserialize(bytes.NewReader(txBytes)); err != nil {
		return nil, fmt.Errorf("deserialize tx: %w", err)
	}
	t.Tx = msgTx

	return t, nil
}

func encodeDescriptor(rec wallettypes.DescriptorRecord) []byte {
	var buf bytes.Buffer
	buf.WriteByte(codecVersion)
	writeVarBytes(&buf, []byte(rec.Expr))
	writeUint32(&buf, rec.NextIndex)
	return buf.Bytes()
}

func decodeDescriptor(data []byte) (wallettypes.DescriptorRecord, error) {
	r := bytes.NewReader(data)
	if err := expectVersion(r); err != nil {
		return wallettypes.DescriptorRecord{}, err
	}

	exprBytes, err := readVarBytes(r)
	if err != nil {
		return wallettypes.DescriptorRecord{}, fmt.Errorf("expr: %w", err)
	}
	idx, err := readUint32(r)
	if err != nil {
		return wallettypes.DescriptorRecord{}, fmt.Errorf("next index: %w", err)
	}
	return wallettypes.DescriptorRecord{Expr: string(exprBytes), NextIndex: idx}, nil
}

func encodeStats(s *wallettypes.Stats) []byte {
	var buf bytes.Buffer
	buf.WriteByte(codecVersion)
	writeUint32(&buf, s.SchemaVersion)
	writeUint32(&buf, s.CacheHeight)
	if s.HaveHeight {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func decodeStats(data []byte) (*wallettypes.Stats, error) {
	r := bytes.NewReader(data)
	if err := expectVersion(r); err != nil {
		return nil, err
	}

	s := &wallettypes.Stats{}
	version, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("schema version: %w", err)
	}
	if version > wallettypes.StatsSchemaVersion {
		return nil, fmt.Errorf("stats schema version %d is newer than this binary supports (%d)", version, wallettypes.StatsSchemaVersion)
	}
	s.SchemaVersion = version

	height, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("cache height: %w", err)
	}
	s.CacheHeight = height

	have, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("have-height flag: %w", err)
	}
	s.HaveHeight = have == 1

	return s, nil
}

func expectVersion(r *bytes.Reader) error {
	v, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	if v != codecVersion {
		return fmt.Errorf("unsupported record version %d", v)
	}
	return nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func readUint32(r io.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func readUint64(r io.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

// writeVarInt and readVarInt reuse wire's Bitcoin-style variable-length
// integer encoding, the same one wire.MsgTx uses for its own script and
// witness lengths, so record sizes stay compact without a bespoke format.
func writeVarInt(buf *bytes.Buffer, v uint64) {
	_ = wire.WriteVarInt(buf, 0, v)
}

func readVarInt(r io.Reader) (uint64, error) {
	return wire.ReadVarInt(r, 0)
}

func writeVarBytes(buf *bytes.Buffer, b []byte) {
	writeVarInt(buf, uint64(len(b)))
	buf.Write(b)
}

func readVarBytes(r io.Reader) ([]byte, error) {
	n, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
