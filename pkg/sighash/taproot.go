package sighash

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// BaseLeafVersion is the tapscript leaf version defined by BIP 342.
const BaseLeafVersion byte = 0xc0

// taproot computes the BIP 341 digest, extended per BIP 342 for script
// path spends.
//
// SigMsg layout:
//  1. epoch (0x00), hash_type, nVersion, nLockTime
//  2. unless ANYONECANPAY: sha_prevouts, sha_amounts, sha_scriptpubkeys,
//     sha_sequences
//  3. unless NONE or SINGLE: sha_outputs
//  4. spend_type = ext_flag*2 + annex_present
//  5. ANYONECANPAY: outpoint, amount, scriptPubKey, nSequence of this
//     input; otherwise input_index
//  6. sha_annex when present, sha_single_output for SINGLE
//  7. script path: tapleaf_hash, key_version (0x00), codesep_pos
func (e *Engine) taproot(idx int, v Variant, ht HashType) ([32]byte, error) {
	if !ValidTaproot(ht) {
		return [32]byte{}, fmt.Errorf("%w: 0x%02x", ErrInvalidHashType, uint32(ht))
	}
	base := ht.taprootBase()
	if base == Single && idx >= len(e.tx.TxOut) {
		return [32]byte{}, fmt.Errorf("%w: SINGLE without matching output", ErrInvalidHashType)
	}

	mid := e.taprootMidstates()
	buf := new(bytes.Buffer)

	// 1. Header.
	buf.WriteByte(0x00)
	buf.WriteByte(byte(ht))
	binary.Write(buf, binary.LittleEndian, e.tx.Version)
	binary.Write(buf, binary.LittleEndian, e.tx.LockTime)

	// 2. Transaction-wide input commitments.
	if !ht.AnyoneCanPay() {
		buf.Write(mid.shaPrevouts[:])
		buf.Write(mid.shaAmounts[:])
		buf.Write(mid.shaScriptPubKeys[:])
		buf.Write(mid.shaSequences[:])
	}

	// 3. Output commitment.
	if base != None && base != Single {
		buf.Write(mid.shaOutputs[:])
	}

	// 4. Spend type.
	var spendType byte
	if v.Kind == TaprootScriptPath {
		spendType = 2
	}
	if v.Annex.IsSome() {
		spendType |= 1
	}
	buf.WriteByte(spendType)

	// 5. This input.
	in := e.tx.TxIn[idx]
	if ht.AnyoneCanPay() {
		prev := e.prevouts[idx]
		buf.Write(in.PreviousOutPoint.Hash[:])
		binary.Write(buf, binary.LittleEndian, in.PreviousOutPoint.Index)
		binary.Write(buf, binary.LittleEndian, prev.Value)
		if err := wire.WriteVarBytes(buf, 0, prev.PkScript); err != nil {
			return [32]byte{}, err
		}
		binary.Write(buf, binary.LittleEndian, in.Sequence)
	} else {
		binary.Write(buf, binary.LittleEndian, uint32(idx))
	}

	// 6. Annex and single output.
	var annexErr error
	v.Annex.WhenSome(func(annex []byte) {
		var ab bytes.Buffer
		annexErr = wire.WriteVarBytes(&ab, 0, annex)
		shaAnnex := chainhash.HashH(ab.Bytes())
		buf.Write(shaAnnex[:])
	})
	if annexErr != nil {
		return [32]byte{}, annexErr
	}
	if base == Single {
		shaSingle := chainhash.HashH(serializeOutputs(e.tx.TxOut[idx : idx+1]))
		buf.Write(shaSingle[:])
	}

	// 7. Script path extension.
	if v.Kind == TaprootScriptPath {
		leafHash := v.TapLeafHash()
		buf.Write(leafHash[:])
		buf.WriteByte(0x00)
		binary.Write(buf, binary.LittleEndian, v.CodeSepPos)
	}

	return *chainhash.TaggedHash(chainhash.TagTapSighash, buf.Bytes()), nil
}

// LeafHash returns the TapLeaf tagged hash of a leaf script:
// H_TapLeaf(version || compact_size(len(script)) || script).
func LeafHash(version byte, leafScript []byte) chainhash.Hash {
	var buf bytes.Buffer
	buf.WriteByte(version)
	wire.WriteVarBytes(&buf, 0, leafScript)
	return *chainhash.TaggedHash(chainhash.TagTapLeaf, buf.Bytes())
}

// BranchHash returns the TapBranch tagged hash of two child nodes, ordered
// lexicographically.
func BranchHash(a, b chainhash.Hash) chainhash.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return *chainhash.TaggedHash(chainhash.TagTapBranch, a[:], b[:])
}
