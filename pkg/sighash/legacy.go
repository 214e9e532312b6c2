package sighash

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/suffix-labs/validkeys/pkg/script"
)

// singleBugHash is the digest signed when SIGHASH_SINGLE names an output
// that does not exist: the little-endian uint256 value 1.
var singleBugHash = [32]byte{0x01}

// legacy computes the original transaction digest.
//
// Steps:
//  1. Copy the transaction and clear every signature script.
//  2. Put the script code, with OP_CODESEPARATORs removed, in the input
//     being signed.
//  3. Trim outputs and zero other sequences for NONE and SINGLE.
//  4. Keep only the signed input for ANYONECANPAY.
//  5. Serialize without witness, append the 4-byte hash type, double SHA256.
func (e *Engine) legacy(idx int, scriptCode []byte, ht HashType) ([32]byte, error) {
	base := ht.legacyBase()
	if base == Single && idx >= len(e.tx.TxOut) {
		return singleBugHash, nil
	}

	txCopy := e.tx.Copy()
	for i, in := range txCopy.TxIn {
		in.Witness = nil
		if i == idx {
			in.SignatureScript = script.RemoveCodeSeparators(scriptCode)
		} else {
			in.SignatureScript = nil
		}
	}

	switch base {
	case None:
		txCopy.TxOut = txCopy.TxOut[:0]
		zeroOtherSequences(txCopy, idx)

	case Single:
		txCopy.TxOut = txCopy.TxOut[:idx+1]
		for i := 0; i < idx; i++ {
			txCopy.TxOut[i] = &wire.TxOut{Value: -1}
		}
		zeroOtherSequences(txCopy, idx)
	}

	if ht.AnyoneCanPay() {
		txCopy.TxIn = txCopy.TxIn[idx : idx+1]
	}

	buf := new(bytes.Buffer)
	buf.Grow(txCopy.SerializeSizeStripped() + 4)
	if err := txCopy.SerializeNoWitness(buf); err != nil {
		return [32]byte{}, err
	}
	binary.Write(buf, binary.LittleEndian, uint32(ht))

	return chainhash.DoubleHashH(buf.Bytes()), nil
}

func zeroOtherSequences(tx *wire.MsgTx, idx int) {
	for i, in := range tx.TxIn {
		if i != idx {
			in.Sequence = 0
		}
	}
}
