package sighash

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// segwitV0 computes the BIP 143 digest:
//
//	double-SHA256(version || hashPrevouts || hashSequence || outpoint ||
//	              scriptCode || amount || nSequence || hashOutputs ||
//	              nLockTime || nHashType)
//
// Prevouts are not consulted; the amount comes from the variant.
func (e *Engine) segwitV0(idx int, scriptCode []byte, amount int64, ht HashType) ([32]byte, error) {
	var (
		zero         chainhash.Hash
		base         = ht.legacyBase()
		hashPrevouts = zero
		hashSequence = zero
		hashOutputs  = zero
	)

	mid := e.segwitMidstates()
	if !ht.AnyoneCanPay() {
		hashPrevouts = mid.hashPrevouts
		if base != Single && base != None {
			hashSequence = mid.hashSequence
		}
	}

	switch {
	case base != Single && base != None:
		hashOutputs = mid.hashOutputs
	case base == Single && idx < len(e.tx.TxOut):
		hashOutputs = chainhash.DoubleHashH(serializeOutputs(e.tx.TxOut[idx : idx+1]))
	}

	in := e.tx.TxIn[idx]
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, e.tx.Version)
	buf.Write(hashPrevouts[:])
	buf.Write(hashSequence[:])
	buf.Write(in.PreviousOutPoint.Hash[:])
	binary.Write(buf, binary.LittleEndian, in.PreviousOutPoint.Index)
	if err := wire.WriteVarBytes(buf, 0, scriptCode); err != nil {
		return [32]byte{}, err
	}
	binary.Write(buf, binary.LittleEndian, amount)
	binary.Write(buf, binary.LittleEndian, in.Sequence)
	buf.Write(hashOutputs[:])
	binary.Write(buf, binary.LittleEndian, e.tx.LockTime)
	binary.Write(buf, binary.LittleEndian, uint32(ht))

	return chainhash.DoubleHashH(buf.Bytes()), nil
}
