// Package sighash computes the message digest a signature commits to, for
// every script evolution input verification supports.
//
// Three algorithms are implemented:
//   - Legacy: a modified copy of the transaction, serialized without
//     witness data and double-SHA256'd together with the hash type.
//   - BIP 143 (segwit v0): a fixed preimage built from three
//     transaction-wide midstates (prevouts, sequences, outputs) plus the
//     input's own outpoint, script code, amount and sequence.
//   - BIP 341 (taproot): a "TapSighash" tagged hash over single-SHA256
//     midstates of prevouts, amounts, scriptpubkeys, sequences and outputs,
//     extended by BIP 342 with the tapleaf hash and code separator position
//     for script path spends.
//
// The transaction-wide midstates depend only on the transaction and its
// prevouts, so an Engine computes them at most once and may be shared by
// checks of different inputs running concurrently.
//
// References:
//   - BIP 143: https://github.com/bitcoin/bips/blob/master/bip-0143.mediawiki
//   - BIP 341: https://github.com/bitcoin/bips/blob/master/bip-0341.mediawiki
//   - BIP 342: https://github.com/bitcoin/bips/blob/master/bip-0342.mediawiki
package sighash

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/suffix-labs/validkeys/pkg/txdata"
)

// Engine computes signature digests for the inputs of one transaction.
type Engine struct {
	tx       *wire.MsgTx
	prevouts txdata.PrevoutSet

	v0Once sync.Once
	v0     segwitMidstate

	trOnce sync.Once
	tr     taprootMidstate
}

// segwitMidstate holds the BIP 143 double-SHA256 commitments.
type segwitMidstate struct {
	hashPrevouts chainhash.Hash
	hashSequence chainhash.Hash
	hashOutputs  chainhash.Hash
}

// taprootMidstate holds the BIP 341 single-SHA256 commitments.
type taprootMidstate struct {
	shaPrevouts      chainhash.Hash
	shaAmounts       chainhash.Hash
	shaScriptPubKeys chainhash.Hash
	shaSequences     chainhash.Hash
	shaOutputs       chainhash.Hash
}

// NewEngine returns an engine for tx. prevouts must have one slot per input;
// it is not validated until a digest that needs it is requested.
func NewEngine(tx *wire.MsgTx, prevouts txdata.PrevoutSet) *Engine {
	return &Engine{tx: tx, prevouts: prevouts}
}

// Tx returns the transaction the engine was built for.
func (e *Engine) Tx() *wire.MsgTx {
	return e.tx
}

// Prevouts returns the prevout set the engine was built with.
func (e *Engine) Prevouts() txdata.PrevoutSet {
	return e.prevouts
}

// Compute returns the digest input idx signs under variant v and hash type ht.
//
// Shape problems (bad index, missing prevouts for taproot) are returned as
// *txdata.ShapeError. Hash types a taproot signature may not use are
// returned as ErrInvalidHashType.
func (e *Engine) Compute(idx int, v Variant, ht HashType) ([32]byte, error) {
	if err := txdata.CheckInputIndex(e.tx, idx); err != nil {
		return [32]byte{}, err
	}

	switch v.Kind {
	case Legacy:
		return e.legacy(idx, v.ScriptCode, ht)

	case SegwitV0:
		return e.segwitV0(idx, v.ScriptCode, v.Amount, ht)

	case TaprootKeyPath, TaprootScriptPath:
		if err := e.prevouts.CheckShape(e.tx, idx); err != nil {
			return [32]byte{}, err
		}
		if err := e.prevouts.Complete(idx); err != nil {
			return [32]byte{}, err
		}
		return e.taproot(idx, v, ht)
	}

	return [32]byte{}, fmt.Errorf("unknown sighash variant %d", v.Kind)
}

// segwitMidstates returns the BIP 143 midstates, computing them on first use.
func (e *Engine) segwitMidstates() *segwitMidstate {
	e.v0Once.Do(func() {
		e.v0.hashPrevouts = chainhash.DoubleHashH(serializePrevouts(e.tx))
		e.v0.hashSequence = chainhash.DoubleHashH(serializeSequences(e.tx))
		e.v0.hashOutputs = chainhash.DoubleHashH(serializeOutputs(e.tx.TxOut))
	})
	return &e.v0
}

// taprootMidstates returns the BIP 341 midstates, computing them on first
// use. The prevout set must be complete.
func (e *Engine) taprootMidstates() *taprootMidstate {
	e.trOnce.Do(func() {
		var amounts, scripts bytes.Buffer
		for _, out := range e.prevouts {
			binary.Write(&amounts, binary.LittleEndian, out.Value)
			wire.WriteVarBytes(&scripts, 0, out.PkScript)
		}

		e.tr.shaPrevouts = chainhash.HashH(serializePrevouts(e.tx))
		e.tr.shaAmounts = chainhash.HashH(amounts.Bytes())
		e.tr.shaScriptPubKeys = chainhash.HashH(scripts.Bytes())
		e.tr.shaSequences = chainhash.HashH(serializeSequences(e.tx))
		e.tr.shaOutputs = chainhash.HashH(serializeOutputs(e.tx.TxOut))
	})
	return &e.tr
}

// serializePrevouts concatenates every input's outpoint (txid || vout).
func serializePrevouts(tx *wire.MsgTx) []byte {
	buf := new(bytes.Buffer)
	for _, in := range tx.TxIn {
		buf.Write(in.PreviousOutPoint.Hash[:])
		binary.Write(buf, binary.LittleEndian, in.PreviousOutPoint.Index)
	}
	return buf.Bytes()
}

// serializeSequences concatenates every input's sequence number.
func serializeSequences(tx *wire.MsgTx) []byte {
	buf := new(bytes.Buffer)
	for _, in := range tx.TxIn {
		binary.Write(buf, binary.LittleEndian, in.Sequence)
	}
	return buf.Bytes()
}

// serializeOutputs concatenates outputs as value || compact_size(len) || script.
func serializeOutputs(outs []*wire.TxOut) []byte {
	buf := new(bytes.Buffer)
	for _, out := range outs {
		wire.WriteTxOut(buf, 0, 0, out)
	}
	return buf.Bytes()
}
