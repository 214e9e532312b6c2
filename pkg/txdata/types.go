package txdata

import (
	"github.com/btcsuite/btcd/wire"
)

// PrevoutSet holds the outputs being spent, one slot per input of the
// spending transaction. A nil slot means the prevout was not supplied.
//
// Legacy and segwit v0 digests only need the slot of the input under test.
// Taproot digests commit to every prevout amount and script, so a taproot
// check needs a complete set.
type PrevoutSet []*wire.TxOut

// NewPrevoutSet checks that outs has one slot per input of tx.
func NewPrevoutSet(tx *wire.MsgTx, outs []*wire.TxOut) (PrevoutSet, error) {
	set := PrevoutSet(outs)
	if err := set.CheckShape(tx, -1); err != nil {
		return nil, err
	}
	return set, nil
}

// PrevoutsFromTxs resolves each input's previous output from the matching
// entry of prevTxs. prevTxs must have one entry per input; nil entries are
// left as absent prevouts.
//
// The previous txid is not recomputed. Pairing each input with the right
// transaction is the caller's responsibility.
func PrevoutsFromTxs(tx *wire.MsgTx, prevTxs []*wire.MsgTx) (PrevoutSet, error) {
	if len(prevTxs) != len(tx.TxIn) {
		return nil, ShapeErrorf(-1, "got %d previous transactions for %d inputs",
			len(prevTxs), len(tx.TxIn))
	}

	set := make(PrevoutSet, len(tx.TxIn))
	for i, prevTx := range prevTxs {
		if prevTx == nil {
			continue
		}
		out, err := outputAt(tx, i, prevTx)
		if err != nil {
			return nil, err
		}
		set[i] = out
	}

	return set, nil
}

// PrevoutFromTx builds a set where only input idx is populated, from the
// single previous transaction it spends.
func PrevoutFromTx(tx *wire.MsgTx, idx int, prevTx *wire.MsgTx) (PrevoutSet, error) {
	if err := CheckInputIndex(tx, idx); err != nil {
		return nil, err
	}
	if prevTx == nil {
		return nil, ShapeErrorf(idx, "previous transaction is nil")
	}

	out, err := outputAt(tx, idx, prevTx)
	if err != nil {
		return nil, err
	}

	set := make(PrevoutSet, len(tx.TxIn))
	set[idx] = out
	return set, nil
}

// CheckInputIndex reports a ShapeError when idx does not name an input of tx.
func CheckInputIndex(tx *wire.MsgTx, idx int) error {
	if idx < 0 || idx >= len(tx.TxIn) {
		return ShapeErrorf(idx, "input index out of range (transaction has %d inputs)",
			len(tx.TxIn))
	}
	return nil
}

// CheckShape verifies the set lines up with tx. When idx is non-negative the
// slot for that input must also be populated.
func (p PrevoutSet) CheckShape(tx *wire.MsgTx, idx int) error {
	if len(p) != len(tx.TxIn) {
		return ShapeErrorf(idx, "got %d prevouts for %d inputs", len(p), len(tx.TxIn))
	}
	if idx < 0 {
		return nil
	}
	if err := CheckInputIndex(tx, idx); err != nil {
		return err
	}
	if p[idx] == nil {
		return ShapeErrorf(idx, "prevout for input under test is missing")
	}
	return nil
}

// Output returns the prevout of input idx.
func (p PrevoutSet) Output(idx int) (*wire.TxOut, error) {
	if idx < 0 || idx >= len(p) {
		return nil, ShapeErrorf(idx, "no prevout slot for input")
	}
	if p[idx] == nil {
		return nil, ShapeErrorf(idx, "prevout is missing")
	}
	return p[idx], nil
}

// Complete reports a ShapeError naming the first absent prevout, if any.
func (p PrevoutSet) Complete(idx int) error {
	for i, out := range p {
		if out == nil {
			return ShapeErrorf(idx, "taproot spend requires every prevout, input %d has none", i)
		}
	}
	return nil
}

func outputAt(tx *wire.MsgTx, idx int, prevTx *wire.MsgTx) (*wire.TxOut, error) {
	vout := tx.TxIn[idx].PreviousOutPoint.Index
	if int64(vout) >= int64(len(prevTx.TxOut)) {
		return nil, ShapeErrorf(idx, "previous output index %d out of range (previous transaction has %d outputs)",
			vout, len(prevTx.TxOut))
	}
	return prevTx.TxOut[vout], nil
}
