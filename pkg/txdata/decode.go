// Package txdata is the decode boundary and prevout model for input
// verification.
//
// Raw transactions are decoded with btcd's wire codec (segwit marker and flag
// included). The resulting *wire.MsgTx is treated as immutable by every other
// package. Previous outputs are carried in a PrevoutSet that is aligned
// positionally with the spending transaction's inputs.
package txdata

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// DecodeTransaction parses consensus-serialized transaction bytes.
//
// The whole buffer must be consumed; trailing bytes are a DecodeError.
func DecodeTransaction(raw []byte) (*wire.MsgTx, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Message: "empty transaction"}
	}

	r := bytes.NewReader(raw)
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(r); err != nil {
		return nil, &DecodeError{Message: "reading transaction", Cause: err}
	}
	if r.Len() != 0 {
		return nil, &DecodeError{
			Message: fmt.Sprintf("%d trailing bytes after transaction", r.Len()),
		}
	}

	return tx, nil
}

// DecodeTransactionHex parses a hex-encoded transaction.
func DecodeTransactionHex(s string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{Message: "invalid hex", Cause: err}
	}
	return DecodeTransaction(raw)
}

// DecodeTransactions decodes a list of raw previous transactions. Empty
// entries decode to nil, which PrevoutsFromTxs treats as an absent prevout.
func DecodeTransactions(raws [][]byte) ([]*wire.MsgTx, error) {
	txs := make([]*wire.MsgTx, len(raws))
	for i, raw := range raws {
		if len(raw) == 0 {
			continue
		}
		tx, err := DecodeTransaction(raw)
		if err != nil {
			return nil, fmt.Errorf("previous transaction %d: %w", i, err)
		}
		txs[i] = tx
	}
	return txs, nil
}
