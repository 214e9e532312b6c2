package txdata

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
)

// DecodePacket parses a finalized BIP 174 packet and returns the signed
// transaction with the prevouts recorded in the packet's inputs.
//
// Witness UTXOs are used where present, otherwise the output named by the
// outpoint is taken from the non-witness UTXO. Inputs carrying neither are
// left absent.
func DecodePacket(raw []byte, b64 bool) (*wire.MsgTx, PrevoutSet, error) {
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), b64)
	if err != nil {
		return nil, nil, &DecodeError{Message: "reading packet", Cause: err}
	}

	tx, err := psbt.Extract(packet)
	if err != nil {
		return nil, nil, &DecodeError{Message: "extracting final transaction", Cause: err}
	}

	set := make(PrevoutSet, len(tx.TxIn))
	for i, in := range packet.Inputs {
		switch {
		case in.WitnessUtxo != nil:
			set[i] = in.WitnessUtxo

		case in.NonWitnessUtxo != nil:
			out, err := outputAt(tx, i, in.NonWitnessUtxo)
			if err != nil {
				return nil, nil, err
			}
			set[i] = out
		}
	}

	return tx, set, nil
}
