package interpreter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/validkeys/pkg/crypto"
	"github.com/suffix-labs/validkeys/pkg/script"
	"github.com/suffix-labs/validkeys/pkg/sighash"
	"github.com/suffix-labs/validkeys/pkg/txdata"
)

// Keys and signatures below are labels, not curve points. A signature
// "verifies" for a key when their label bytes match, which lets the tests
// pin the walk order exactly.

func labelKey(label byte) []byte {
	key := bytes.Repeat([]byte{label}, 33)
	key[0] = 0x02
	return key
}

func labelSig(label byte) []byte {
	return []byte{0x30, label, 0x01}
}

func labelVerify(c Candidate) (bool, error) {
	return c.Signature[1] == c.PubKey[1], nil
}

func pushScript(t *testing.T, items ...[]byte) []byte {
	t.Helper()
	b := txscript.NewScriptBuilder()
	for _, item := range items {
		b.AddData(item)
	}
	s, err := b.Script()
	require.NoError(t, err)
	return s
}

func multisig(t *testing.T, m int, labels ...byte) []byte {
	t.Helper()
	keys := make([][]byte, len(labels))
	for i, l := range labels {
		keys[i] = labelKey(l)
	}
	s, err := script.MultisigScript(m, keys)
	require.NoError(t, err)
	return s
}

func p2shScript(redeem []byte) []byte {
	s := append([]byte{txscript.OP_HASH160, txscript.OP_DATA_20}, btcutil.Hash160(redeem)...)
	return append(s, txscript.OP_EQUAL)
}

func p2wshScript(ws []byte) []byte {
	return append([]byte{txscript.OP_0, txscript.OP_DATA_32}, chainhash.HashB(ws)...)
}

func keyLabels(cands []Candidate) []byte {
	labels := make([]byte, 0, len(cands))
	for _, c := range cands {
		labels = append(labels, c.PubKey[1])
	}
	return labels
}

// runWitness evaluates a P2WSH multisig spend with the given signatures.
func runWitness(t *testing.T, ws []byte, sigs ...[]byte) ([]Candidate, *Evaluator) {
	t.Helper()

	witness := wire.TxWitness{nil}
	witness = append(witness, sigs...)
	witness = append(witness, ws)

	txIn := &wire.TxIn{Witness: witness}
	ev, err := New(0, txIn, wire.NewTxOut(50000, p2wshScript(ws)))
	require.NoError(t, err)

	accepted, err := ev.Run(labelVerify)
	require.NoError(t, err)
	return accepted, ev
}

func TestMultisigWalkOrder(t *testing.T) {
	ws := multisig(t, 2, 1, 2, 3)

	tests := []struct {
		name      string
		sigs      [][]byte
		want      []byte
		proposed  int
		satisfied bool
	}{
		{"first and third", [][]byte{labelSig(1), labelSig(3)}, []byte{1, 3}, 3, true},
		{"first and second", [][]byte{labelSig(1), labelSig(2)}, []byte{1, 2}, 2, true},
		{"second and third", [][]byte{labelSig(2), labelSig(3)}, []byte{2, 3}, 3, true},
		// Signatures out of key order: the walk runs out of keys before
		// the first one matches.
		{"reversed", [][]byte{labelSig(3), labelSig(1)}, nil, 2, false},
		// Tampering the last signature drops only its key.
		{"last tampered", [][]byte{labelSig(1), labelSig(9)}, []byte{1}, 3, false},
		// Tampering the first signature exhausts the keys it needed.
		{"first tampered", [][]byte{labelSig(9), labelSig(3)}, nil, 2, false},
		{"placeholder first", [][]byte{{}, labelSig(2)}, []byte{2}, 1, false},
		{"placeholder last", [][]byte{labelSig(1), {}}, []byte{1}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proposed := 0
			witness := wire.TxWitness{nil}
			witness = append(witness, tt.sigs...)
			witness = append(witness, ws)

			ev, err := New(0, &wire.TxIn{Witness: witness}, wire.NewTxOut(1, p2wshScript(ws)))
			require.NoError(t, err)
			require.Equal(t, script.SegwitV0ScriptHash, ev.Kind())

			accepted, err := ev.Run(func(c Candidate) (bool, error) {
				proposed++
				assert.Equal(t, crypto.SchemeECDSA, c.Scheme)
				assert.Equal(t, sighash.SegwitV0, c.Variant.Kind)
				assert.Equal(t, int64(1), c.Variant.Amount)
				return labelVerify(c)
			})
			require.NoError(t, err)

			if tt.want == nil {
				assert.Empty(t, accepted)
			} else {
				assert.Equal(t, tt.want, keyLabels(accepted))
			}
			assert.Equal(t, tt.proposed, proposed)
			assert.Equal(t, tt.satisfied, ev.Satisfied())
		})
	}
}

func TestMultisigTwoOfTwoPlaceholder(t *testing.T) {
	ws := multisig(t, 2, 1, 2)

	accepted, ev := runWitness(t, ws, labelSig(1), labelSig(2))
	assert.Equal(t, []byte{1, 2}, keyLabels(accepted))
	assert.True(t, ev.Satisfied())

	accepted, _ = runWitness(t, ws, labelSig(1), nil)
	assert.Equal(t, []byte{1}, keyLabels(accepted))

	accepted, _ = runWitness(t, ws, nil, labelSig(2))
	assert.Equal(t, []byte{2}, keyLabels(accepted))

	accepted, _ = runWitness(t, ws, nil, nil)
	assert.Empty(t, accepted)
}

func TestLegacySpends(t *testing.T) {
	redeem := multisig(t, 2, 1, 2, 3)

	t.Run("bare multisig", func(t *testing.T) {
		txIn := &wire.TxIn{SignatureScript: pushScript(t, nil, labelSig(2), labelSig(3))}
		ev, err := New(0, txIn, wire.NewTxOut(1, redeem))
		require.NoError(t, err)
		assert.Equal(t, script.LegacyMultisig, ev.Kind())

		accepted, err := ev.Run(labelVerify)
		require.NoError(t, err)
		assert.Equal(t, []byte{2, 3}, keyLabels(accepted))
		assert.Equal(t, sighash.Legacy, accepted[0].Variant.Kind)
		assert.Equal(t, redeem, accepted[0].Variant.ScriptCode)
	})

	t.Run("p2sh multisig", func(t *testing.T) {
		txIn := &wire.TxIn{SignatureScript: pushScript(t, nil, labelSig(1), labelSig(3), redeem)}
		ev, err := New(0, txIn, wire.NewTxOut(1, p2shScript(redeem)))
		require.NoError(t, err)
		assert.Equal(t, script.LegacyScriptHash, ev.Kind())

		accepted, err := ev.Run(labelVerify)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 3}, keyLabels(accepted))
		assert.Equal(t, redeem, accepted[0].Variant.ScriptCode)
	})

	t.Run("p2sh hash mismatch", func(t *testing.T) {
		other := multisig(t, 2, 1, 2, 4)
		txIn := &wire.TxIn{SignatureScript: pushScript(t, nil, labelSig(1), labelSig(2), other)}
		ev, err := New(0, txIn, wire.NewTxOut(1, p2shScript(redeem)))
		require.NoError(t, err)
		assert.ErrorIs(t, ev.Reason(), ErrScriptHashMismatch)
		assert.False(t, ev.Next())
		assert.NoError(t, ev.Err())
	})

	t.Run("p2sh-p2wsh", func(t *testing.T) {
		ws := multisig(t, 1, 5, 6)
		nested := p2wshScript(ws)
		txIn := &wire.TxIn{
			SignatureScript: pushScript(t, nested),
			Witness:         wire.TxWitness{nil, labelSig(6), ws},
		}
		ev, err := New(0, txIn, wire.NewTxOut(777, p2shScript(nested)))
		require.NoError(t, err)

		accepted, err := ev.Run(labelVerify)
		require.NoError(t, err)
		require.Equal(t, []byte{6}, keyLabels(accepted))
		assert.Equal(t, sighash.SegwitV0, accepted[0].Variant.Kind)
		assert.Equal(t, int64(777), accepted[0].Variant.Amount)
	})

	t.Run("p2pkh", func(t *testing.T) {
		key := labelKey(7)
		pkScript := script.PubkeyHashScript(btcutil.Hash160(key))
		txIn := &wire.TxIn{SignatureScript: pushScript(t, labelSig(7), key)}
		ev, err := New(0, txIn, wire.NewTxOut(1, pkScript))
		require.NoError(t, err)

		accepted, err := ev.Run(labelVerify)
		require.NoError(t, err)
		assert.Equal(t, []byte{7}, keyLabels(accepted))
		assert.True(t, ev.Satisfied())

		txIn = &wire.TxIn{SignatureScript: pushScript(t, labelSig(8), labelKey(8))}
		ev, err = New(0, txIn, wire.NewTxOut(1, pkScript))
		require.NoError(t, err)
		assert.ErrorIs(t, ev.Reason(), ErrScriptHashMismatch)
	})

	t.Run("p2wpkh", func(t *testing.T) {
		key := labelKey(4)
		hash := btcutil.Hash160(key)
		pkScript := append([]byte{txscript.OP_0, txscript.OP_DATA_20}, hash...)
		txIn := &wire.TxIn{Witness: wire.TxWitness{labelSig(4), key}}
		ev, err := New(0, txIn, wire.NewTxOut(1, pkScript))
		require.NoError(t, err)

		accepted, err := ev.Run(labelVerify)
		require.NoError(t, err)
		require.Len(t, accepted, 1)
		assert.Equal(t, script.PubkeyHashScript(hash), accepted[0].Variant.ScriptCode)
	})

	t.Run("non-standard", func(t *testing.T) {
		ev, err := New(0, &wire.TxIn{}, wire.NewTxOut(1, []byte{txscript.OP_RETURN}))
		require.NoError(t, err)
		assert.ErrorIs(t, ev.Reason(), ErrUnrecognizedScript)
		assert.Equal(t, script.NonStandard, ev.Kind())
		assert.False(t, ev.Satisfied())
	})

	t.Run("unrecognized redeem script", func(t *testing.T) {
		redeem := []byte{txscript.OP_TRUE}
		txIn := &wire.TxIn{SignatureScript: pushScript(t, redeem)}
		ev, err := New(0, txIn, wire.NewTxOut(1, p2shScript(redeem)))
		require.NoError(t, err)
		assert.ErrorIs(t, ev.Reason(), ErrUnrecognizedScript)
	})
}

func TestShapeErrors(t *testing.T) {
	ws := multisig(t, 2, 1, 2)
	redeem := multisig(t, 2, 1, 2, 3)

	tests := []struct {
		name    string
		txIn    *wire.TxIn
		prevout *wire.TxOut
	}{
		{"p2wsh without witness", &wire.TxIn{}, wire.NewTxOut(1, p2wshScript(ws))},
		{"too few multisig items", &wire.TxIn{Witness: wire.TxWitness{labelSig(1), ws}}, wire.NewTxOut(1, p2wshScript(ws))},
		{"p2sh empty sig script", &wire.TxIn{}, wire.NewTxOut(1, p2shScript(redeem))},
		{"non push sig script", &wire.TxIn{SignatureScript: []byte{txscript.OP_0, txscript.OP_DUP}}, wire.NewTxOut(1, redeem)},
		{"taproot without witness", &wire.TxIn{}, wire.NewTxOut(1, append([]byte{txscript.OP_1, txscript.OP_DATA_32}, make([]byte, 32)...))},
		{"p2wpkh wrong item count", &wire.TxIn{Witness: wire.TxWitness{labelSig(1)}}, wire.NewTxOut(1, append([]byte{txscript.OP_0, txscript.OP_DATA_20}, make([]byte, 20)...))},
		{"nil prevout", &wire.TxIn{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(3, tt.txIn, tt.prevout)
			var shapeErr *txdata.ShapeError
			require.True(t, errors.As(err, &shapeErr), "expected ShapeError, got %v", err)
			assert.Equal(t, 3, shapeErr.InputIndex)
		})
	}
}

func TestEvaluatorProtocol(t *testing.T) {
	ws := multisig(t, 2, 1, 2)
	witness := wire.TxWitness{nil, labelSig(1), labelSig(2), ws}

	ev, err := New(0, &wire.TxIn{Witness: witness}, wire.NewTxOut(1, p2wshScript(ws)))
	require.NoError(t, err)

	require.True(t, ev.Next())
	assert.False(t, ev.Next())
	assert.ErrorIs(t, ev.Err(), ErrVerdictPending)

	ev, err = New(0, &wire.TxIn{Witness: witness}, wire.NewTxOut(1, p2wshScript(ws)))
	require.NoError(t, err)
	ev.Verdict(true)
	assert.ErrorIs(t, ev.Err(), ErrNoCandidate)
	assert.False(t, ev.Next())

	// Run stops at the first verifier error.
	ev, err = New(0, &wire.TxIn{Witness: witness}, wire.NewTxOut(1, p2wshScript(ws)))
	require.NoError(t, err)
	boom := errors.New("boom")
	_, err = ev.Run(func(Candidate) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
