package interpreter

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/suffix-labs/validkeys/pkg/crypto"
	"github.com/suffix-labs/validkeys/pkg/script"
	"github.com/suffix-labs/validkeys/pkg/sighash"
	"github.com/suffix-labs/validkeys/pkg/txdata"
)

// spend is the spending data of one input together with the output it
// spends.
type spend struct {
	idx     int
	txIn    *wire.TxIn
	prevout *wire.TxOut
}

// walker picks the state machine for a spend of an output of the given kind.
func (s *spend) walker(kind script.Kind) (walker, error) {
	pkScript := s.prevout.PkScript

	switch kind {
	case script.LegacyPubkey, script.LegacyPubkeyHash, script.LegacyMultisig:
		items, err := s.sigScriptItems()
		if err != nil {
			return nil, err
		}
		return s.legacyWalker(pkScript, items)

	case script.LegacyScriptHash:
		return s.scriptHashWalker(pkScript)

	case script.SegwitV0PubkeyHash, script.SegwitV0ScriptHash:
		_, program, _ := script.WitnessProgram(pkScript)
		return s.witnessV0Walker(program)

	case script.TaprootOutput:
		_, program, _ := script.WitnessProgram(pkScript)
		return s.taprootWalker(program)
	}

	return nil, ErrUnrecognizedScript
}

// sigScriptItems parses the signature script as a push-only stack.
func (s *spend) sigScriptItems() ([][]byte, error) {
	items, err := script.PushedData(s.txIn.SignatureScript)
	if err != nil {
		return nil, &txdata.ShapeError{
			InputIndex: s.idx,
			Message:    "malformed signature script",
			Cause:      err,
		}
	}
	return items, nil
}

// legacyWalker handles a pre-segwit template executed against items, with
// scriptCode committed to by the legacy digest.
func (s *spend) legacyWalker(scriptCode []byte, items [][]byte) (walker, error) {
	variant := sighash.LegacyVariant(scriptCode)
	return s.templateWalker(scriptCode, items, variant)
}

// templateWalker matches the single-key and multisig templates shared by
// legacy, P2SH and P2WSH spends.
func (s *spend) templateWalker(tmpl []byte, items [][]byte, variant sighash.Variant) (walker, error) {
	if key, ok := script.ParsePubkey(tmpl); ok {
		if len(items) < 1 {
			return nil, txdata.ShapeErrorf(s.idx, "pay-to-pubkey spend has no signature")
		}
		return newSingleWalker(key, items[len(items)-1], crypto.SchemeECDSA, variant), nil
	}

	if hash, ok := script.PubkeyHash(tmpl); ok {
		if len(items) < 2 {
			return nil, txdata.ShapeErrorf(s.idx, "pay-to-pubkey-hash spend needs signature and key, got %d items",
				len(items))
		}
		sig, key := items[len(items)-2], items[len(items)-1]
		if !bytes.Equal(btcutil.Hash160(key), hash) {
			return nil, fmt.Errorf("%w: public key hash", ErrScriptHashMismatch)
		}
		return newSingleWalker(key, sig, crypto.SchemeECDSA, variant), nil
	}

	if ms, ok := script.ParseMultisig(tmpl); ok {
		// One extra element is consumed by OP_CHECKMULTISIG.
		if len(items) < ms.Threshold+1 {
			return nil, txdata.ShapeErrorf(s.idx, "%d-of-%d multisig needs %d stack items, got %d",
				ms.Threshold, len(ms.Keys), ms.Threshold+1, len(items))
		}
		sigs := items[len(items)-ms.Threshold:]
		return newMultisigWalker(ms.Keys, sigs, variant), nil
	}

	return nil, ErrUnrecognizedScript
}

// scriptHashWalker handles P2SH, including P2SH-wrapped segwit v0.
func (s *spend) scriptHashWalker(pkScript []byte) (walker, error) {
	items, err := s.sigScriptItems()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, txdata.ShapeErrorf(s.idx, "pay-to-script-hash spend has an empty signature script")
	}

	redeem := items[len(items)-1]
	hash, _ := script.ScriptHash(pkScript)
	if !bytes.Equal(btcutil.Hash160(redeem), hash) {
		return nil, fmt.Errorf("%w: redeem script", ErrScriptHashMismatch)
	}

	if version, program, ok := script.WitnessProgram(redeem); ok {
		if version != 0 {
			return nil, fmt.Errorf("%w: nested witness version %d", ErrUnrecognizedScript, version)
		}
		return s.witnessV0Walker(program)
	}

	return s.legacyWalker(redeem, items[:len(items)-1])
}

// witnessV0Walker handles P2WPKH and P2WSH programs, native or nested.
func (s *spend) witnessV0Walker(program []byte) (walker, error) {
	witness := s.txIn.Witness
	if len(witness) == 0 {
		return nil, txdata.ShapeErrorf(s.idx, "segwit v0 spend has no witness")
	}
	amount := s.prevout.Value

	switch len(program) {
	case 20:
		if len(witness) != 2 {
			return nil, txdata.ShapeErrorf(s.idx, "P2WPKH witness must have 2 items, got %d", len(witness))
		}
		sig, key := witness[0], witness[1]
		if !bytes.Equal(btcutil.Hash160(key), program) {
			return nil, fmt.Errorf("%w: witness public key", ErrScriptHashMismatch)
		}
		variant := sighash.SegwitV0Variant(script.PubkeyHashScript(program), amount)
		return newSingleWalker(key, sig, crypto.SchemeECDSA, variant), nil

	case 32:
		witnessScript := witness[len(witness)-1]
		if !bytes.Equal(chainhash.HashB(witnessScript), program) {
			return nil, fmt.Errorf("%w: witness script", ErrScriptHashMismatch)
		}
		variant := sighash.SegwitV0Variant(witnessScript, amount)
		return s.templateWalker(witnessScript, witness[:len(witness)-1], variant)
	}

	return nil, fmt.Errorf("%w: witness v0 program of %d bytes", ErrUnrecognizedScript, len(program))
}
