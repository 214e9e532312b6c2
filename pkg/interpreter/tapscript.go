package interpreter

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/suffix-labs/validkeys/pkg/crypto"
	"github.com/suffix-labs/validkeys/pkg/sighash"
	"github.com/suffix-labs/validkeys/pkg/txdata"
)

// annexTag marks the last witness element of a taproot spend as the annex.
const annexTag = 0x50

// taprootWalker handles key path and script path spends of a taproot
// output whose 32-byte output key is program.
func (s *spend) taprootWalker(program []byte) (walker, error) {
	witness := s.txIn.Witness
	if len(witness) == 0 {
		return nil, txdata.ShapeErrorf(s.idx, "taproot spend has no witness")
	}

	annex := fn.None[[]byte]()
	if last := witness[len(witness)-1]; len(witness) >= 2 && len(last) > 0 && last[0] == annexTag {
		annex = fn.Some(last)
		witness = witness[:len(witness)-1]
	}

	if len(witness) == 1 {
		variant := sighash.KeyPathVariant(annex)
		return newSingleWalker(program, witness[0], crypto.SchemeSchnorr, variant), nil
	}

	leaf := witness[len(witness)-2]
	controlBlock, err := verifyControlBlock(witness[len(witness)-1], program, leaf)
	if err != nil {
		return nil, err
	}
	if controlBlock.LeafVersion != txscript.BaseLeafVersion {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownLeafVersion, byte(controlBlock.LeafVersion))
	}

	ts, ok := parseTapscript(leaf)
	if !ok {
		return nil, fmt.Errorf("%w: tapscript leaf", ErrUnrecognizedScript)
	}

	args := witness[:len(witness)-2]
	if len(args) != len(ts.checks) {
		return nil, txdata.ShapeErrorf(s.idx, "tapscript leaf has %d signature checks, witness has %d arguments",
			len(ts.checks), len(args))
	}

	variant := sighash.ScriptPathVariant(byte(controlBlock.LeafVersion), leaf,
		sighash.NoCodeSeparator, annex)
	return newTapscriptWalker(ts, args, variant), nil
}

// verifyControlBlock checks that leaf is committed to by the output key
// program, including the parity bit of the control block.
func verifyControlBlock(raw, program, leaf []byte) (*txscript.ControlBlock, error) {
	controlBlock, err := txscript.ParseControlBlock(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMerkleProof, err)
	}
	if err := txscript.VerifyTaprootLeafCommitment(controlBlock, program, leaf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMerkleProof, err)
	}

	outputKey := txscript.ComputeTaprootOutputKey(
		controlBlock.InternalKey, controlBlock.RootHash(leaf),
	)
	odd := outputKey.SerializeCompressed()[0] == secp256k1.PubKeyFormatCompressedOdd
	if odd != controlBlock.OutputKeyYIsOdd {
		return nil, fmt.Errorf("%w: output key parity", ErrMerkleProof)
	}

	return controlBlock, nil
}

// tapCheck is one signature checking opcode of a tapscript leaf.
type tapCheck struct {
	op         byte
	key        []byte
	codeSepPos uint32
}

// tapscript is a parsed leaf: a chain of signature checks and the rule
// turning their outcomes into success.
type tapscript struct {
	checks []tapCheck

	// thresholdOp is OP_NUMEQUAL, OP_NUMEQUALVERIFY or
	// OP_GREATERTHANOREQUAL, or zero when the leaf is a plain chain.
	thresholdOp byte
	threshold   int
}

// parseTapscript accepts leaves of the form
//
//	<key> CHECKSIG|CHECKSIGVERIFY [<key> CHECKSIGVERIFY|CHECKSIG|CHECKSIGADD ...] [<k> NUMEQUAL|NUMEQUALVERIFY|GREATERTHANOREQUAL]
//
// with OP_CODESEPARATOR allowed between checks. Keys are 32 bytes.
// Positions are counted in opcodes from the start of the leaf.
func parseTapscript(leaf []byte) (*tapscript, bool) {
	var (
		ts         tapscript
		pendingKey []byte
		pendingNum = -1
		codeSepPos = sighash.NoCodeSeparator
		counter    bool
		opPos      uint32
	)

	tokenizer := txscript.MakeScriptTokenizer(0, leaf)
	for ; tokenizer.Next(); opPos++ {
		if ts.thresholdOp != 0 {
			return nil, false
		}

		op := tokenizer.Opcode()
		switch {
		case op == txscript.OP_CODESEPARATOR:
			if pendingKey != nil || pendingNum >= 0 {
				return nil, false
			}
			codeSepPos = opPos

		case op == txscript.OP_DATA_32 && pendingKey == nil && pendingNum < 0:
			pendingKey = tokenizer.Data()

		case op == txscript.OP_CHECKSIG, op == txscript.OP_CHECKSIGVERIFY,
			op == txscript.OP_CHECKSIGADD:

			if pendingKey == nil {
				return nil, false
			}
			switch {
			case op == txscript.OP_CHECKSIGADD && !counter:
				return nil, false
			case op != txscript.OP_CHECKSIGADD && counter:
				return nil, false
			}
			if op == txscript.OP_CHECKSIG {
				counter = true
			}

			ts.checks = append(ts.checks, tapCheck{
				op:         op,
				key:        pendingKey,
				codeSepPos: codeSepPos,
			})
			pendingKey = nil

		case pendingKey == nil && pendingNum < 0 && isThresholdPush(op):
			n, ok := thresholdValue(op, tokenizer.Data())
			if !ok {
				return nil, false
			}
			pendingNum = n

		case op == txscript.OP_NUMEQUAL, op == txscript.OP_NUMEQUALVERIFY,
			op == txscript.OP_GREATERTHANOREQUAL:

			if pendingNum < 0 || !counter {
				return nil, false
			}
			ts.thresholdOp = op
			ts.threshold = pendingNum
			pendingNum = -1

		default:
			return nil, false
		}
	}
	if tokenizer.Err() != nil || pendingKey != nil || pendingNum >= 0 {
		return nil, false
	}
	if len(ts.checks) == 0 {
		return nil, false
	}

	// A chain of CHECKSIGVERIFYs must end in CHECKSIG to leave a result.
	if ts.thresholdOp == 0 {
		if !counter || ts.checks[len(ts.checks)-1].op != txscript.OP_CHECKSIG {
			return nil, false
		}
		ts.threshold = len(ts.checks)
	}

	return &ts, true
}

func isThresholdPush(op byte) bool {
	return (op >= txscript.OP_1 && op <= txscript.OP_16) ||
		(op >= txscript.OP_DATA_1 && op <= txscript.OP_DATA_2)
}

// thresholdValue decodes a small script number used as a threshold.
func thresholdValue(op byte, data []byte) (int, bool) {
	if op >= txscript.OP_1 && op <= txscript.OP_16 {
		return int(op - (txscript.OP_1 - 1)), true
	}

	// Minimal positive script numbers up to two bytes. A zero high byte is
	// only minimal when it carries the sign bit of the low byte.
	if data[len(data)-1]&0x80 != 0 {
		return 0, false
	}
	if len(data) == 2 && data[1] == 0 && data[0]&0x80 == 0 {
		return 0, false
	}
	var n int
	for i, b := range data {
		n |= int(b) << (8 * i)
	}
	if n <= 16 {
		return 0, false
	}
	return n, true
}

// tapscriptWalker evaluates a parsed leaf against its witness arguments.
//
// Arguments are consumed from the top of the witness stack, so the first
// check in the leaf pairs with the last argument. An empty signature is a
// valid "no" vote and is not proposed. A failed CHECKSIGVERIFY, or an empty
// signature given to one, ends the leaf. A failed CHECKSIG or CHECKSIGADD
// lets the walk continue so later keys are still reported, but the leaf can
// no longer be satisfied.
type tapscriptWalker struct {
	ts      *tapscript
	args    [][]byte
	variant sighash.Variant

	pos       int
	count     int
	failed    bool
	exhausted bool
}

func newTapscriptWalker(ts *tapscript, args [][]byte, variant sighash.Variant) *tapscriptWalker {
	return &tapscriptWalker{ts: ts, args: args, variant: variant}
}

func (w *tapscriptWalker) sig() []byte {
	return w.args[len(w.args)-1-w.pos]
}

func (w *tapscriptWalker) advance() bool {
	for !w.exhausted && w.pos < len(w.ts.checks) {
		if len(w.sig()) != 0 {
			return true
		}
		if w.ts.checks[w.pos].op == txscript.OP_CHECKSIGVERIFY {
			w.exhausted = true
			return false
		}
		w.pos++
	}
	return false
}

func (w *tapscriptWalker) candidate() Candidate {
	check := w.ts.checks[w.pos]
	return Candidate{
		PubKey:    check.key,
		Signature: w.sig(),
		Scheme:    crypto.SchemeSchnorr,
		Variant:   w.variant.WithCodeSepPos(check.codeSepPos),
	}
}

func (w *tapscriptWalker) record(valid bool) {
	switch {
	case valid:
		w.count++
	case w.ts.checks[w.pos].op == txscript.OP_CHECKSIGVERIFY:
		w.exhausted = true
	default:
		w.failed = true
	}
	w.pos++
}

func (w *tapscriptWalker) satisfied() bool {
	if w.exhausted || w.failed || w.pos < len(w.ts.checks) {
		return false
	}

	switch w.ts.thresholdOp {
	case txscript.OP_GREATERTHANOREQUAL:
		return w.count >= w.ts.threshold
	default:
		return w.count == w.ts.threshold
	}
}
