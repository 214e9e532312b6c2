// Package interpreter extracts (public key, signature) candidates from the
// spending data of one input and walks them in script order.
//
// It is not a general script interpreter. It understands single-key
// templates, OP_CHECKMULTISIG k-of-n templates (bare, P2SH, P2WSH and
// P2SH-wrapped P2WSH), taproot key path spends, and tapscript leaves built
// from OP_CHECKSIG, OP_CHECKSIGVERIFY and OP_CHECKSIGADD chains.
//
// The evaluator never checks a signature itself. Each candidate is handed to
// the caller, and the caller's verdict decides how the walk continues, the
// same way a signature check gates execution on chain:
//
//	ev, err := interpreter.New(idx, txIn, prevout)
//	if err != nil {
//		return err
//	}
//	for ev.Next() {
//		c := ev.Candidate()
//		ev.Verdict(verify(c))
//	}
//	if err := ev.Err(); err != nil {
//		return err
//	}
//
// An evaluator is single pass. Walking the same spend again needs a new one.
package interpreter

import (
	"errors"

	"github.com/btcsuite/btcd/wire"

	"github.com/suffix-labs/validkeys/pkg/crypto"
	"github.com/suffix-labs/validkeys/pkg/script"
	"github.com/suffix-labs/validkeys/pkg/sighash"
	"github.com/suffix-labs/validkeys/pkg/txdata"
)

// Candidate is one (public key, signature) pair proposed for verification.
type Candidate struct {
	// PubKey is a 33 or 65 byte SEC1 key for ECDSA, or a 32-byte x-only
	// key for Schnorr.
	PubKey []byte

	// Signature is the raw signature including any trailing hash type
	// byte.
	Signature []byte

	Scheme crypto.Scheme

	// Variant is the digest the signature commits to, apart from the hash
	// type.
	Variant sighash.Variant
}

// walker is the state machine behind an Evaluator.
type walker interface {
	// advance moves to the next candidate and reports whether there is
	// one.
	advance() bool

	// candidate returns the current candidate.
	candidate() Candidate

	// record applies the verdict for the current candidate.
	record(valid bool)

	// satisfied reports whether the verdicts so far satisfy the script.
	satisfied() bool
}

// Evaluator walks the candidates of one input.
type Evaluator struct {
	kind   script.Kind
	walker walker
	reason error
	err    error

	pending  bool
	current  Candidate
	accepted []Candidate
}

// New builds an evaluator for input idx, spending prevout through txIn.
//
// Structurally missing spending data (no witness for a segwit output, too few
// multisig items, a signature script that is not push only) is returned as a
// *txdata.ShapeError. Spends that are well formed but cannot yield a verified
// key produce an evaluator with no candidates; Reason says why.
func New(idx int, txIn *wire.TxIn, prevout *wire.TxOut) (*Evaluator, error) {
	if txIn == nil || prevout == nil {
		return nil, txdata.ShapeErrorf(idx, "missing input or prevout")
	}

	s := &spend{idx: idx, txIn: txIn, prevout: prevout}
	kind := script.Classify(prevout.PkScript)

	w, err := s.walker(kind)
	switch {
	case err == nil:
		return &Evaluator{kind: kind, walker: w}, nil

	case isReason(err):
		return &Evaluator{kind: kind, reason: err}, nil
	}

	return nil, err
}

// Kind returns the classification of the spent output.
func (ev *Evaluator) Kind() script.Kind {
	return ev.kind
}

// Reason explains why an evaluator has no candidates. It is nil for
// evaluators that recognized the spend.
func (ev *Evaluator) Reason() error {
	return ev.reason
}

// Next advances to the next candidate. It returns false when the walk is
// over or a protocol error occurred.
func (ev *Evaluator) Next() bool {
	if ev.err != nil || ev.walker == nil {
		return false
	}
	if ev.pending {
		ev.err = ErrVerdictPending
		return false
	}
	if !ev.walker.advance() {
		return false
	}

	ev.current = ev.walker.candidate()
	ev.pending = true
	return true
}

// Candidate returns the candidate awaiting a verdict.
func (ev *Evaluator) Candidate() Candidate {
	return ev.current
}

// Verdict records whether the current candidate verified.
func (ev *Evaluator) Verdict(valid bool) {
	if ev.err != nil {
		return
	}
	if !ev.pending {
		ev.err = ErrNoCandidate
		return
	}

	ev.pending = false
	ev.walker.record(valid)
	if valid {
		ev.accepted = append(ev.accepted, ev.current)
	}
}

// Err returns the first protocol error, if any.
func (ev *Evaluator) Err() error {
	return ev.err
}

// Accepted returns the candidates that received a positive verdict, in the
// order they were proposed.
func (ev *Evaluator) Accepted() []Candidate {
	return ev.accepted
}

// Satisfied reports whether the verdicts so far satisfy the spent script.
func (ev *Evaluator) Satisfied() bool {
	return ev.walker != nil && ev.walker.satisfied()
}

// Run drives the evaluator to completion with verify and returns the
// accepted candidates.
func (ev *Evaluator) Run(verify func(Candidate) (bool, error)) ([]Candidate, error) {
	for ev.Next() {
		valid, err := verify(ev.Candidate())
		if err != nil {
			return nil, err
		}
		ev.Verdict(valid)
	}
	if err := ev.Err(); err != nil {
		return nil, err
	}
	return ev.Accepted(), nil
}

func isReason(err error) bool {
	for _, reason := range []error{
		ErrUnrecognizedScript, ErrScriptHashMismatch, ErrMerkleProof,
		ErrUnknownLeafVersion,
	} {
		if errors.Is(err, reason) {
			return true
		}
	}
	return false
}
