package interpreter

import "errors"

// Reasons an evaluator has no candidates. None of these are failures of the
// caller; they describe spends that cannot yield a verified key.
var (
	// ErrUnrecognizedScript is reported when the locking script, redeem
	// script, witness script or tapscript leaf matches no supported
	// template.
	ErrUnrecognizedScript = errors.New("unrecognized script")

	// ErrScriptHashMismatch is reported when a revealed redeem script,
	// witness script or public key does not hash to the committed value.
	ErrScriptHashMismatch = errors.New("revealed script does not match commitment")

	// ErrMerkleProof is reported when a taproot control block does not
	// authenticate the revealed leaf against the output key.
	ErrMerkleProof = errors.New("taproot merkle proof failed")

	// ErrUnknownLeafVersion is reported for tapscript leaves with a
	// version other than 0xc0.
	ErrUnknownLeafVersion = errors.New("unknown tapscript leaf version")
)

// Protocol errors, returned from Evaluator.Err.
var (
	// ErrVerdictPending is set when Next is called before the previous
	// candidate received a verdict.
	ErrVerdictPending = errors.New("next called with verdict pending")

	// ErrNoCandidate is set when Verdict is called without an outstanding
	// candidate.
	ErrNoCandidate = errors.New("verdict given without a candidate")
)
