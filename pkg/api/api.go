// Package api provides the high-level public API for input verification.
//
// This is the main entry point for applications using the validkeys library.
// Given a transaction, an input index and the outputs being spent, it reports
// which public keys have valid signatures in that input's spending data:
//
//  1. VerifySpendingInput - Verifies one input against its prevout set
//  2. VerifySpendingInputWithPrevTxs - Same, from previous transactions
//  3. VerifyRawInput - Same, from raw serialized transactions
//  4. VerifyTransaction - Verifies every input of a transaction concurrently
//  5. VerifyPacketInput - Verifies one input of a finalized PSBT
//
// Only *txdata.DecodeError and *txdata.ShapeError are returned as errors.
// Unrecognized scripts, failed Merkle proofs and bad signatures are normal
// outcomes and are reported in the Result.
package api

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"golang.org/x/sync/errgroup"

	"github.com/suffix-labs/validkeys/pkg/crypto"
	"github.com/suffix-labs/validkeys/pkg/interpreter"
	"github.com/suffix-labs/validkeys/pkg/script"
	"github.com/suffix-labs/validkeys/pkg/sighash"
	"github.com/suffix-labs/validkeys/pkg/txdata"
)

// Status summarizes the outcome of verifying one input.
type Status uint8

const (
	// StatusVerified means at least one key has a valid signature.
	StatusVerified Status = iota

	// StatusNoValidSignatures means no key could be verified. This is not an
	// error: the spend may be unsigned, invalid or of an unsupported kind.
	StatusNoValidSignatures
)

func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusNoValidSignatures:
		return "no valid signatures found"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Result is the outcome of verifying one input.
type Result struct {
	InputIndex int
	Kind       script.Kind

	// Keys are the public keys with valid signatures, in the order they
	// were accepted.
	Keys [][]byte

	// Schemes holds the signature scheme of each entry in Keys.
	Schemes []crypto.Scheme

	Status Status

	// Reason explains an empty result when the spend could not be walked
	// at all (unrecognized script, hash mismatch, failed Merkle proof).
	Reason error

	// Satisfied reports whether the accepted signatures satisfy the spent
	// script.
	Satisfied bool
}

// InputReport is the result or error for one input of a batch.
type InputReport struct {
	InputIndex int
	Result     *Result
	Err        error
}

// ============================================================================
// API Function 1: VerifySpendingInput
// ============================================================================

// VerifySpendingInput reports which keys have valid signatures for input idx
// of tx.
//
// This function:
//  1. Checks prevouts lines up with tx and covers idx
//  2. Classifies the spent output and walks its spending data
//  3. Computes each candidate's digest lazily and verifies it
//
// prevouts must have one entry per input. Taproot spends need every entry;
// other kinds only need the entry for idx.
//
// Parameters:
//   - tx: Spending transaction
//   - idx: Index of the input under test
//   - prevouts: Outputs spent by tx, aligned with its inputs
//
// Returns:
//   - Result, possibly with no keys
//   - *txdata.ShapeError if the spending data is structurally incomplete
func VerifySpendingInput(tx *wire.MsgTx, idx int, prevouts txdata.PrevoutSet,
	opts ...Option) (*Result, error) {

	cfg := newConfig(opts...)
	engine := sighash.NewEngine(tx, prevouts)
	return verifyInput(engine, idx, cfg)
}

// ============================================================================
// API Function 2: VerifySpendingInputWithPrevTxs
// ============================================================================

// VerifySpendingInputWithPrevTxs is VerifySpendingInput with the prevout set
// taken from whole previous transactions, one per input of tx. Entries may be
// nil for inputs other than idx unless the spend is taproot.
//
// The previous transaction ids are not checked against the outpoints.
func VerifySpendingInputWithPrevTxs(tx *wire.MsgTx, idx int, prevTxs []*wire.MsgTx,
	opts ...Option) (*Result, error) {

	prevouts, err := txdata.PrevoutsFromTxs(tx, prevTxs)
	if err != nil {
		return nil, err
	}
	return VerifySpendingInput(tx, idx, prevouts, opts...)
}

// ============================================================================
// API Function 3: VerifyRawInput
// ============================================================================

// VerifyRawInput decodes rawTx and rawPrevTxs and verifies input idx.
//
// rawPrevTxs has one entry per input of the spending transaction; empty
// entries stand for unknown previous transactions.
//
// Returns:
//   - *txdata.DecodeError if any transaction fails to decode
//   - otherwise, as VerifySpendingInputWithPrevTxs
func VerifyRawInput(rawTx []byte, idx int, rawPrevTxs [][]byte,
	opts ...Option) (*Result, error) {

	tx, err := txdata.DecodeTransaction(rawTx)
	if err != nil {
		return nil, err
	}

	prevTxs, err := txdata.DecodeTransactions(rawPrevTxs)
	if err != nil {
		return nil, err
	}

	return VerifySpendingInputWithPrevTxs(tx, idx, prevTxs, opts...)
}

// ============================================================================
// API Function 4: VerifyTransaction
// ============================================================================

// VerifyTransaction verifies every input of tx and returns one report per
// input, in input order.
//
// Inputs are verified concurrently, bounded by WithConcurrency. A failing
// input never stops the others. Inputs not yet started when ctx is done are
// reported with the context's error.
func VerifyTransaction(ctx context.Context, tx *wire.MsgTx, prevouts txdata.PrevoutSet,
	opts ...Option) []InputReport {

	cfg := newConfig(opts...)
	engine := sighash.NewEngine(tx, prevouts)
	reports := make([]InputReport, len(tx.TxIn))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	for i := range tx.TxIn {
		reports[i].InputIndex = i

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				reports[i].Err = err
				return nil
			}

			result, err := verifyInput(engine, i, cfg)
			reports[i].Result = result
			reports[i].Err = err
			return nil
		})
	}

	// The workers never return an error.
	_ = g.Wait()

	return reports
}

// ============================================================================
// API Function 5: VerifyPacketInput
// ============================================================================

// VerifyPacketInput verifies input idx of a finalized BIP 174 packet, using
// the UTXOs recorded in the packet as the prevout set. b64 selects base64
// rather than binary encoding.
//
// Returns:
//   - *txdata.DecodeError if the packet does not parse or is not finalized
//   - otherwise, as VerifySpendingInput
func VerifyPacketInput(packet []byte, b64 bool, idx int, opts ...Option) (*Result, error) {
	tx, prevouts, err := txdata.DecodePacket(packet, b64)
	if err != nil {
		return nil, err
	}
	return VerifySpendingInput(tx, idx, prevouts, opts...)
}

// verifyInput runs the evaluator for input idx with a verifier backed by
// engine.
func verifyInput(engine *sighash.Engine, idx int, cfg *config) (*Result, error) {
	tx, prevouts := engine.Tx(), engine.Prevouts()
	if err := prevouts.CheckShape(tx, idx); err != nil {
		return nil, err
	}

	ev, err := interpreter.New(idx, tx.TxIn[idx], prevouts[idx])
	if err != nil {
		return nil, err
	}

	result := &Result{
		InputIndex: idx,
		Kind:       ev.Kind(),
		Status:     StatusNoValidSignatures,
		Reason:     ev.Reason(),
	}
	if result.Reason != nil {
		log.Debugf("Input %d (%v): %v", idx, result.Kind, result.Reason)
		return result, nil
	}

	v := newVerifier(engine, idx, cfg.sigCache)
	accepted, err := ev.Run(v.verify)
	if err != nil {
		return nil, err
	}

	for _, c := range accepted {
		result.Keys = append(result.Keys, c.PubKey)
		result.Schemes = append(result.Schemes, c.Scheme)
	}
	if len(result.Keys) > 0 {
		result.Status = StatusVerified
	}
	result.Satisfied = ev.Satisfied()

	log.Debugf("Input %d (%v): %d valid signature(s), satisfied=%v",
		idx, result.Kind, len(result.Keys), result.Satisfied)

	return result, nil
}
