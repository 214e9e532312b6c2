package interpreter

import (
	"github.com/suffix-labs/validkeys/pkg/crypto"
	"github.com/suffix-labs/validkeys/pkg/sighash"
)

// multisigWalker reproduces the OP_CHECKMULTISIG matching order.
//
// Keys are taken in script order and signatures in the order they appear in
// the spending data. A signature that verifies moves both pointers; one that
// does not moves only the key pointer, so the signature is tried against the
// next key. An empty placeholder fills the current key's slot without being
// proposed. The walk ends once keys or signatures run out, or when fewer keys
// remain than signatures.
type multisigWalker struct {
	keys    [][]byte
	sigs    [][]byte
	variant sighash.Variant

	keyIdx int
	sigIdx int
	valid  int
}

func newMultisigWalker(keys, sigs [][]byte, variant sighash.Variant) *multisigWalker {
	return &multisigWalker{keys: keys, sigs: sigs, variant: variant}
}

func (w *multisigWalker) advance() bool {
	for {
		if w.sigIdx >= len(w.sigs) || w.keyIdx >= len(w.keys) {
			return false
		}
		if len(w.sigs)-w.sigIdx > len(w.keys)-w.keyIdx {
			return false
		}
		if len(w.sigs[w.sigIdx]) != 0 {
			return true
		}

		w.sigIdx++
		w.keyIdx++
	}
}

func (w *multisigWalker) candidate() Candidate {
	return Candidate{
		PubKey:    w.keys[w.keyIdx],
		Signature: w.sigs[w.sigIdx],
		Scheme:    crypto.SchemeECDSA,
		Variant:   w.variant,
	}
}

func (w *multisigWalker) record(valid bool) {
	if valid {
		w.valid++
		w.sigIdx++
	}
	w.keyIdx++
}

func (w *multisigWalker) satisfied() bool {
	return w.valid == len(w.sigs)
}

// singleWalker proposes one key and signature.
type singleWalker struct {
	cand  Candidate
	done  bool
	valid bool
}

func newSingleWalker(key, sig []byte, scheme crypto.Scheme, variant sighash.Variant) *singleWalker {
	return &singleWalker{
		cand: Candidate{
			PubKey:    key,
			Signature: sig,
			Scheme:    scheme,
			Variant:   variant,
		},
		done: len(sig) == 0,
	}
}

func (w *singleWalker) advance() bool {
	return !w.done
}

func (w *singleWalker) candidate() Candidate {
	return w.cand
}

func (w *singleWalker) record(valid bool) {
	w.valid = valid
	w.done = true
}

func (w *singleWalker) satisfied() bool {
	return w.valid
}
