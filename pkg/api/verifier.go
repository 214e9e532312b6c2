package api

import (
	"errors"

	"github.com/suffix-labs/validkeys/pkg/crypto"
	"github.com/suffix-labs/validkeys/pkg/interpreter"
	"github.com/suffix-labs/validkeys/pkg/sighash"
	"github.com/suffix-labs/validkeys/pkg/sigcache"
)

// digestKey identifies one digest of a single input. The leaf of a script
// path spend is fixed per input, so the variant kind and code separator
// position are enough to tell digests apart.
type digestKey struct {
	kind       sighash.VariantKind
	codeSepPos uint32
	hashType   sighash.HashType
}

type digestResult struct {
	digest [32]byte
	err    error
}

// verifier checks candidates of one input. Digests are computed on first
// use and reused for later candidates committing to the same message.
type verifier struct {
	engine *sighash.Engine
	idx    int
	cache  *sigcache.SigCache

	digests map[digestKey]digestResult
}

func newVerifier(engine *sighash.Engine, idx int, cache *sigcache.SigCache) *verifier {
	return &verifier{
		engine:  engine,
		idx:     idx,
		cache:   cache,
		digests: make(map[digestKey]digestResult),
	}
}

func (v *verifier) digest(variant sighash.Variant, ht sighash.HashType) ([32]byte, error) {
	key := digestKey{kind: variant.Kind, codeSepPos: variant.CodeSepPos, hashType: ht}
	if r, ok := v.digests[key]; ok {
		return r.digest, r.err
	}

	digest, err := v.engine.Compute(v.idx, variant, ht)
	v.digests[key] = digestResult{digest: digest, err: err}
	return digest, err
}

// verify is the evaluator callback. Malformed signatures and hash types a
// signature may not use are rejections; shape errors abort the input.
func (v *verifier) verify(c interpreter.Candidate) (bool, error) {
	var (
		sig []byte
		ht  sighash.HashType
	)
	switch c.Scheme {
	case crypto.SchemeSchnorr:
		var err error
		sig, ht, err = sighash.SplitSchnorr(c.Signature)
		if err != nil {
			log.Tracef("Input %d: rejecting signature: %v", v.idx, err)
			return false, nil
		}

	default:
		var ok bool
		sig, ht, ok = sighash.SplitECDSA(c.Signature)
		if !ok {
			return false, nil
		}
	}

	digest, err := v.digest(c.Variant, ht)
	switch {
	case errors.Is(err, sighash.ErrInvalidHashType):
		log.Tracef("Input %d: rejecting signature: %v", v.idx, err)
		return false, nil

	case err != nil:
		return false, err
	}

	if v.cache != nil && v.cache.Exists(digest, sig, c.PubKey, c.Scheme) {
		log.Tracef("Input %d: signature cache hit for key %x", v.idx, c.PubKey)
		return true, nil
	}

	valid := crypto.Verify(c.PubKey, digest, sig, c.Scheme)
	log.Tracef("Input %d: %v key %x over %x (%v): valid=%v", v.idx,
		c.Scheme, c.PubKey, digest, ht, valid)

	if valid && v.cache != nil {
		v.cache.Add(digest, sig, c.PubKey, c.Scheme)
	}
	return valid, nil
}
