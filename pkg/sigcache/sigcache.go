// Package sigcache remembers signatures that have already verified so
// repeated checks of the same (digest, signature, key) triple skip the curve
// arithmetic.
package sigcache

import (
	"hash"

	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/lru"
	blake2b "github.com/minio/blake2b-simd"

	"github.com/suffix-labs/validkeys/pkg/crypto"
)

// entryPersonalization separates cache entry hashes from any other BLAKE2b
// use of the same inputs.
const entryPersonalization = "validkeysSigCach"

// DefaultMaxEntries is the cache size used when zero is requested.
const DefaultMaxEntries = 50000

// SigCache is a bounded set of verified signatures with least recently used
// eviction. Only signatures that verified are added. Entries are keyed by a
// hash of the full triple, so a cache hit never depends on a truncated
// comparison.
//
// NOTE: SigCache is safe for concurrent access.
type SigCache struct {
	cache lru.Cache
}

// New returns a cache holding at most maxEntries signatures.
func New(maxEntries uint) *SigCache {
	if maxEntries == 0 {
		maxEntries = DefaultMaxEntries
	}
	return &SigCache{cache: lru.NewCache(maxEntries)}
}

// Exists reports whether sig over digest has already verified under pubKey
// with the given scheme.
func (s *SigCache) Exists(digest [32]byte, sig, pubKey []byte, scheme crypto.Scheme) bool {
	return s.cache.Contains(entryKey(digest, sig, pubKey, scheme))
}

// Add records that sig over digest verified under pubKey.
func (s *SigCache) Add(digest [32]byte, sig, pubKey []byte, scheme crypto.Scheme) {
	s.cache.Add(entryKey(digest, sig, pubKey, scheme))
}

func newEntryHash() hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size:   32,
		Person: []byte(entryPersonalization),
	})
	if err != nil {
		// Only reachable with an invalid config.
		panic(err)
	}
	return h
}

// entryKey commits to every field with explicit lengths so distinct
// triples cannot collide by concatenation.
func entryKey(digest [32]byte, sig, pubKey []byte, scheme crypto.Scheme) [32]byte {
	h := newEntryHash()
	h.Write([]byte{byte(scheme)})
	h.Write(digest[:])
	// Writes to a hash never fail.
	_ = wire.WriteVarBytes(h, 0, sig)
	_ = wire.WriteVarBytes(h, 0, pubKey)

	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}
