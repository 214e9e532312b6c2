// Package crypto verifies secp256k1 signatures for input verification.
//
// Two schemes are supported:
//   - ECDSA, used by legacy and segwit v0 spends. Signatures are DER
//     encoded; keys are 33-byte compressed or 65-byte uncompressed SEC1.
//   - BIP 340 Schnorr, used by taproot spends. Signatures are 64 bytes and
//     keys are 32-byte x-only encodings.
//
// Verification never fails with an error: anything malformed simply does
// not verify. Key and signing helpers are provided for building spends.
package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Scheme is the signature algorithm a candidate is checked under.
type Scheme uint8

const (
	// SchemeECDSA is DER-encoded ECDSA over secp256k1.
	SchemeECDSA Scheme = iota

	// SchemeSchnorr is BIP 340 Schnorr over secp256k1.
	SchemeSchnorr
)

func (s Scheme) String() string {
	switch s {
	case SchemeECDSA:
		return "ecdsa"
	case SchemeSchnorr:
		return "schnorr"
	}
	return fmt.Sprintf("scheme(%d)", uint8(s))
}

// Verify reports whether sig is a valid signature by pubKey over digest.
// sig must not carry a trailing hash type byte.
func Verify(pubKey []byte, digest [32]byte, sig []byte, scheme Scheme) bool {
	switch scheme {
	case SchemeECDSA:
		return verifyECDSA(pubKey, digest, sig)
	case SchemeSchnorr:
		return verifySchnorr(pubKey, digest, sig)
	}
	return false
}

// verifyECDSA parses sig as strict DER first and falls back to the lax BER
// rules older mainnet signatures need. High-S values are accepted.
func verifyECDSA(pubKey []byte, digest [32]byte, sig []byte) bool {
	key, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}

	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		parsed, err = btcecdsa.ParseSignature(sig)
		if err != nil {
			return false
		}
	}

	return parsed.Verify(digest[:], key)
}

func verifySchnorr(pubKey []byte, digest [32]byte, sig []byte) bool {
	if len(sig) != schnorr.SignatureSize || len(pubKey) != schnorr.PubKeyBytesLen {
		return false
	}

	key, err := schnorr.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}

	return parsed.Verify(digest[:], key)
}

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey is the point of a PrivateKey.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// PrivateKeyFromBytes parses a 32-byte big-endian scalar.
func PrivateKeyFromBytes(scalar []byte) (*PrivateKey, error) {
	if len(scalar) != 32 {
		return nil, fmt.Errorf("invalid private key length %d", len(scalar))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(scalar)}, nil
}

// GeneratePrivateKey returns a new random private key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generating private key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// Sign returns a DER encoded RFC 6979 ECDSA signature over digest, without
// a hash type byte.
func (pk *PrivateKey) Sign(digest [32]byte) ([]byte, error) {
	return ecdsa.Sign(pk.key, digest[:]).Serialize(), nil
}

// SignSchnorr creates a 64-byte BIP 340 signature.
func (pk *PrivateKey) SignSchnorr(hash [32]byte) ([]byte, error) {
	sig, err := schnorr.Sign(pk.key, hash[:])
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// TaprootTweak returns the key that signs for the taproot output committing
// to this internal key and merkleRoot (empty for key-path-only outputs).
func (pk *PrivateKey) TaprootTweak(merkleRoot []byte) *PrivateKey {
	k := pk.key.Key
	pub := pk.key.PubKey()
	if pub.SerializeCompressed()[0] == secp256k1.PubKeyFormatCompressedOdd {
		k.Negate()
	}

	tweak := chainhash.TaggedHash(chainhash.TagTapTweak, schnorr.SerializePubKey(pub), merkleRoot)
	var t secp256k1.ModNScalar
	t.SetBytes((*[32]byte)(tweak))
	k.Add(&t)

	return &PrivateKey{key: secp256k1.NewPrivateKey(&k)}
}

func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// Bytes returns the scalar, zero padded to 32 bytes.
func (pk *PrivateKey) Bytes() []byte {
	return pk.key.Serialize()
}

// Bytes returns the 33-byte SEC compressed encoding used in scripts.
func (pub *PublicKey) Bytes() []byte {
	return pub.key.SerializeCompressed()
}

// SerializeUncompressed returns the 65-byte uncompressed public key.
func (pub *PublicKey) SerializeUncompressed() []byte {
	return pub.key.SerializeUncompressed()
}

// XOnly returns the 32-byte BIP 340 encoding of the key.
func (pub *PublicKey) XOnly() []byte {
	return schnorr.SerializePubKey(pub.key)
}

// BTCEC returns the key as a btcec public key.
func (pub *PublicKey) BTCEC() *btcec.PublicKey {
	return pub.key
}

// ParsePublicKey parses a compressed or uncompressed SEC1 public key, or a
// 32-byte x-only key.
func ParsePublicKey(pubKeyBytes []byte) (*PublicKey, error) {
	var (
		pubKey *secp256k1.PublicKey
		err    error
	)
	switch len(pubKeyBytes) {
	case 32:
		pubKey, err = schnorr.ParsePubKey(pubKeyBytes)
	case 33, 65:
		pubKey, err = secp256k1.ParsePubKey(pubKeyBytes)
	default:
		return nil, fmt.Errorf("public key must be 32, 33 or 65 bytes, got %d", len(pubKeyBytes))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return &PublicKey{key: pubKey}, nil
}
