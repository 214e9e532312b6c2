package crypto

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T, b byte) *PrivateKey {
	t.Helper()
	key, err := PrivateKeyFromBytes(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return key
}

func TestVerifyECDSA(t *testing.T) {
	key := testKey(t, 0x11)
	digest := sha256.Sum256([]byte("input digest"))

	sig, err := key.Sign(digest)
	require.NoError(t, err)

	pub := key.PublicKey()
	assert.True(t, Verify(pub.Bytes(), digest, sig, SchemeECDSA))
	assert.True(t, Verify(pub.SerializeUncompressed(), digest, sig, SchemeECDSA))

	other := sha256.Sum256([]byte("other digest"))
	assert.False(t, Verify(pub.Bytes(), other, sig, SchemeECDSA))
	assert.False(t, Verify(testKey(t, 0x22).PublicKey().Bytes(), digest, sig, SchemeECDSA))

	// Same signature checked under the wrong scheme.
	assert.False(t, Verify(pub.XOnly(), digest, sig, SchemeSchnorr))
}

func TestVerifyECDSAMalformed(t *testing.T) {
	key := testKey(t, 0x11)
	digest := sha256.Sum256([]byte("input digest"))
	sig, err := key.Sign(digest)
	require.NoError(t, err)
	pub := key.PublicKey().Bytes()

	tests := []struct {
		name string
		pub  []byte
		sig  []byte
	}{
		{"empty signature", pub, nil},
		{"truncated signature", pub, sig[:len(sig)-4]},
		{"garbage signature", pub, bytes.Repeat([]byte{0x30}, 70)},
		{"empty key", nil, sig},
		{"bad key prefix", append([]byte{0x05}, pub[1:]...), sig},
		{"x-only key", pub[1:], sig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(tt.pub, digest, tt.sig, SchemeECDSA))
		})
	}
}

func TestVerifySchnorr(t *testing.T) {
	key := testKey(t, 0x33)
	digest := sha256.Sum256([]byte("taproot digest"))

	sig, err := key.SignSchnorr(digest)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	xonly := key.PublicKey().XOnly()
	assert.True(t, Verify(xonly, digest, sig, SchemeSchnorr))

	tampered := append([]byte{}, sig...)
	tampered[10] ^= 0x01
	assert.False(t, Verify(xonly, digest, tampered, SchemeSchnorr))

	// Hash type byte must be stripped before verification.
	assert.False(t, Verify(xonly, digest, append(append([]byte{}, sig...), 0x01), SchemeSchnorr))
	assert.False(t, Verify(key.PublicKey().Bytes(), digest, sig, SchemeSchnorr))
	assert.False(t, Verify(xonly, digest, sig, Scheme(9)))
}

func TestTaprootTweak(t *testing.T) {
	for _, b := range []byte{0x01, 0x02, 0x07, 0x44} {
		internal := testKey(t, b)
		root := sha256.Sum256([]byte{b})

		for _, merkleRoot := range [][]byte{nil, root[:]} {
			tweaked := internal.TaprootTweak(merkleRoot)
			want := txscript.ComputeTaprootOutputKey(internal.PublicKey().BTCEC(), merkleRoot)

			assert.Equal(t, schnorr.SerializePubKey(want), tweaked.PublicKey().XOnly())

			digest := sha256.Sum256(append([]byte{b}, merkleRoot...))
			sig, err := tweaked.SignSchnorr(digest)
			require.NoError(t, err)
			assert.True(t, Verify(schnorr.SerializePubKey(want), digest, sig, SchemeSchnorr))
		}
	}
}

func TestParsePublicKey(t *testing.T) {
	pub := testKey(t, 0x55).PublicKey()

	for _, encoded := range [][]byte{pub.Bytes(), pub.SerializeUncompressed(), pub.XOnly()} {
		parsed, err := ParsePublicKey(encoded)
		require.NoError(t, err)
		assert.Equal(t, pub.XOnly(), parsed.XOnly())
	}

	_, err := ParsePublicKey(make([]byte, 20))
	assert.Error(t, err)

	_, err = PrivateKeyFromBytes(make([]byte, 31))
	assert.Error(t, err)

	generated, err := GeneratePrivateKey()
	require.NoError(t, err)
	assert.Len(t, generated.Bytes(), 32)
}
