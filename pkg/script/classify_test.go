package script

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func hexDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err, "invalid hex: %s", s)
	return b
}

func compressedKey(b byte) []byte {
	key := bytes.Repeat([]byte{b}, 33)
	key[0] = 0x02
	return key
}

func TestClassify(t *testing.T) {
	hash20 := bytes.Repeat([]byte{0xab}, 20)
	hash32 := bytes.Repeat([]byte{0xcd}, 32)

	p2ms, err := MultisigScript(2, [][]byte{compressedKey(1), compressedKey(2), compressedKey(3)})
	require.NoError(t, err)

	tests := []struct {
		name   string
		script []byte
		want   Kind
	}{
		{"p2pk compressed", append(append([]byte{txscript.OP_DATA_33}, compressedKey(9)...), txscript.OP_CHECKSIG), LegacyPubkey},
		{"p2pkh", PubkeyHashScript(hash20), LegacyPubkeyHash},
		{"p2ms", p2ms, LegacyMultisig},
		{"p2sh", hexDecode(t, "a914"+hex.EncodeToString(hash20)+"87"), LegacyScriptHash},
		{"p2wpkh", append([]byte{0x00, 0x14}, hash20...), SegwitV0PubkeyHash},
		{"p2wsh", append([]byte{0x00, 0x20}, hash32...), SegwitV0ScriptHash},
		{"p2tr", append([]byte{0x51, 0x20}, hash32...), TaprootOutput},
		{"real p2wsh", hexDecode(t, "0020781ada670a98cfb276c6d2a78bbf21eb8f3617f4c2288cb16f5ad8741b5d83dd"), SegwitV0ScriptHash},
		{"witness v0 wrong length", append([]byte{0x00, 0x18}, bytes.Repeat([]byte{1}, 24)...), NonStandard},
		{"witness v2", append([]byte{0x52, 0x20}, hash32...), NonStandard},
		{"op_return", []byte{txscript.OP_RETURN, 0x01, 0x02}, NonStandard},
		{"empty", nil, NonStandard},
		{"truncated push", []byte{txscript.OP_DATA_33, 0x02}, NonStandard},
		{"p2pk bad prefix", append(append([]byte{txscript.OP_DATA_33}, bytes.Repeat([]byte{0x05}, 33)...), txscript.OP_CHECKSIG), NonStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.script))
		})
	}
}

func TestKindString(t *testing.T) {
	for k := NonStandard; k <= TaprootOutput; k++ {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
	}
	assert.Equal(t, "Unknown", Kind(99).String())

	assert.True(t, TaprootOutput.IsWitness())
	assert.True(t, SegwitV0ScriptHash.IsWitness())
	assert.False(t, LegacyScriptHash.IsWitness())
}

func TestParseMultisig(t *testing.T) {
	keys := [][]byte{compressedKey(1), compressedKey(2), compressedKey(3)}
	s, err := MultisigScript(2, keys)
	require.NoError(t, err)

	ms, ok := ParseMultisig(s)
	require.True(t, ok)
	assert.Equal(t, 2, ms.Threshold)
	assert.Equal(t, keys, ms.Keys)

	// n does not match the key count.
	bad := append([]byte{}, s...)
	bad[len(bad)-2] = txscript.OP_2
	_, ok = ParseMultisig(bad)
	assert.False(t, ok)

	// m greater than n.
	bad = append([]byte{}, s...)
	bad[0] = txscript.OP_4
	_, ok = ParseMultisig(bad)
	assert.False(t, ok)

	// Trailing opcode after OP_CHECKMULTISIG.
	_, ok = ParseMultisig(append(append([]byte{}, s...), txscript.OP_CHECKMULTISIG))
	assert.False(t, ok)

	_, err = MultisigScript(3, keys[:2])
	assert.Error(t, err)
}

func TestPushedData(t *testing.T) {
	s, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(bytes.Repeat([]byte{0x30}, 72)).
		AddData(bytes.Repeat([]byte{0x11}, 100)).
		AddOp(txscript.OP_1).
		Script()
	require.NoError(t, err)

	items, err := PushedData(s)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Empty(t, items[0])
	assert.Len(t, items[1], 72)
	assert.Len(t, items[2], 100)
	assert.Equal(t, []byte{1}, items[3])

	_, err = PushedData([]byte{txscript.OP_0, txscript.OP_CHECKSIG})
	assert.ErrorIs(t, err, ErrNotPushOnly)

	_, err = PushedData([]byte{txscript.OP_DATA_5, 0x01})
	assert.Error(t, err)
}

func TestRemoveCodeSeparators(t *testing.T) {
	s := []byte{
		txscript.OP_CODESEPARATOR,
		txscript.OP_DATA_1, txscript.OP_CODESEPARATOR,
		txscript.OP_DUP,
		txscript.OP_CODESEPARATOR,
		txscript.OP_CHECKSIG,
	}

	got := RemoveCodeSeparators(s)
	assert.Equal(t, []byte{
		txscript.OP_DATA_1, txscript.OP_CODESEPARATOR,
		txscript.OP_DUP,
		txscript.OP_CHECKSIG,
	}, got)

	plain := []byte{txscript.OP_DUP, txscript.OP_CHECKSIG}
	assert.Equal(t, plain, RemoveCodeSeparators(plain))
}

// genStandardScript draws a locking script from one of the known templates.
func genStandardScript(t *rapid.T) ([]byte, Kind) {
	switch rapid.IntRange(0, 6).Draw(t, "template") {
	case 0:
		key := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "key")
		prefix := rapid.SampledFrom([]byte{0x02, 0x03}).Draw(t, "prefix")
		s := append([]byte{txscript.OP_DATA_33, prefix}, key...)
		return append(s, txscript.OP_CHECKSIG), LegacyPubkey
	case 1:
		return PubkeyHashScript(rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "hash")), LegacyPubkeyHash
	case 2:
		n := rapid.IntRange(1, 16).Draw(t, "n")
		m := rapid.IntRange(1, n).Draw(t, "m")
		keys := make([][]byte, n)
		for i := range keys {
			keys[i] = append([]byte{0x03}, rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "key")...)
		}
		s, err := MultisigScript(m, keys)
		if err != nil {
			t.Fatalf("building multisig: %v", err)
		}
		return s, LegacyMultisig
	case 3:
		s := append([]byte{txscript.OP_HASH160, txscript.OP_DATA_20},
			rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "hash")...)
		return append(s, txscript.OP_EQUAL), LegacyScriptHash
	case 4:
		return append([]byte{txscript.OP_0, txscript.OP_DATA_20},
			rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "hash")...), SegwitV0PubkeyHash
	case 5:
		return append([]byte{txscript.OP_0, txscript.OP_DATA_32},
			rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "hash")...), SegwitV0ScriptHash
	default:
		return append([]byte{txscript.OP_1, txscript.OP_DATA_32},
			rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "key")...), TaprootOutput
	}
}

func TestClassifyCanonicalRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, want := genStandardScript(t)

		kind := Classify(s)
		if kind != want {
			t.Fatalf("classified %x as %v, want %v", s, kind, want)
		}

		canonical, err := Canonical(s)
		if err != nil {
			t.Fatalf("canonical: %v", err)
		}
		if !bytes.Equal(canonical, s) {
			t.Fatalf("canonical form changed script %x -> %x", s, canonical)
		}
		if again := Classify(canonical); again != kind {
			t.Fatalf("reclassified as %v, want %v", again, kind)
		}
	})
}

func TestClassifyTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.SliceOfN(rapid.Byte(), 0, 120).Draw(t, "script")

		kind := Classify(s)
		if kind > TaprootOutput {
			t.Fatalf("unexpected kind %d", kind)
		}
		if Classify(s) != kind {
			t.Fatalf("classification is not deterministic for %x", s)
		}
	})
}
