package script

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// Multisig is a parsed OP_CHECKMULTISIG template.
type Multisig struct {
	// Threshold is the declared number of required signatures.
	Threshold int

	// Keys are the public keys in script order.
	Keys [][]byte
}

// ParseMultisig parses OP_m <pubkey>... OP_n OP_CHECKMULTISIG with
// 1 <= m <= n <= 16 and 33 or 65 byte key pushes.
func ParseMultisig(s []byte) (*Multisig, bool) {
	if len(s) < 3 || s[len(s)-1] != txscript.OP_CHECKMULTISIG {
		return nil, false
	}

	tokenizer := txscript.MakeScriptTokenizer(0, s)
	if !tokenizer.Next() || !isSmallInt(tokenizer.Opcode()) {
		return nil, false
	}
	m := smallInt(tokenizer.Opcode())

	var keys [][]byte
	for tokenizer.Next() {
		op := tokenizer.Opcode()
		if op != txscript.OP_DATA_33 && op != txscript.OP_DATA_65 {
			break
		}
		keys = append(keys, tokenizer.Data())
	}
	if tokenizer.Err() != nil || tokenizer.Done() {
		return nil, false
	}

	if !isSmallInt(tokenizer.Opcode()) {
		return nil, false
	}
	n := smallInt(tokenizer.Opcode())
	if n != len(keys) || m < 1 || m > n {
		return nil, false
	}

	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_CHECKMULTISIG {
		return nil, false
	}
	if tokenizer.Next() || tokenizer.Err() != nil {
		return nil, false
	}

	return &Multisig{Threshold: m, Keys: keys}, true
}

// ErrNotPushOnly is returned by PushedData for scripts containing
// non-push opcodes.
var ErrNotPushOnly = errors.New("script is not push only")

// PushedData returns the data pushed by a push-only script, such as a
// signature script. OP_0 yields an empty element; OP_1NEGATE and OP_1
// through OP_16 yield their minimal number encoding.
func PushedData(s []byte) ([][]byte, error) {
	var items [][]byte

	tokenizer := txscript.MakeScriptTokenizer(0, s)
	for tokenizer.Next() {
		op := tokenizer.Opcode()
		switch {
		case op == txscript.OP_0:
			items = append(items, []byte{})
		case op == txscript.OP_1NEGATE:
			items = append(items, []byte{0x81})
		case op >= txscript.OP_1 && op <= txscript.OP_16:
			items = append(items, []byte{byte(smallInt(op))})
		case op <= txscript.OP_PUSHDATA4:
			items = append(items, tokenizer.Data())
		default:
			return nil, fmt.Errorf("%w: opcode 0x%02x at offset %d", ErrNotPushOnly,
				op, tokenizer.ByteIndex())
		}
	}
	if err := tokenizer.Err(); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}

	return items, nil
}

// PubkeyHashScript builds the pay-to-pubkey-hash script for a 20-byte hash.
// It is also the script code of a P2WPKH spend.
func PubkeyHashScript(hash []byte) []byte {
	s, _ := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(hash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	return s
}

// MultisigScript builds a bare multisig script.
func MultisigScript(threshold int, keys [][]byte) ([]byte, error) {
	if threshold < 1 || threshold > len(keys) || len(keys) > 16 {
		return nil, fmt.Errorf("invalid multisig %d-of-%d", threshold, len(keys))
	}

	b := txscript.NewScriptBuilder().AddInt64(int64(threshold))
	for _, key := range keys {
		b.AddData(key)
	}
	return b.AddInt64(int64(len(keys))).
		AddOp(txscript.OP_CHECKMULTISIG).
		Script()
}

// RemoveCodeSeparators strips every OP_CODESEPARATOR from s, as required for
// legacy and segwit v0 script codes. Scripts that fail to parse are returned
// unchanged up to and including the unparsable tail.
func RemoveCodeSeparators(s []byte) []byte {
	var (
		result []byte
		prev   int32
	)

	tokenizer := txscript.MakeScriptTokenizer(0, s)
	for tokenizer.Next() {
		if tokenizer.Opcode() == txscript.OP_CODESEPARATOR {
			if result == nil {
				result = make([]byte, 0, len(s))
			}
			result = append(result, s[prev:tokenizer.ByteIndex()-1]...)
			prev = tokenizer.ByteIndex()
		}
	}
	if result == nil {
		return s
	}

	return append(result, s[prev:]...)
}

// Canonical re-serializes s with every data push re-encoded by length
// alone. Opcodes are kept as they are.
func Canonical(s []byte) ([]byte, error) {
	out := make([]byte, 0, len(s))

	tokenizer := txscript.MakeScriptTokenizer(0, s)
	for tokenizer.Next() {
		op := tokenizer.Opcode()
		if op == txscript.OP_0 || op > txscript.OP_PUSHDATA4 {
			out = append(out, op)
			continue
		}

		data := tokenizer.Data()
		n := len(data)
		switch {
		case n <= txscript.OP_DATA_75:
			out = append(out, byte(n))
		case n <= 0xff:
			out = append(out, txscript.OP_PUSHDATA1, byte(n))
		case n <= 0xffff:
			out = append(out, txscript.OP_PUSHDATA2, byte(n), byte(n>>8))
		default:
			out = append(out, txscript.OP_PUSHDATA4,
				byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
		}
		out = append(out, data...)
	}
	if err := tokenizer.Err(); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}

	return out, nil
}
