// Package script classifies locking scripts and parses the small set of
// script templates that input verification understands.
//
// Classification is purely structural: it looks at opcodes and push lengths
// and never at what the spending data claims. Scripts that match no template
// map to NonStandard, which the rest of the system reports as unverifiable.
//
// Tokenizing is done with btcd's txscript.ScriptTokenizer so push encodings
// are parsed exactly the way the reference node parses them.
package script

import (
	"github.com/btcsuite/btcd/txscript"
)

// Kind identifies the template of a locking script.
type Kind uint8

const (
	// NonStandard is any script that matches no known template.
	NonStandard Kind = iota

	// LegacyPubkey is pay-to-pubkey: <pubkey> OP_CHECKSIG.
	LegacyPubkey

	// LegacyPubkeyHash is pay-to-pubkey-hash.
	LegacyPubkeyHash

	// LegacyMultisig is bare multisig: OP_m <pubkeys...> OP_n OP_CHECKMULTISIG.
	LegacyMultisig

	// LegacyScriptHash is pay-to-script-hash.
	LegacyScriptHash

	// SegwitV0PubkeyHash is a version 0 witness program of 20 bytes.
	SegwitV0PubkeyHash

	// SegwitV0ScriptHash is a version 0 witness program of 32 bytes.
	SegwitV0ScriptHash

	// TaprootOutput is a version 1 witness program of 32 bytes.
	TaprootOutput
)

var kindNames = map[Kind]string{
	NonStandard:        "NonStandard",
	LegacyPubkey:       "LegacyPubkey",
	LegacyPubkeyHash:   "LegacyPubkeyHash",
	LegacyMultisig:     "LegacyMultisig",
	LegacyScriptHash:   "LegacyScriptHash",
	SegwitV0PubkeyHash: "SegwitV0PubkeyHash",
	SegwitV0ScriptHash: "SegwitV0ScriptHash",
	TaprootOutput:      "TaprootOutput",
}

// String returns the kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// ParseKind is the inverse of String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return NonStandard, false
}

// IsWitness reports whether outputs of this kind are spent through the
// witness rather than the signature script.
func (k Kind) IsWitness() bool {
	switch k {
	case SegwitV0PubkeyHash, SegwitV0ScriptHash, TaprootOutput:
		return true
	}
	return false
}

// Classify returns the template kind of a locking script. It never fails.
func Classify(pkScript []byte) Kind {
	switch {
	case isPubkeyHash(pkScript):
		return LegacyPubkeyHash
	case isScriptHash(pkScript):
		return LegacyScriptHash
	}

	if version, program, ok := WitnessProgram(pkScript); ok {
		switch {
		case version == 0 && len(program) == 20:
			return SegwitV0PubkeyHash
		case version == 0 && len(program) == 32:
			return SegwitV0ScriptHash
		case version == 1 && len(program) == 32:
			return TaprootOutput
		}
		return NonStandard
	}

	if _, ok := ParsePubkey(pkScript); ok {
		return LegacyPubkey
	}
	if _, ok := ParseMultisig(pkScript); ok {
		return LegacyMultisig
	}

	return NonStandard
}

// isPubkeyHash matches OP_DUP OP_HASH160 <20> OP_EQUALVERIFY OP_CHECKSIG.
func isPubkeyHash(s []byte) bool {
	return len(s) == 25 &&
		s[0] == txscript.OP_DUP &&
		s[1] == txscript.OP_HASH160 &&
		s[2] == txscript.OP_DATA_20 &&
		s[23] == txscript.OP_EQUALVERIFY &&
		s[24] == txscript.OP_CHECKSIG
}

// isScriptHash matches OP_HASH160 <20> OP_EQUAL.
func isScriptHash(s []byte) bool {
	return len(s) == 23 &&
		s[0] == txscript.OP_HASH160 &&
		s[1] == txscript.OP_DATA_20 &&
		s[22] == txscript.OP_EQUAL
}

// WitnessProgram splits a witness output script into its version and
// program. Programs are 2 to 40 bytes pushed directly after a small-int
// version opcode.
func WitnessProgram(s []byte) (int, []byte, bool) {
	if len(s) < 4 || len(s) > 42 {
		return 0, nil, false
	}
	if s[0] != txscript.OP_0 && (s[0] < txscript.OP_1 || s[0] > txscript.OP_16) {
		return 0, nil, false
	}
	if int(s[1])+2 != len(s) {
		return 0, nil, false
	}
	return smallInt(s[0]), s[2:], true
}

// PubkeyHash returns the 20-byte hash of a pay-to-pubkey-hash script.
func PubkeyHash(s []byte) ([]byte, bool) {
	if !isPubkeyHash(s) {
		return nil, false
	}
	return s[3:23], true
}

// ScriptHash returns the 20-byte hash of a pay-to-script-hash script.
func ScriptHash(s []byte) ([]byte, bool) {
	if !isScriptHash(s) {
		return nil, false
	}
	return s[2:22], true
}

// ParsePubkey returns the key of a pay-to-pubkey script.
func ParsePubkey(s []byte) ([]byte, bool) {
	switch {
	case len(s) == 35 && s[0] == txscript.OP_DATA_33 && s[34] == txscript.OP_CHECKSIG:
		if s[1] != 0x02 && s[1] != 0x03 {
			return nil, false
		}
		return s[1:34], true

	case len(s) == 67 && s[0] == txscript.OP_DATA_65 && s[66] == txscript.OP_CHECKSIG:
		if s[1] != 0x04 {
			return nil, false
		}
		return s[1:66], true
	}
	return nil, false
}

// smallInt converts OP_0 and OP_1 through OP_16 to their integer value.
func smallInt(op byte) int {
	if op == txscript.OP_0 {
		return 0
	}
	return int(op - (txscript.OP_1 - 1))
}

func isSmallInt(op byte) bool {
	return op == txscript.OP_0 || (op >= txscript.OP_1 && op <= txscript.OP_16)
}
