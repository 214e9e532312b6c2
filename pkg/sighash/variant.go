package sighash

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// VariantKind selects the digest algorithm.
type VariantKind uint8

const (
	// Legacy is the original transaction-copy digest.
	Legacy VariantKind = iota

	// SegwitV0 is the BIP 143 digest.
	SegwitV0

	// TaprootKeyPath is the BIP 341 digest with ext_flag 0.
	TaprootKeyPath

	// TaprootScriptPath is the BIP 341 digest with the BIP 342 extension.
	TaprootScriptPath
)

func (k VariantKind) String() string {
	switch k {
	case Legacy:
		return "legacy"
	case SegwitV0:
		return "segwit-v0"
	case TaprootKeyPath:
		return "taproot-keypath"
	case TaprootScriptPath:
		return "taproot-scriptpath"
	}
	return "unknown"
}

// NoCodeSeparator is the code separator position committed to when no
// OP_CODESEPARATOR has executed.
const NoCodeSeparator uint32 = 0xffffffff

// Variant carries everything a digest needs beyond the transaction and its
// prevouts.
type Variant struct {
	Kind VariantKind

	// ScriptCode is the script committed to by legacy and segwit v0
	// digests.
	ScriptCode []byte

	// Amount is the value of the spent output, used by segwit v0.
	Amount int64

	// LeafScript and LeafVersion identify the executed tapscript leaf.
	LeafScript  []byte
	LeafVersion byte

	// CodeSepPos is the opcode position of the last executed
	// OP_CODESEPARATOR in the leaf.
	CodeSepPos uint32

	// Annex is the taproot annex including its 0x50 prefix, when present.
	Annex fn.Option[[]byte]

	leafHash chainhash.Hash
}

// LegacyVariant returns a pre-segwit variant over scriptCode.
func LegacyVariant(scriptCode []byte) Variant {
	return Variant{Kind: Legacy, ScriptCode: scriptCode}
}

// SegwitV0Variant returns a BIP 143 variant.
func SegwitV0Variant(scriptCode []byte, amount int64) Variant {
	return Variant{Kind: SegwitV0, ScriptCode: scriptCode, Amount: amount}
}

// KeyPathVariant returns a taproot key path variant.
func KeyPathVariant(annex fn.Option[[]byte]) Variant {
	return Variant{Kind: TaprootKeyPath, Annex: annex}
}

// ScriptPathVariant returns a taproot script path variant for the given leaf.
func ScriptPathVariant(leafVersion byte, leafScript []byte, codeSepPos uint32,
	annex fn.Option[[]byte]) Variant {

	return Variant{
		Kind:        TaprootScriptPath,
		LeafScript:  leafScript,
		LeafVersion: leafVersion,
		CodeSepPos:  codeSepPos,
		Annex:       annex,
		leafHash:    LeafHash(leafVersion, leafScript),
	}
}

// WithCodeSepPos returns a copy of a script path variant committing to a
// different code separator position.
func (v Variant) WithCodeSepPos(pos uint32) Variant {
	v.CodeSepPos = pos
	return v
}

// TapLeafHash returns the leaf hash of a script path variant.
func (v Variant) TapLeafHash() chainhash.Hash {
	if v.leafHash == (chainhash.Hash{}) {
		return LeafHash(v.LeafVersion, v.LeafScript)
	}
	return v.leafHash
}
