package sighash

import (
	"errors"
	"fmt"
)

// HashType is the signature hash type committed to by a signature.
type HashType uint32

// Hash type values. Default is only meaningful for taproot signatures, where
// it behaves like All but is encoded by omitting the trailing byte.
const (
	Default      HashType = 0x00
	All          HashType = 0x01
	None         HashType = 0x02
	Single       HashType = 0x03
	AnyoneCanPay HashType = 0x80

	// legacyMask selects the output mode bits of a legacy hash type.
	legacyMask HashType = 0x1f

	// taprootMask selects the output mode bits of a taproot hash type.
	taprootMask HashType = 0x03
)

var (
	// ErrInvalidHashType is returned for hash types a taproot signature may
	// not use, including SINGLE without a matching output.
	ErrInvalidHashType = errors.New("invalid signature hash type")

	// ErrInvalidSignatureLength is returned for Schnorr signatures that are
	// neither 64 nor 65 bytes.
	ErrInvalidSignatureLength = errors.New("invalid schnorr signature length")
)

// AnyoneCanPay reports whether the ANYONECANPAY flag is set.
func (h HashType) AnyoneCanPay() bool {
	return h&AnyoneCanPay == AnyoneCanPay
}

func (h HashType) legacyBase() HashType {
	return h & legacyMask
}

func (h HashType) taprootBase() HashType {
	return h & taprootMask
}

// String returns the conventional name of the hash type.
func (h HashType) String() string {
	var s string
	switch h &^ AnyoneCanPay {
	case Default:
		s = "DEFAULT"
	case All:
		s = "ALL"
	case None:
		s = "NONE"
	case Single:
		s = "SINGLE"
	default:
		return fmt.Sprintf("0x%02x", uint32(h))
	}
	if h.AnyoneCanPay() {
		s += "|ANYONECANPAY"
	}
	return s
}

// ValidTaproot reports whether h is one of the hash types BIP 341 allows:
// 0x00-0x03 and 0x81-0x83.
func ValidTaproot(h HashType) bool {
	switch h {
	case Default, All, None, Single,
		All | AnyoneCanPay, None | AnyoneCanPay, Single | AnyoneCanPay:
		return true
	}
	return false
}

// SplitECDSA separates the trailing hash type byte from a DER signature.
func SplitECDSA(sig []byte) ([]byte, HashType, bool) {
	if len(sig) == 0 {
		return nil, 0, false
	}
	return sig[:len(sig)-1], HashType(sig[len(sig)-1]), true
}

// SplitSchnorr separates the optional hash type byte from a BIP 340
// signature. A 65-byte signature carrying the default type explicitly is
// invalid.
func SplitSchnorr(sig []byte) ([]byte, HashType, error) {
	switch len(sig) {
	case 64:
		return sig, Default, nil
	case 65:
		ht := HashType(sig[64])
		if ht == Default {
			return nil, 0, fmt.Errorf("%w: explicit default", ErrInvalidHashType)
		}
		return sig[:64], ht, nil
	}
	return nil, 0, fmt.Errorf("%w: %d bytes", ErrInvalidSignatureLength, len(sig))
}
