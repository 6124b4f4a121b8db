package common

import (
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeySize is the byte length of an ed25519 public key, the
// fixed-width identity used everywhere an account is named.
const PublicKeySize = 32

// EncodeToBase58 encodes a hex string to base58
func EncodeToBase58(hexStr string) (string, error) {
	if len(hexStr) >= 2 && hexStr[:2] == "0x" {
		hexStr = hexStr[2:]
	}

	bytes, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex string: %w", err)
	}

	return base58.Encode(bytes), nil
}

// EncodeBytesToBase58 encodes bytes directly to base58
func EncodeBytesToBase58(bytes []byte) string {
	return base58.Encode(bytes)
}

// DecodeBase58ToBytes decodes base58 string to bytes
func DecodeBase58ToBytes(base58Str string) ([]byte, error) {
	bytes, err := base58.Decode(base58Str)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58 string: %w", err)
	}
	return bytes, nil
}

// DecodePublicKey decodes a base58 account identity into its fixed-width
// raw form. Anything that does not decode to exactly PublicKeySize bytes
// is rejected.
func DecodePublicKey(base58Str string) ([PublicKeySize]byte, error) {
	var pub [PublicKeySize]byte
	bytes, err := base58.Decode(base58Str)
	if err != nil {
		return pub, fmt.Errorf("failed to decode base58 string: %w", err)
	}
	if len(bytes) != PublicKeySize {
		return pub, fmt.Errorf("expected %d-byte public key, got %d bytes", PublicKeySize, len(bytes))
	}
	copy(pub[:], bytes)
	return pub, nil
}

// IsValidBase58 checks if a string is valid base58
func IsValidBase58(str string) bool {
	decoded, err := base58.Decode(str)
	return err == nil && len(decoded) > 0
}
