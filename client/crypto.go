package client

import (
	"crypto/ed25519"
	"errors"

	"ppn/common"
	"ppn/payment"
)

var ErrUnsupportedKey = errors.New("crypto: unsupported private key length")

// SignRequest signs req in place. privKey may be a 32-byte ed25519 seed or
// a full 64-byte private key.
func SignRequest(req *payment.Request, privKey []byte) error {
	switch len(privKey) {
	case ed25519.SeedSize:
		req.Sign(ed25519.NewKeyFromSeed(privKey))
	case ed25519.PrivateKeySize:
		req.Sign(ed25519.PrivateKey(privKey))
	default:
		return ErrUnsupportedKey
	}
	return nil
}

// AddressFromPrivateKey derives the base58 wallet address for privKey.
func AddressFromPrivateKey(privKey ed25519.PrivateKey) string {
	pub := privKey.Public().(ed25519.PublicKey)
	return common.EncodeBytesToBase58(pub)
}
