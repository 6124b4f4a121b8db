package payment

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"ppn/common"
	"ppn/jsonx"
	"ppn/logx"
)

// Limits to prevent DoS via oversized inputs
const (
	maxSignatureBase58Len  = 2048
	maxSignatureDecodedLen = 4096
)

// Request is a signed instruction to move value from Sender to Receiver.
// Sequence pins the request to the program state counter the sender observed;
// the ledger rejects the request once the counter has moved past it.
type Request struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    uint64 `json:"amount"`
	Memo      string `json:"memo,omitempty"`
	Sequence  uint64 `json:"sequence"`
	Signature string `json:"signature,omitempty"`
}

// Serialize returns the canonical signing preimage. The signature is never
// part of the preimage.
func (r *Request) Serialize() []byte {
	metadata := fmt.Sprintf(
		"%s|%s|%d|%d|%s",
		r.Sender, r.Receiver, r.Amount, r.Sequence, r.Memo,
	)
	return []byte(metadata)
}

// Sign signs the canonical preimage with priv and attaches the signature in
// base58 form.
func (r *Request) Sign(priv ed25519.PrivateKey) {
	sig := ed25519.Sign(priv, r.Serialize())
	r.Signature = common.EncodeBytesToBase58(sig)
}

func (r *Request) Verify() bool {
	// Validate inputs
	if r.Signature == "" {
		logx.Error("RequestVerify", "missing signature")
		return false
	}

	if len(r.Signature) > maxSignatureBase58Len {
		logx.Error("RequestVerify", "signature too large")
		return false
	}

	signature, err := common.DecodeBase58ToBytes(r.Signature)
	if err != nil {
		logx.Error("RequestVerify", "failed to decode signature", err)
		return false
	}

	if len(signature) > maxSignatureDecodedLen {
		logx.Error("RequestVerify", "decoded signature too large")
		return false
	}

	pub, err := base58ToEd25519(r.Sender)
	if err != nil {
		logx.Error("RequestVerify", "failed to decode sender", err)
		return false
	}
	return ed25519.Verify(pub, r.Serialize(), signature)
}

func (r *Request) Bytes() []byte {
	b, _ := jsonx.Marshal(r)
	return b
}

// Hash is the commit handle clients poll with. It covers the canonical
// preimage only, so it is stable before and after signing.
func (r *Request) Hash() string {
	sum256 := sha256.Sum256(r.Serialize())
	return base58.Encode(sum256[:])
}

func base58ToEd25519(addr string) (ed25519.PublicKey, error) {
	b, err := common.DecodeBase58ToBytes(addr)
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid pubkey")
	}
	return ed25519.PublicKey(b), nil
}
