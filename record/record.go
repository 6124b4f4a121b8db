// Package record defines the immutable transfer record: its fixed binary
// layout, the codec over that layout, and the deterministic derivation of
// the address each record lives at.
//
// Packed layout, all integers little-endian:
//
//	offset  size  field
//	     0     8  discriminator tag
//	     8    32  sender public key
//	    40    32  receiver public key
//	    72     8  amount (uint64)
//	    80     8  timestamp (int64, unix seconds)
//	    88     4  memo byte length (uint32)
//	    92   256  memo bytes, zero padded
//
// Every record packs to exactly PackedSize bytes, so history scans can
// discard foreign rows on length alone before touching the contents.
package record

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"ppn/common"
)

// MaxMemoBytes bounds the memo in BYTES, not runes. A memo of exactly
// MaxMemoBytes is accepted; one byte more is rejected.
const MaxMemoBytes = 256

const (
	TagOffset       = 0
	SenderOffset    = 8
	ReceiverOffset  = 40
	AmountOffset    = 72
	TimestampOffset = 80
	MemoLenOffset   = 88
	MemoOffset      = 92

	// PackedSize is the constant encoded size of every record.
	PackedSize = MemoOffset + MaxMemoBytes
)

// addressNamespace scopes record addresses away from every other derived
// key in the system.
const addressNamespace = "record"

// packedTag versions the layout above.
var packedTag = common.DeriveTag("record:transfer:v1")

// Record is the decoded form of one committed transfer. Identities are
// base58 public keys, matching how accounts are named everywhere else.
type Record struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Memo      string `json:"memo"`
}

// Address derives the storage address for the record a sender creates at
// the given sequence number. The derivation folds in a namespace tag, the
// raw sender key and the little-endian sequence, so the address is known
// before the transfer executes and two distinct (sender, sequence) pairs
// cannot collide.
func Address(sender string, sequence uint64) (string, error) {
	pub, err := common.DecodePublicKey(sender)
	if err != nil {
		return "", fmt.Errorf("invalid sender identity: %w", err)
	}
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], sequence)
	return common.DeriveAddress(addressNamespace, pub[:], seq[:]), nil
}

// Pack encodes the record into its fixed layout. Identities must decode
// to 32-byte keys and the memo must fit MaxMemoBytes.
func (r *Record) Pack() ([]byte, error) {
	sender, err := common.DecodePublicKey(r.Sender)
	if err != nil {
		return nil, fmt.Errorf("invalid sender identity: %w", err)
	}
	receiver, err := common.DecodePublicKey(r.Receiver)
	if err != nil {
		return nil, fmt.Errorf("invalid receiver identity: %w", err)
	}
	if len(r.Memo) > MaxMemoBytes {
		return nil, fmt.Errorf("memo is %d bytes, limit is %d", len(r.Memo), MaxMemoBytes)
	}

	buf := make([]byte, PackedSize)
	copy(buf[TagOffset:], packedTag[:])
	copy(buf[SenderOffset:], sender[:])
	copy(buf[ReceiverOffset:], receiver[:])
	binary.LittleEndian.PutUint64(buf[AmountOffset:], r.Amount)
	binary.LittleEndian.PutUint64(buf[TimestampOffset:], uint64(r.Timestamp))
	binary.LittleEndian.PutUint32(buf[MemoLenOffset:], uint32(len(r.Memo)))
	copy(buf[MemoOffset:], r.Memo)
	return buf, nil
}

// Unpack decodes a packed record, rejecting rows of the wrong size, a
// foreign discriminator, or an out-of-range memo length.
func Unpack(data []byte) (*Record, error) {
	if len(data) != PackedSize {
		return nil, fmt.Errorf("packed record must be %d bytes, got %d", PackedSize, len(data))
	}
	if !bytes.Equal(data[TagOffset:SenderOffset], packedTag[:]) {
		return nil, fmt.Errorf("unknown record discriminator")
	}
	memoLen := binary.LittleEndian.Uint32(data[MemoLenOffset:MemoOffset])
	if memoLen > MaxMemoBytes {
		return nil, fmt.Errorf("memo length %d exceeds limit %d", memoLen, MaxMemoBytes)
	}

	return &Record{
		Sender:    common.EncodeBytesToBase58(data[SenderOffset:ReceiverOffset]),
		Receiver:  common.EncodeBytesToBase58(data[ReceiverOffset:AmountOffset]),
		Amount:    binary.LittleEndian.Uint64(data[AmountOffset:TimestampOffset]),
		Timestamp: int64(binary.LittleEndian.Uint64(data[TimestampOffset:MemoLenOffset])),
		Memo:      string(data[MemoOffset : MemoOffset+int(memoLen)]),
	}, nil
}

// IsPacked probes whether raw bytes could hold a record without decoding
// them: exact size and our discriminator.
func IsPacked(raw []byte) bool {
	return len(raw) == PackedSize && bytes.Equal(raw[TagOffset:SenderOffset], packedTag[:])
}

// MatchesSender compares the sender field of an undecoded record against
// a raw public key. Callers filter scan results with this before paying
// for a full Unpack.
func MatchesSender(raw []byte, sender [common.PublicKeySize]byte) bool {
	if len(raw) != PackedSize {
		return false
	}
	return bytes.Equal(raw[SenderOffset:ReceiverOffset], sender[:])
}
