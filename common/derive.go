package common

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"
)

// DeriveAddress maps a namespace tag plus an ordered set of seed byte
// groups to a deterministic base58 address. The same inputs always yield
// the same address, and distinct inputs cannot collide without breaking
// sha256. Group lengths are folded into the hash so that moving a byte
// between adjacent seeds changes the result.
func DeriveAddress(namespace string, seeds ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	for _, seed := range seeds {
		h.Write([]byte{byte(len(seed))})
		h.Write(seed)
	}
	return base58.Encode(h.Sum(nil))
}

// DeriveTag derives the fixed 8-byte discriminator that versions a
// persisted binary layout. Stored rows open with their tag so that a
// layout change cannot be misread as the old shape.
func DeriveTag(name string) [8]byte {
	var tag [8]byte
	sum := sha256.Sum256([]byte(name))
	copy(tag[:], sum[:8])
	return tag
}
