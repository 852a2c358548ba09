// Package crypto provides the hashing and key primitives for the
// tearoff commitment scheme.
//
// Every digest in the scheme is a BLAKE2b-256 with a distinct 16-byte
// personalization string, so the nonce derivation, component commitments
// and Merkle node combination live in separate hash domains. The
// personalization is NOT a key - it is a parameter of the hash function
// that makes digests from one domain useless in another.
//
// Digest domains:
//   - nonce:     per-component nonce derived from the record's privacy salt
//   - component: nonce-salted commitment to one serialized component
//   - node:      interior Merkle node (left child || right child)
package crypto

import (
	"encoding/hex"
	"fmt"
	"hash"

	blake2b "github.com/minio/blake2b-simd"
)

// HashSize is the byte length of every digest in the scheme.
const HashSize = 32

// Personalization strings for the BLAKE2b digest domains (16 bytes each).
const (
	NoncePersonalization     = "TearoffNonceHash"
	ComponentPersonalization = "TearoffCompoHash"
	NodePersonalization      = "TearoffMNodeHash"
)

// SecureHash is a 32-byte BLAKE2b-256 digest.
type SecureHash [HashSize]byte

// ZeroHash is 32 bytes of 0x00. It pads Merkle trees whose leaf count is
// not a power of two.
var ZeroHash SecureHash

// AllOnesHash is 32 bytes of 0xFF. It is the sentinel group hash for a
// component group that is absent from a record, keeping "no group" from
// colliding with any real group root.
var AllOnesHash = func() SecureHash {
	var h SecureHash
	for i := range h {
		h[i] = 0xFF
	}
	return h
}()

// String returns the full lowercase hex encoding of the hash.
func (h SecureHash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 8 hex characters, for log and CLI output.
func (h SecureHash) Short() string {
	return hex.EncodeToString(h[:4])
}

// IsZero reports whether the hash is all zero bytes.
func (h SecureHash) IsZero() bool {
	return h == ZeroHash
}

// ParseSecureHash parses a 64-character hex string into a SecureHash.
func ParseSecureHash(s string) (SecureHash, error) {
	var h SecureHash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash encoding: %w", err)
	}
	if len(raw) != HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// blake2bNew256 creates a BLAKE2b-256 hash with the given personalization.
func blake2bNew256(personalization string) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size:   HashSize,
		Person: []byte(personalization),
	})
	if err != nil {
		// Only reachable with a malformed config; personalizations above
		// are compile-time constants of the correct length.
		panic(fmt.Sprintf("blake2b config rejected: %v", err))
	}
	return h
}

// ComponentHash computes the commitment to one serialized component:
//
//	BLAKE2b-256(person="TearoffCompoHash", nonce || component)
//
// The nonce blinds low-entropy components against dictionary grinding on
// the Merkle leaves of a filtered record. Deterministic and total.
func ComponentHash(nonce SecureHash, component []byte) SecureHash {
	h := blake2bNew256(ComponentPersonalization)
	h.Write(nonce[:])
	h.Write(component)

	var digest SecureHash
	copy(digest[:], h.Sum(nil))
	return digest
}

// NodeHash combines two Merkle children into their parent digest:
//
//	BLAKE2b-256(person="TearoffMNodeHash", left || right)
func NodeHash(left, right SecureHash) SecureHash {
	h := blake2bNew256(NodePersonalization)
	h.Write(left[:])
	h.Write(right[:])

	var digest SecureHash
	copy(digest[:], h.Sum(nil))
	return digest
}
