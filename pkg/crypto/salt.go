package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
)

// PrivacySalt is the per-record random value that all component nonces
// are derived from. A record stores the salt once instead of one random
// nonce per component; nonces are re-derived on demand.
type PrivacySalt [HashSize]byte

// NewPrivacySalt draws a fresh random salt.
func NewPrivacySalt() (PrivacySalt, error) {
	var salt PrivacySalt
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, fmt.Errorf("failed to draw privacy salt: %w", err)
	}
	if salt.IsZero() {
		// Astronomically unlikely, but an all-zero salt would silently
		// weaken every nonce in the record.
		return salt, errors.New("entropy source produced an all-zero salt")
	}
	return salt, nil
}

// PrivacySaltFromBytes builds a salt from exactly HashSize bytes.
// An all-zero salt is rejected.
func PrivacySaltFromBytes(raw []byte) (PrivacySalt, error) {
	var salt PrivacySalt
	if len(raw) != HashSize {
		return salt, fmt.Errorf("privacy salt must be %d bytes, got %d", HashSize, len(raw))
	}
	copy(salt[:], raw)
	if salt.IsZero() {
		return salt, errors.New("privacy salt must not be all zero")
	}
	return salt, nil
}

// IsZero reports whether the salt is all zero bytes.
func (s PrivacySalt) IsZero() bool {
	return s == PrivacySalt(ZeroHash)
}

// String returns the hex encoding of the salt.
func (s PrivacySalt) String() string {
	return SecureHash(s).String()
}

// ComponentNonce derives the nonce for the component at (group, index):
//
//	BLAKE2b-256(person="TearoffNonceHash", salt || group || index)
//
// group and index are encoded as little-endian uint32, so every slot in
// the record gets a distinct nonce from one salt.
func ComponentNonce(salt PrivacySalt, group, index int) SecureHash {
	var position [8]byte
	binary.LittleEndian.PutUint32(position[0:4], uint32(group))
	binary.LittleEndian.PutUint32(position[4:8], uint32(index))

	h := blake2bNew256(NoncePersonalization)
	h.Write(salt[:])
	h.Write(position[:])

	var digest SecureHash
	copy(digest[:], h.Sum(nil))
	return digest
}
