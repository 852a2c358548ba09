// secp256k1 key management for record signers and notaries.
//
// Key formats:
//   - Private keys: raw 32 bytes
//   - Public keys: compressed 33-byte format (0x02/0x03 prefix + x-coordinate)
//   - Signatures: DER-encoded ECDSA
package crypto

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// CompressedPubKeySize is the byte length of a compressed public key.
const CompressedPubKeySize = 33

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey wraps a secp256k1 public key. It is the identity type for
// record signers: comparable via Equal and usable as a set member via
// its compressed encoding.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// GeneratePrivateKey draws a fresh random private key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a private key from raw 32 bytes.
func PrivateKeyFromBytes(keyBytes []byte) (*PrivateKey, error) {
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(keyBytes))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(keyBytes)}, nil
}

// PublicKey derives the public key.
func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// Bytes returns the raw 32-byte private key.
func (pk *PrivateKey) Bytes() []byte {
	return pk.key.Serialize()
}

// SignID creates a DER-encoded ECDSA signature over a record id. This is
// the attestation primitive behind blind signing: an empty filtered
// record discloses nothing but its id, and a counterparty signs exactly
// that.
func (pk *PrivateKey) SignID(id SecureHash) []byte {
	return ecdsa.Sign(pk.key, id[:]).Serialize()
}

// VerifyIDSignature verifies a DER-encoded ECDSA signature over a record id.
func VerifyIDSignature(pub *PublicKey, id SecureHash, signature []byte) bool {
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(id[:], pub.key)
}

// ParsePublicKey parses a compressed 33-byte public key.
func ParsePublicKey(pubKeyBytes []byte) (*PublicKey, error) {
	if len(pubKeyBytes) != CompressedPubKeySize {
		return nil, fmt.Errorf("compressed public key must be %d bytes, got %d",
			CompressedPubKeySize, len(pubKeyBytes))
	}
	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &PublicKey{key: pubKey}, nil
}

// Bytes returns the compressed public key bytes.
func (pub *PublicKey) Bytes() []byte {
	return pub.key.SerializeCompressed()
}

// Equal reports whether two public keys are the same curve point.
func (pub *PublicKey) Equal(other *PublicKey) bool {
	if pub == nil || other == nil {
		return pub == other
	}
	return pub.key.IsEqual(other.key)
}

// Fingerprint returns a short base58 rendering of the compressed key for
// logs and CLI output.
func (pub *PublicKey) Fingerprint() string {
	return base58.Encode(pub.key.SerializeCompressed())
}

// String returns the fingerprint.
func (pub *PublicKey) String() string {
	return pub.Fingerprint()
}

// KeyInSet reports whether key appears in the given set of keys.
func KeyInSet(key *PublicKey, set []*PublicKey) bool {
	for _, candidate := range set {
		if key.Equal(candidate) {
			return true
		}
	}
	return false
}
