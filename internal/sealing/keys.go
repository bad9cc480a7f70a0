package sealing

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the size of X25519 keys and of the network seed minimum.
const KeySize = 32

var ErrShortSeed = errors.New("network seed must be at least 32 bytes")

// NetworkKeys is the node-side key material. The public halves are published
// through the ledger's network info call.
type NetworkKeys struct {
	EncryptionPrivate []byte
	EncryptionPublic  []byte
	Signing           ed25519.PrivateKey
}

// VerifyingKey is the public key clients check decryption proofs against.
func (k *NetworkKeys) VerifyingKey() ed25519.PublicKey {
	return k.Signing.Public().(ed25519.PublicKey)
}

// DeriveNetworkKeys expands seed deterministically into both key pairs, so a
// node restarted with the same seed can still open old payloads.
func DeriveNetworkKeys(seed []byte) (*NetworkKeys, error) {
	if len(seed) < KeySize {
		return nil, ErrShortSeed
	}

	r := hkdf.New(sha256.New, seed, nil, []byte("sealkeeper-network-keys-v1"))

	encPriv := make([]byte, KeySize)
	if _, err := io.ReadFull(r, encPriv); err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}
	encPub, err := curve25519.X25519(encPriv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}

	signSeed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, signSeed); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}

	return &NetworkKeys{
		EncryptionPrivate: encPriv,
		EncryptionPublic:  encPub,
		Signing:           ed25519.NewKeyFromSeed(signSeed),
	}, nil
}
