package sealing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	payloadVersion = 1
	nonceSize      = chacha20poly1305.NonceSize
	valueSize      = 8

	// PayloadSize is the exact length of a sealed input.
	PayloadSize = 1 + KeySize + nonceSize + valueSize + chacha20poly1305.Overhead
)

// Input is an encrypted value plus its correctness proof.
type Input struct {
	Payload []byte
	Proof   []byte
}

// EncryptInput seals value to networkPublic for the given contract and
// caller. rnd supplies the ephemeral key and nonce (crypto/rand.Reader in
// production).
func EncryptInput(rnd io.Reader, networkPublic []byte, contract, caller string, value int64) (*Input, error) {
	if len(networkPublic) != KeySize {
		return nil, fmt.Errorf("%w: network key must be %d bytes", common.ErrInvalidPayload, KeySize)
	}

	eph := make([]byte, KeySize)
	if _, err := io.ReadFull(rnd, eph); err != nil {
		return nil, fmt.Errorf("ephemeral key: %w", err)
	}
	defer common.WipeByteArray(eph)

	ephPub, err := curve25519.X25519(eph, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	shared, err := curve25519.X25519(eph, networkPublic)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(shared)

	encKey, macKey, err := inputKeys(shared, ephPub, networkPublic)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(encKey)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rnd, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	plain := make([]byte, valueSize)
	binary.BigEndian.PutUint64(plain, uint64(value))

	bind := binding(contract, caller)

	payload := make([]byte, 0, PayloadSize)
	payload = append(payload, payloadVersion)
	payload = append(payload, ephPub...)
	payload = append(payload, nonce...)
	payload = aead.Seal(payload, nonce, plain, bind)

	proof, err := inputProof(macKey, payload, bind)
	if err != nil {
		return nil, err
	}

	return &Input{Payload: payload, Proof: proof}, nil
}

// OpenInput checks the proof and returns the plaintext. It fails with
// common.ErrInvalidProof when the proof does not match the binding and with
// common.ErrInvalidPayload when the payload is malformed.
func OpenInput(keys *NetworkKeys, payload, proof []byte, contract, caller string) (int64, error) {
	if len(payload) != PayloadSize || payload[0] != payloadVersion {
		return 0, common.ErrInvalidPayload
	}
	ephPub := payload[1 : 1+KeySize]
	nonce := payload[1+KeySize : 1+KeySize+nonceSize]
	sealed := payload[1+KeySize+nonceSize:]

	shared, err := curve25519.X25519(keys.EncryptionPrivate, ephPub)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidPayload, err)
	}
	defer common.WipeByteArray(shared)

	encKey, macKey, err := inputKeys(shared, ephPub, keys.EncryptionPublic)
	if err != nil {
		return 0, err
	}

	bind := binding(contract, caller)

	want, err := inputProof(macKey, payload, bind)
	if err != nil {
		return 0, err
	}
	if !hmac.Equal(want, proof) {
		return 0, common.ErrInvalidProof
	}

	aead, err := chacha20poly1305.New(encKey)
	if err != nil {
		return 0, err
	}
	plain, err := aead.Open(nil, nonce, sealed, bind)
	if err != nil {
		return 0, common.ErrInvalidPayload
	}

	return int64(binary.BigEndian.Uint64(plain)), nil
}

// VerifyInput is OpenInput without exposing the value.
func VerifyInput(keys *NetworkKeys, payload, proof []byte, contract, caller string) error {
	_, err := OpenInput(keys, payload, proof, contract, caller)
	return err
}

// HandleOf returns the opaque reference the ledger stores for payload.
func HandleOf(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "0x" + hex.EncodeToString(sum[:])
}

func inputKeys(shared, ephPub, networkPublic []byte) (encKey, macKey []byte, err error) {
	salt := make([]byte, 0, 2*KeySize)
	salt = append(salt, ephPub...)
	salt = append(salt, networkPublic...)

	okm := make([]byte, chacha20poly1305.KeySize+blake2b.Size256)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte("sealkeeper-input-v1")), okm); err != nil {
		return nil, nil, fmt.Errorf("derive input keys: %w", err)
	}
	return okm[:chacha20poly1305.KeySize], okm[chacha20poly1305.KeySize:], nil
}

func inputProof(macKey, payload, bind []byte) ([]byte, error) {
	mac, err := blake2b.New256(macKey)
	if err != nil {
		return nil, err
	}
	mac.Write(payload)
	mac.Write(bind)
	return mac.Sum(nil), nil
}

func binding(contract, caller string) []byte {
	return []byte(strings.ToLower(contract) + "|" + strings.ToLower(caller))
}
