package sealing

import (
	"crypto/ed25519"
	"crypto/sha256"
	"strings"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
)

const decryptionDomain = "sealkeeper-decryption-v1"

// SignDecryption attests that encoded are the clear values of handles under
// contract.
func SignDecryption(key ed25519.PrivateKey, contract string, handles []string, encoded []byte) []byte {
	return ed25519.Sign(key, decryptionDigest(contract, handles, encoded))
}

// VerifyDecryption checks a proof produced by SignDecryption.
func VerifyDecryption(pub ed25519.PublicKey, contract string, handles []string, encoded, proof []byte) error {
	if len(pub) != ed25519.PublicKeySize {
		return common.ErrInvalidProof
	}
	if !ed25519.Verify(pub, decryptionDigest(contract, handles, encoded), proof) {
		return common.ErrInvalidProof
	}
	return nil
}

func decryptionDigest(contract string, handles []string, encoded []byte) []byte {
	h := sha256.New()
	h.Write([]byte(decryptionDomain))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(contract)))
	h.Write([]byte{0})
	for _, handle := range handles {
		h.Write([]byte(strings.ToLower(handle)))
		h.Write([]byte{0})
	}
	h.Write(encoded)
	return h.Sum(nil)
}
