package ledger

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

type TxKind string

const (
	TxCreateRecord     TxKind = "create_record"
	TxVerifyDecryption TxKind = "verify_decryption"
)

const (
	txSignatureDomain    = "sealkeeper-tx-v1"
	connectMessagePrefix = "sealkeeper-connect:"
)

var (
	ErrBadSignature = errors.New("bad transaction signature")
	ErrWrongSender  = errors.New("sender does not match public key")
	ErrUnknownKind  = errors.New("unknown transaction kind")
)

// Tx is a state-changing call against the records contract. Fields that do
// not apply to Kind are left zero.
type Tx struct {
	Kind            TxKind `json:"kind"`
	Sender          string `json:"sender"`
	Nonce           uint64 `json:"nonce"`
	ContractAddress string `json:"contract_address"`
	RecordID        string `json:"record_id"`

	// create_record
	Name                 string `json:"name,omitempty"`
	Description          string `json:"description,omitempty"`
	Payload              []byte `json:"payload,omitempty"`
	InputProof           []byte `json:"input_proof,omitempty"`
	PublicScore          int64  `json:"public_score,omitempty"`
	SecondaryPublicValue int64  `json:"secondary_public_value,omitempty"`

	// verify_decryption
	ClearValues     []byte `json:"clear_values,omitempty"`
	DecryptionProof []byte `json:"decryption_proof,omitempty"`
}

// Encode returns the canonical encoding: every field in field-number order,
// zero values included, so equal transactions always hash the same.
func (t *Tx) Encode() []byte {
	var b []byte
	b = appendString(b, 1, string(t.Kind))
	b = appendString(b, 2, strings.ToLower(t.Sender))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, t.Nonce)
	b = appendString(b, 4, strings.ToLower(t.ContractAddress))
	b = appendString(b, 5, t.RecordID)
	b = appendString(b, 6, t.Name)
	b = appendString(b, 7, t.Description)
	b = appendBytes(b, 8, t.Payload)
	b = appendBytes(b, 9, t.InputProof)
	b = protowire.AppendTag(b, 10, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(t.PublicScore))
	b = protowire.AppendTag(b, 11, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(t.SecondaryPublicValue))
	b = appendBytes(b, 12, t.ClearValues)
	b = appendBytes(b, 13, t.DecryptionProof)
	return b
}

// Hash identifies the transaction on the ledger.
func (t *Tx) Hash() string {
	sum := sha256.Sum256(t.Encode())
	return "0x" + hex.EncodeToString(sum[:])
}

// Summary is the one-line description shown before signing.
func (t *Tx) Summary() string {
	switch t.Kind {
	case TxCreateRecord:
		return "create record " + strconv.Quote(t.Name) + " (" + t.RecordID + ") on " + t.ContractAddress
	case TxVerifyDecryption:
		return "verify decryption of " + t.RecordID + " on " + t.ContractAddress
	default:
		return string(t.Kind)
	}
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// SignedTx is a Tx plus the sender's ed25519 public key and signature.
type SignedTx struct {
	Tx        Tx     `json:"tx"`
	PublicKey []byte `json:"public_key"`
	Signature []byte `json:"signature"`
}

func signingBytes(t *Tx) []byte {
	return append([]byte(txSignatureDomain), t.Encode()...)
}

// SignTx signs tx with key. tx.Sender should already be the key's address.
func SignTx(tx Tx, key ed25519.PrivateKey) SignedTx {
	return SignedTx{
		Tx:        tx,
		PublicKey: key.Public().(ed25519.PublicKey),
		Signature: ed25519.Sign(key, signingBytes(&tx)),
	}
}

// Verify checks the signature and that the sender is the signer.
func (s *SignedTx) Verify() error {
	if len(s.PublicKey) != ed25519.PublicKeySize {
		return ErrBadSignature
	}
	if !SameAddress(AddressFromPublicKey(s.PublicKey), s.Tx.Sender) {
		return ErrWrongSender
	}
	if !ed25519.Verify(s.PublicKey, signingBytes(&s.Tx), s.Signature) {
		return ErrBadSignature
	}
	switch s.Tx.Kind {
	case TxCreateRecord, TxVerifyDecryption:
		return nil
	default:
		return ErrUnknownKind
	}
}

// AddressFromPublicKey returns 0x followed by the first 20 bytes of
// SHA-256(pub), hex-encoded.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return "0x" + hex.EncodeToString(sum[:20])
}

// ContractAddress is the address the records contract is deployed at on
// chainID.
func ContractAddress(chainID string) string {
	sum := sha256.Sum256([]byte("sealkeeper-contract:" + chainID))
	return "0x" + hex.EncodeToString(sum[:20])
}

func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ConnectMessage is what an account signs to open a session.
func ConnectMessage(unixSeconds int64) []byte {
	return []byte(connectMessagePrefix + strconv.FormatInt(unixSeconds, 10))
}
