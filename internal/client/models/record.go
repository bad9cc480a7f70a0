// Package models defines the client-side data model of SealKeeper: records
// as read from the ledger, transient transaction status, and the small
// contracts shared by the store, the coordinator and the controller.
package models

import (
	"context"
	"time"
)

// Record is the client's view of one stored record. EncryptedValueHandle
// references the sealed value; VerifiedValue is meaningful only once
// IsVerified is true.
type Record struct {
	ID                   string
	Name                 string
	Description          string
	PublicScore          int64
	SecondaryPublicValue int64
	Creator              string
	CreatedAt            int64 // unix seconds
	IsVerified           bool
	EncryptedValueHandle string
	VerifiedValue        int64
}

func (r *Record) CreatedTime() time.Time {
	return time.Unix(r.CreatedAt, 0)
}

type Phase string

const (
	PhasePending Phase = "pending"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// TransactionStatus is the user-facing progress indicator. It is ephemeral:
// success and error statuses hide themselves after a while.
type TransactionStatus struct {
	Visible bool
	Phase   Phase
	Message string
}

// EncryptedInput is a sealed value and its proof, ready for submission.
type EncryptedInput struct {
	Payload []byte
	Proof   []byte
}

// PendingTx is a submitted transaction. Wait blocks until it is committed and
// returns an error when it reverted.
type PendingTx interface {
	Hash() string
	Wait(ctx context.Context) error
}

type CreateRecordRequest struct {
	ContractAddress      string
	ID                   string
	Name                 string
	Description          string
	Payload              []byte
	InputProof           []byte
	PublicScore          int64
	SecondaryPublicValue int64
}

// ProofContinuation submits a verified decryption result on-chain.
type ProofContinuation func(ctx context.Context, clearValues, proof []byte) (PendingTx, error)

// DecryptionResult maps each requested handle to its clear value.
type DecryptionResult struct {
	ClearValues map[string]int64
}
