package services

import (
	"context"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
)

// Identity is the bound caller. Address is "" while no wallet is connected.
type Identity interface {
	Address() string
}

type EncryptionGateway interface {
	Initialize(ctx context.Context) error
	Ready() bool
	Encrypt(ctx context.Context, target, caller string, value int64) (*models.EncryptedInput, error)
}

type RecordStore interface {
	ResolveAddress(ctx context.Context) (string, error)
	ListRecordIDs(ctx context.Context, contract string) ([]string, error)
	GetRecord(ctx context.Context, contract, id string) (*ledger.RecordView, error)
	GetEncryptedHandle(ctx context.Context, contract, id string) (string, error)
	CreateRecord(ctx context.Context, req models.CreateRecordRequest) (models.PendingTx, error)
	SubmitVerification(ctx context.Context, contract, id string, clearValues, proof []byte) (models.PendingTx, error)
	ProbeAvailability(ctx context.Context) bool
}

type DecryptionCoordinator interface {
	RequestAndVerify(ctx context.Context, handles []string, contract string, onProofReady models.ProofContinuation) (*models.DecryptionResult, error)
}

// SnapshotCache keeps the last refreshed list for offline use.
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, recs []models.Record) error
	LoadSnapshot(ctx context.Context) ([]models.Record, error)
}
