// Package coordinator drives public decryption: it asks the relayer for the
// clear values of a set of handles, checks the KMS proof locally, hands the
// result to a continuation that commits it on-chain, and waits for that
// transaction.
package coordinator

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/logging"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
)

var (
	ErrNoHandles     = errors.New("no handles to decrypt")
	ErrValueCount    = errors.New("relayer returned a different number of values")
	ErrNoTransaction = errors.New("continuation returned no transaction")
)

type Relayer interface {
	RequestDecryption(ctx context.Context, contract string, handles []string) (clearValues, proof []byte, err error)
}

type KeySource interface {
	KMSVerifyingKey(ctx context.Context) (ed25519.PublicKey, error)
}

type Coordinator struct {
	relayer Relayer
	keys    KeySource
	logger  logging.Logger
}

func New(relayer Relayer, keys KeySource, logger logging.Logger) *Coordinator {
	return &Coordinator{
		relayer: relayer,
		keys:    keys,
		logger:  logger.With("module", "coordinator"),
	}
}

// RequestAndVerify decrypts handles under contract. onProofReady runs only
// after the proof checked out; its transaction must confirm for the call to
// succeed.
func (c *Coordinator) RequestAndVerify(ctx context.Context, handles []string, contract string, onProofReady models.ProofContinuation) (*models.DecryptionResult, error) {
	if len(handles) == 0 {
		return nil, ErrNoHandles
	}

	kmsKey, err := c.keys.KMSVerifyingKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("kms key: %w", err)
	}

	clearValues, proof, err := c.relayer.RequestDecryption(ctx, contract, handles)
	if err != nil {
		return nil, fmt.Errorf("relayer: %w", err)
	}

	if err := sealing.VerifyDecryption(kmsKey, contract, handles, clearValues, proof); err != nil {
		return nil, fmt.Errorf("decryption proof: %w", err)
	}

	values, err := sealing.DecodeClearValues(clearValues)
	if err != nil {
		return nil, err
	}
	if len(values) != len(handles) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrValueCount, len(handles), len(values))
	}

	c.logger.Debug(ctx, "decryption proof verified", "handles", len(handles))

	tx, err := onProofReady(ctx, clearValues, proof)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTransactionFailed, ErrNoTransaction)
	}
	if err := tx.Wait(ctx); err != nil {
		return nil, err
	}

	result := &models.DecryptionResult{ClearValues: make(map[string]int64, len(handles))}
	for i, h := range handles {
		result.ClearValues[h] = values[i]
	}
	return result, nil
}
