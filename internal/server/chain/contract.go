package chain

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/dmitrijs2005/sealkeeper/internal/sealing"
	"github.com/dmitrijs2005/sealkeeper/internal/server/kms"
	"github.com/dmitrijs2005/sealkeeper/internal/server/models"
	"github.com/dmitrijs2005/sealkeeper/internal/server/repositories/repomanager"
)

// Revert reasons reported in receipts.
const (
	ReasonEmptyID         = "record id is required"
	ReasonEmptyName       = "record name is required"
	ReasonInvalidInput    = "invalid encrypted input"
	ReasonDuplicate       = "record already exists"
	ReasonNotFound        = "record not found"
	ReasonInvalidProof    = "invalid decryption proof"
	ReasonBadClearValues  = "expected exactly one clear value"
	ReasonInternal        = "internal error"
	ReasonAlreadyVerified = common.AlreadyVerifiedReason
)

type revertError struct {
	reason string
}

func (e *revertError) Error() string { return "reverted: " + e.reason }

func revert(reason string) error { return &revertError{reason: reason} }

func revertReason(err error) string {
	var rev *revertError
	if errors.As(err, &rev) {
		return rev.reason
	}
	return ReasonInternal
}

func (c *Chain) apply(ctx context.Context, r repomanager.Repos, tx *ledger.Tx) error {
	switch tx.Kind {
	case ledger.TxCreateRecord:
		return c.createRecord(ctx, r, tx)
	case ledger.TxVerifyDecryption:
		return c.verifyDecryption(ctx, r, tx)
	default:
		return revert(ledger.ErrUnknownKind.Error())
	}
}

func (c *Chain) createRecord(ctx context.Context, r repomanager.Repos, tx *ledger.Tx) error {
	if strings.TrimSpace(tx.RecordID) == "" {
		return revert(ReasonEmptyID)
	}
	if strings.TrimSpace(tx.Name) == "" {
		return revert(ReasonEmptyName)
	}
	if err := sealing.VerifyInput(c.keys, tx.Payload, tx.InputProof, c.contract, tx.Sender); err != nil {
		return revert(ReasonInvalidInput)
	}

	if _, err := r.Records.Get(ctx, c.contract, tx.RecordID); err == nil {
		return revert(ReasonDuplicate)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	handle := sealing.HandleOf(tx.Payload)
	err := r.Records.Create(ctx, &models.Record{
		ContractAddress:      c.contract,
		ID:                   tx.RecordID,
		Name:                 tx.Name,
		Description:          tx.Description,
		PublicScore:          tx.PublicScore,
		SecondaryPublicValue: tx.SecondaryPublicValue,
		Creator:              tx.Sender,
		CreatedAt:            c.now().UTC(),
		Handle:               handle,
	})
	if errors.Is(err, common.ErrorAlreadyExists) {
		return revert(ReasonDuplicate)
	}
	if err != nil {
		return err
	}

	// The insert is rolled back when the blob cannot be stored.
	return c.blobs.Put(ctx, handle, kms.SealBlob(tx.Payload, tx.InputProof))
}

func (c *Chain) verifyDecryption(ctx context.Context, r repomanager.Repos, tx *ledger.Tx) error {
	rec, err := r.Records.Get(ctx, c.contract, tx.RecordID)
	if errors.Is(err, common.ErrorNotFound) {
		return revert(ReasonNotFound)
	}
	if err != nil {
		return err
	}
	if rec.IsVerified {
		return revert(ReasonAlreadyVerified)
	}

	err = sealing.VerifyDecryption(c.keys.VerifyingKey(), c.contract, []string{rec.Handle}, tx.ClearValues, tx.DecryptionProof)
	if err != nil {
		return revert(ReasonInvalidProof)
	}

	values, err := sealing.DecodeClearValues(tx.ClearValues)
	if err != nil || len(values) != 1 {
		return revert(ReasonBadClearValues)
	}

	err = r.Records.MarkVerified(ctx, c.contract, tx.RecordID, values[0])
	if errors.Is(err, common.ErrorNotFound) {
		return revert(ReasonAlreadyVerified)
	}
	return err
}
