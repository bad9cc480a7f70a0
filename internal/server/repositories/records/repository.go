// Package records stores confidential records per contract.
package records

import (
	"context"

	"github.com/dmitrijs2005/sealkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts r. A duplicate (contract, id) yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, r *models.Record) error
	Get(ctx context.Context, contract, id string) (*models.Record, error)
	GetByHandle(ctx context.Context, handle string) (*models.Record, error)
	// ListIDs returns ids in creation order.
	ListIDs(ctx context.Context, contract string) ([]string, error)
	// MarkVerified flips is_verified and stores value. It reports
	// common.ErrorNotFound when no unverified record matched.
	MarkVerified(ctx context.Context, contract, id string, value int64) error
}
