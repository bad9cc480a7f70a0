package records

import (
	"context"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
)

// Repository is the offline snapshot of the last successful refresh.
type Repository interface {
	ReplaceAll(ctx context.Context, records []models.Record) error
	List(ctx context.Context) ([]models.Record, error)
	Get(ctx context.Context, id string) (*models.Record, error)
}
