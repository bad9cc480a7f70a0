// Package repomanager bundles the node's repositories behind one handle
// that also owns migrations and transactions.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/sealkeeper/internal/server/repositories/receipts"
	"github.com/dmitrijs2005/sealkeeper/internal/server/repositories/records"
)

// Repos is the set of repositories bound to one transaction.
type Repos struct {
	Records  records.Repository
	Receipts receipts.Repository
}

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Records() records.Repository
	Receipts() receipts.Repository
	// WithTx runs fn with repositories bound to a single transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	Close() error
}
