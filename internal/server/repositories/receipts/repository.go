// Package receipts stores transaction receipts keyed by hash.
package receipts

import (
	"context"

	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
)

type Repository interface {
	// Put inserts or replaces the receipt for r.Hash.
	Put(ctx context.Context, r ledger.Receipt) error
	Get(ctx context.Context, hash string) (*ledger.Receipt, error)
}
