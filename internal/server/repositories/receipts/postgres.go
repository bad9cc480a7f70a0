package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/dbx"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Put(ctx context.Context, rc ledger.Receipt) error {
	query :=
		`INSERT INTO receipts (hash, status, block, reason, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (hash) DO UPDATE
		 SET status = EXCLUDED.status, block = EXCLUDED.block, reason = EXCLUDED.reason, updated_at = now()
		 `

	_, err := r.db.ExecContext(ctx, query, strings.ToLower(rc.Hash), string(rc.Status), int64(rc.Block), rc.Reason)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, hash string) (*ledger.Receipt, error) {
	query :=
		`SELECT hash, status, block, reason
		 FROM receipts
		 WHERE hash = $1
		 `

	var (
		rc     ledger.Receipt
		status string
		block  int64
	)
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(hash)).Scan(&rc.Hash, &status, &block, &rc.Reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rc.Status = ledger.ReceiptStatus(status)
	rc.Block = uint64(block)
	return &rc, nil
}
