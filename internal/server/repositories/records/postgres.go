package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/dbx"
	"github.com/dmitrijs2005/sealkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `contract_address, id, position, name, description, public_score,
		        secondary_public_value, creator, created_at, handle, is_verified, verified_value`

func (r *PostgresRepository) Create(ctx context.Context, rec *models.Record) error {
	query :=
		`INSERT INTO records (contract_address, id, name, description, public_score,
		                      secondary_public_value, creator, created_at, handle)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING position
		 `

	err := r.db.QueryRowContext(ctx, query,
		strings.ToLower(rec.ContractAddress), rec.ID, rec.Name, rec.Description, rec.PublicScore,
		rec.SecondaryPublicValue, strings.ToLower(rec.Creator), rec.CreatedAt, rec.Handle).Scan(&rec.Position)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, contract, id string) (*models.Record, error) {
	query :=
		`SELECT ` + recordColumns + `
		 FROM records
		 WHERE contract_address = $1 AND id = $2
		 `

	return scanRecord(r.db.QueryRowContext(ctx, query, strings.ToLower(contract), id))
}

func (r *PostgresRepository) GetByHandle(ctx context.Context, handle string) (*models.Record, error) {
	query :=
		`SELECT ` + recordColumns + `
		 FROM records
		 WHERE handle = $1
		 `

	return scanRecord(r.db.QueryRowContext(ctx, query, handle))
}

func scanRecord(row *sql.Row) (*models.Record, error) {
	rec := &models.Record{}
	err := row.Scan(&rec.ContractAddress, &rec.ID, &rec.Position, &rec.Name, &rec.Description,
		&rec.PublicScore, &rec.SecondaryPublicValue, &rec.Creator, &rec.CreatedAt, &rec.Handle,
		&rec.IsVerified, &rec.VerifiedValue)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) ListIDs(ctx context.Context, contract string) ([]string, error) {
	query :=
		`SELECT id FROM records
		 WHERE contract_address = $1
		 ORDER BY position
		 `

	rows, err := r.db.QueryContext(ctx, query, strings.ToLower(contract))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ids, nil
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, contract, id string, value int64) error {
	query :=
		`UPDATE records SET is_verified = TRUE, verified_value = $3
		 WHERE contract_address = $1 AND id = $2 AND NOT is_verified
		 `

	res, err := r.db.ExecContext(ctx, query, strings.ToLower(contract), id, value)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
