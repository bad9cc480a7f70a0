package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const columns = `id, name, description, public_score, secondary_public_value,
	creator, created_at, is_verified, handle, verified_value`

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, records []models.Record) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	query := `INSERT INTO records (position, ` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i, rec := range records {
		_, err := r.db.ExecContext(ctx, query, i,
			rec.ID, rec.Name, rec.Description, rec.PublicScore, rec.SecondaryPublicValue,
			rec.Creator, rec.CreatedAt, rec.IsVerified, rec.EncryptedValueHandle, rec.VerifiedValue)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM records WHERE id = ?`, id)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Record, error) {
	var rec models.Record
	err := s.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.PublicScore, &rec.SecondaryPublicValue,
		&rec.Creator, &rec.CreatedAt, &rec.IsVerified, &rec.EncryptedValueHandle, &rec.VerifiedValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	return &rec, nil
}
