package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/sealkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sealkeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/sealkeeper/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	DB       *sql.DB
	Metadata metadata.Repository
	Records  records.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		DB:       db,
		Metadata: metadata.NewSQLiteRepository(db),
		Records:  records.NewSQLiteRepository(db),
	}
}

// SaveSnapshot replaces the cached record list in one transaction.
func (r *Repositories) SaveSnapshot(ctx context.Context, recs []models.Record) error {
	return dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return records.NewSQLiteRepository(tx).ReplaceAll(ctx, recs)
	})
}

func (r *Repositories) LoadSnapshot(ctx context.Context) ([]models.Record, error) {
	return r.Records.List(ctx)
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InitDatabase opens the SQLite database at dsn and brings its schema up to
// date.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
