package records

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var columns = []string{"contract_address", "id", "position", "name", "description", "public_score",
	"secondary_public_value", "creator", "created_at", "handle", "is_verified", "verified_value"}

func sampleRecord() *models.Record {
	return &models.Record{
		ContractAddress:      "0xABC",
		ID:                   "record-1",
		Name:                 "n",
		Description:          "d",
		PublicScore:          42,
		SecondaryPublicValue: 7,
		Creator:              "0xDEF",
		CreatedAt:            time.Unix(1700000000, 0).UTC(),
		Handle:               "0x01",
	}
}

const insertQuery = `(?s)^INSERT\s+INTO\s+records\s*\(.+\)\s*VALUES\s*\(\$1,.*\$9\)\s*RETURNING\s+position\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	r := sampleRecord()
	mock.ExpectQuery(insertQuery).
		WithArgs("0xabc", "record-1", "n", "d", int64(42), int64(7), "0xdef", r.CreatedAt, "0x01").
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(int64(3)))

	if err := repo.Create(context.Background(), r); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if r.Position != 3 {
		t.Fatalf("expected position 3, got %d", r.Position)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	err := repo.Create(context.Background(), sampleRecord())
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleRecord())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+contract_address,.*verified_value\s+FROM\s+records\s+WHERE\s+contract_address\s*=\s*\$1\s+AND\s+id\s*=\s*\$2\s*$`
	created := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery(q).
		WithArgs("0xabc", "record-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("0xabc", "record-1", int64(1), "n", "d", int64(42), int64(7), "0xdef", created, "0x01", true, int64(9)))

	got, err := repo.Get(context.Background(), "0xAbC", "record-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != "record-1" || !got.IsVerified || got.VerifiedValue != 9 || got.PublicScore != 42 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.+FROM\s+records`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "0xabc", "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGetByHandle_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.+WHERE\s+handle\s*=\s*\$1\s*$`).
		WithArgs("0x01").
		WillReturnError(errors.New("boom"))

	_, err := repo.GetByHandle(context.Background(), "0x01")
	if err == nil || !regexp.MustCompile(`db error: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestListIDs_Ordered(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id\s+FROM\s+records\s+WHERE\s+contract_address\s*=\s*\$1\s+ORDER\s+BY\s+position\s*$`
	mock.ExpectQuery(q).
		WithArgs("0xabc").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	ids, err := repo.ListIDs(context.Background(), "0xABC")
	if err != nil {
		t.Fatalf("ListIDs error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestListIDs_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ids, err := repo.ListIDs(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("ListIDs error: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", ids)
	}
}

func TestMarkVerified(t *testing.T) {
	q := `(?s)^UPDATE\s+records\s+SET\s+is_verified\s*=\s*TRUE,\s*verified_value\s*=\s*\$3\s+WHERE.+NOT\s+is_verified\s*$`

	t.Run("updated", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WithArgs("0xabc", "record-1", int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
		if err := repo.MarkVerified(context.Background(), "0xabc", "record-1", 5); err != nil {
			t.Fatalf("MarkVerified error: %v", err)
		}
	})

	t.Run("already verified", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))
		err := repo.MarkVerified(context.Background(), "0xabc", "record-1", 5)
		if !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("expected ErrorNotFound, got %v", err)
		}
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WillReturnError(errors.New("db down"))
		err := repo.MarkVerified(context.Background(), "0xabc", "record-1", 5)
		if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
			t.Fatalf("expected wrapped db error, got %v", err)
		}
	})
}
