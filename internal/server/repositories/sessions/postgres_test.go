package sessions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(24 * time.Hour)
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+sessions\s*\(id,\s*user_id,\s*device_id,\s*refresh_token_hash,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*$`).
		WithArgs("s-1", "u-1", "d-1", "hash", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Session{
		ID: "s-1", UserID: "u-1", DeviceID: "d-1", RefreshTokenHash: "hash", ExpiresAt: expires,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "device_id", "refresh_token_hash", "expires_at", "created_at"}).
		AddRow("s-1", "u-1", "d-1", "hash", now.Add(time.Hour), now)
	mock.ExpectQuery(`SELECT .* FROM sessions`).
		WithArgs("s-1").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.UserID != "u-1" || got.DeviceID != "d-1" || got.RefreshTokenHash != "hash" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM sessions`).
		WithArgs("s-gone").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "s-gone")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+sessions\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteAllForUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteAllForUser error: %v", err)
	}
}
