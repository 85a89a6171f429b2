package pairingtokens

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

	expires := time.Now().Add(time.Minute)
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+pairing_tokens\s*\(token,\s*user_id,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`).
		WithArgs("tok-1", "u-1", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.PairingToken{Token: "tok-1", UserID: "u-1", ExpiresAt: expires})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestConsume_ReturnsRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	expires := now.Add(time.Minute)
	rows := sqlmock.NewRows([]string{"token", "user_id", "expires_at", "created_at"}).
		AddRow("tok-1", "u-1", expires, now)
	mock.ExpectQuery(`(?s)^DELETE\s+FROM\s+pairing_tokens\s+WHERE\s+token\s*=\s*\$1\s+AND\s+expires_at\s*>\s*\$2\s+RETURNING\s+token,\s*user_id,\s*expires_at,\s*created_at\s*$`).
		WithArgs("tok-1", now).
		WillReturnRows(rows)

	got, err := repo.Consume(context.Background(), "tok-1", now)
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if got.Token != "tok-1" || got.UserID != "u-1" {
		t.Fatalf("unexpected token: %+v", got)
	}
}

func TestConsume_MissingOrExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`DELETE\s+FROM\s+pairing_tokens`).
		WithArgs("tok-gone", now).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Consume(context.Background(), "tok-gone", now)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDeleteForUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+pairing_tokens\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteForUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteForUser error: %v", err)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`DELETE\s+FROM\s+pairing_tokens\s+WHERE\s+expires_at\s*<=\s*\$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.DeleteExpired(context.Background(), now); err != nil {
		t.Fatalf("DeleteExpired error: %v", err)
	}
}
