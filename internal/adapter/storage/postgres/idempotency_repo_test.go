package postgres

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idempotencyColumns = []string{"key", "operation", "request_hash", "status", "response", "created_at", "completed_at"}

func newPendingRecord() *domain.IdempotencyRecord {
	return &domain.IdempotencyRecord{
		Key:         "fund-001",
		Operation:   domain.OperationFund,
		RequestHash: "5d41402abc4b2a76b9719d911017c592",
		Status:      domain.IdempotencyStatusPending,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestIdempotencyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	rec := newPendingRecord()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys .+ ON CONFLICT \\(key\\) DO NOTHING").
		WithArgs(rec.Key, rec.Operation, rec.RequestHash, rec.Status, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Create_Conflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	rec := newPendingRecord()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_keys").
		WithArgs(rec.Key, rec.Operation, rec.RequestHash, rec.Status, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, rec)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_GetByKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	response := []byte(`{"version":1}`)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM idempotency_keys WHERE key").
		WithArgs("fund-001").
		WillReturnRows(pgxmock.NewRows(idempotencyColumns).AddRow(
			"fund-001", domain.OperationFund, "hash", domain.IdempotencyStatusCompleted,
			response, now, &now,
		))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	rec, err := repo.GetByKey(context.Background(), tx, "fund-001")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.IsCompleted())
	assert.Equal(t, response, rec.Response)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, now, *rec.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_GetByKey_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM idempotency_keys WHERE key").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(idempotencyColumns))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	rec, err := repo.GetByKey(context.Background(), tx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestIdempotencyRepo_Complete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	response := []byte(`{"version":1}`)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE idempotency_keys SET status").
		WithArgs(domain.IdempotencyStatusCompleted, response, pgxmock.AnyArg(), "fund-001", domain.IdempotencyStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Complete(context.Background(), tx, "fund-001", response)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Complete_NotPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE idempotency_keys SET status").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Complete(context.Background(), tx, "fund-001", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending idempotency record not found")
}

func TestIdempotencyRepo_DeleteCompletedBefore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	cutoff := time.Now().UTC().Add(-720 * time.Hour)

	mock.ExpectExec("DELETE FROM idempotency_keys WHERE key IN \\(SELECT key FROM idempotency_keys WHERE status = \\$1 AND completed_at < \\$2 ORDER BY completed_at LIMIT 500\\)").
		WithArgs(domain.IdempotencyStatusCompleted, cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 37))

	deleted, err := repo.DeleteCompletedBefore(context.Background(), cutoff, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(37), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
