package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(walletID uuid.UUID) *domain.Transaction {
	return &domain.Transaction{
		ID:        uuid.New(),
		WalletID:  walletID,
		Amount:    5000,
		Type:      domain.TransactionTypeDeposit,
		Reference: "TX-0a1b2c3d",
		Metadata:  map[string]interface{}{"source": "card"},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions .+ ON CONFLICT \\(reference\\) DO NOTHING").
		WithArgs(txn.ID, txn.WalletID, txn.Amount, txn.Type, txn.Reference, txn.Metadata, txn.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Create_DuplicateReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.WalletID, txn.Amount, txn.Type, txn.Reference, txn.Metadata, txn.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, txn)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Create_DBError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(errors.New("violates foreign key constraint"))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, txn)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "insert transaction")
}

func TestTransactionRepo_CountByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transactions WHERE wallet_id = \\$1").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	total, err := repo.CountByWallet(context.Background(), walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	newer := newTestTransaction(walletID)
	older := newTestTransaction(walletID)
	older.Type = domain.TransactionTypeWithdrawal
	older.Reference = "TX-ffffffff"
	older.Metadata = nil
	older.CreatedAt = newer.CreatedAt.Add(-time.Minute)

	rows := pgxmock.NewRows(transactionColumns).
		AddRow(newer.ID, newer.WalletID, newer.Amount, newer.Type, newer.Reference, newer.Metadata, newer.CreatedAt).
		AddRow(older.ID, older.WalletID, older.Amount, older.Type, older.Reference, nil, older.CreatedAt)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE wallet_id = \\$1 ORDER BY created_at DESC, id DESC LIMIT 12 OFFSET 24").
		WithArgs(walletID).
		WillReturnRows(rows)

	txns, err := repo.ListByWallet(context.Background(), walletID, 24, 12)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, newer.ID, txns[0].ID)
	assert.Equal(t, "card", txns[0].Metadata["source"])
	assert.Equal(t, domain.TransactionTypeWithdrawal, txns[1].Type)
	assert.Nil(t, txns[1].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByWallet_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM transactions").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows(transactionColumns))

	txns, err := repo.ListByWallet(context.Background(), walletID, 0, 12)
	require.NoError(t, err)
	assert.NotNil(t, txns)
	assert.Empty(t, txns)
}

func TestTransactionRepo_ListByWallet_NegativeSkip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	_, err = repo.ListByWallet(context.Background(), uuid.New(), -1, 12)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid window")
	assert.NoError(t, mock.ExpectationsWereMet())
}
