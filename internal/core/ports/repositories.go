package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64, updatedAt time.Time) error
}

// TransactionRepository defines persistence operations for ledger entries.
type TransactionRepository interface {
	// Create returns domain.ErrDuplicateKey when the reference is taken.
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	CountByWallet(ctx context.Context, walletID uuid.UUID) (int64, error)
	// ListByWallet returns entries newest first.
	ListByWallet(ctx context.Context, walletID uuid.UUID, skip, limit int) ([]domain.Transaction, error)
}

// IdempotencyRepository persists idempotency records.
type IdempotencyRepository interface {
	// Create returns domain.ErrDuplicateKey when the key already exists.
	Create(ctx context.Context, tx pgx.Tx, record *domain.IdempotencyRecord) error
	GetByKey(ctx context.Context, tx pgx.Tx, key string) (*domain.IdempotencyRecord, error)
	Complete(ctx context.Context, tx pgx.Tx, key string, response []byte) error
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
