package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var walletColumns = []string{"id", "currency", "balance", "created_at", "updated_at"}

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query, args, err := psql.Insert("wallets").
		Columns(walletColumns...).
		Values(w.ID, w.Currency, w.Balance, w.CreatedAt, w.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert wallet: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query, args, err := selectWallet(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get wallet: %w", err)
	}

	w, err := scanWallet(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query, args, err := selectWallet(id).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get wallet for update: %w", err)
	}

	w, err := scanWallet(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("get wallet for update by id: %w", err)
	}
	return w, nil
}

// UpdateBalance sets a wallet's balance and updated_at within a transaction.
// The caller supplies updatedAt so the row matches the value it returns.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64, updatedAt time.Time) error {
	query, args, err := psql.Update("wallets").
		Set("balance", balance).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": walletID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update wallet balance: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

func selectWallet(id uuid.UUID) sq.SelectBuilder {
	return psql.Select(walletColumns...).
		From("wallets").
		Where(sq.Eq{"id": id})
}

// scanWallet returns nil, nil when the row does not exist.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.Currency, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}
