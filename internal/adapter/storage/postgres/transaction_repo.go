package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var transactionColumns = []string{"id", "wallet_id", "amount", "type", "reference", "metadata", "created_at"}

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a ledger entry within a database transaction.
// A reference collision leaves the transaction usable and yields domain.ErrDuplicateKey.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query, args, err := psql.Insert("transactions").
		Columns(transactionColumns...).
		Values(t.ID, t.WalletID, t.Amount, t.Type, t.Reference, t.Metadata, t.CreatedAt).
		Suffix("ON CONFLICT (reference) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert transaction: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateKey
	}
	return nil
}

// CountByWallet returns the number of entries recorded for a wallet.
func (r *TransactionRepo) CountByWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("transactions").
		Where(sq.Eq{"wallet_id": walletID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count transactions: %w", err)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return total, nil
}

// ListByWallet fetches one page of a wallet's entries, newest first.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, skip, limit int) ([]domain.Transaction, error) {
	if skip < 0 || limit < 1 {
		return nil, fmt.Errorf("list transactions: invalid window skip=%d limit=%d", skip, limit)
	}

	query, args, err := psql.Select(transactionColumns...).
		From("transactions").
		Where(sq.Eq{"wallet_id": walletID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(skip)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list transactions: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(&t.ID, &t.WalletID, &t.Amount, &t.Type, &t.Reference, &t.Metadata, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}
