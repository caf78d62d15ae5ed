package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create inserts a PENDING record within a database transaction.
// ON CONFLICT waits for a concurrent insert of the same key to finish, then
// either reports the conflict (domain.ErrDuplicateKey) or proceeds if that
// transaction rolled back.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	query, args, err := psql.Insert("idempotency_keys").
		Columns("key", "operation", "request_hash", "status", "created_at").
		Values(rec.Key, rec.Operation, rec.RequestHash, rec.Status, rec.CreatedAt).
		Suffix("ON CONFLICT (key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert idempotency record: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateKey
	}
	return nil
}

// GetByKey fetches a record by key inside tx. Returns nil, nil if absent.
func (r *IdempotencyRepo) GetByKey(ctx context.Context, tx pgx.Tx, key string) (*domain.IdempotencyRecord, error) {
	query, args, err := psql.Select("key", "operation", "request_hash", "status", "response", "created_at", "completed_at").
		From("idempotency_keys").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get idempotency record: %w", err)
	}

	rec := &domain.IdempotencyRecord{}
	err = tx.QueryRow(ctx, query, args...).Scan(
		&rec.Key, &rec.Operation, &rec.RequestHash, &rec.Status,
		&rec.Response, &rec.CreatedAt, &rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	return rec, nil
}

// Complete moves a PENDING record to COMPLETED and stores the response.
func (r *IdempotencyRepo) Complete(ctx context.Context, tx pgx.Tx, key string, response []byte) error {
	query, args, err := psql.Update("idempotency_keys").
		Set("status", domain.IdempotencyStatusCompleted).
		Set("response", response).
		Set("completed_at", time.Now().UTC().Truncate(time.Microsecond)).
		Where(sq.Eq{"key": key}).
		Where(sq.Eq{"status": domain.IdempotencyStatusPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build complete idempotency record: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending idempotency record not found: %s", key)
	}
	return nil
}

// DeleteCompletedBefore removes up to limit COMPLETED records finished before cutoff.
// PENDING rows are never touched.
func (r *IdempotencyRepo) DeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	batch := sq.Select("key").
		From("idempotency_keys").
		Where(sq.Eq{"status": domain.IdempotencyStatusCompleted}).
		Where(sq.Lt{"completed_at": cutoff}).
		OrderBy("completed_at").
		Limit(uint64(limit))

	query, args, err := psql.Delete("idempotency_keys").
		Where(sq.Expr("key IN (?)", batch)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sweep idempotency: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep idempotency records: %w", err)
	}
	return tag.RowsAffected(), nil
}
