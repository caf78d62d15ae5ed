package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	replaySourceCache = "cache"
	replaySourceStore = "store"
)

// TxFunc is the mutating body of an operation, run inside one store transaction.
type TxFunc[PT any] func(ctx context.Context, tx pgx.Tx) (PT, error)

// versionedResult is implemented by every stored operation result.
type versionedResult[T any] interface {
	*T
	SchemaVersion() int
}

// Guard makes mutating operations exactly-once per idempotency key.
// The store's unique constraint on the key is the only concurrency primitive.
type Guard struct {
	transactor ports.DBTransactor
	repo       ports.IdempotencyRepository
	cache      ports.IdempotencyCache // optional
	cacheTTL   time.Duration
	metrics    *Metrics
	log        zerolog.Logger
}

// NewGuard creates a Guard. cache may be nil.
func NewGuard(
	transactor ports.DBTransactor,
	repo ports.IdempotencyRepository,
	cache ports.IdempotencyCache,
	cacheTTL time.Duration,
	metrics *Metrics,
	log zerolog.Logger,
) *Guard {
	return &Guard{
		transactor: transactor,
		repo:       repo,
		cache:      cache,
		cacheTTL:   cacheTTL,
		metrics:    metrics,
		log:        log.With().Str("component", "idempotency").Logger(),
	}
}

// RunIdempotent runs body in one store transaction. With an empty key no
// bookkeeping happens. Otherwise the key is claimed with a PENDING record in
// the same transaction, the result is stored on success, and later calls
// with the same key replay that result without running body again.
func RunIdempotent[T any, PT versionedResult[T]](
	ctx context.Context,
	g *Guard,
	key string,
	op domain.Operation,
	payload any,
	body TxFunc[PT],
) (PT, error) {
	if key == "" {
		return runInTx(ctx, g.transactor, body)
	}

	requestHash, err := RequestHash(op, payload)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if result, ok, err := replayFromCache[T, PT](ctx, g, key, op, requestHash); err != nil || ok {
		return result, err
	}

	dbTx, err := g.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(err)
	}
	defer rollback(ctx, dbTx)

	rec := &domain.IdempotencyRecord{
		Key:         key,
		Operation:   op,
		RequestHash: requestHash,
		Status:      domain.IdempotencyStatusPending,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	err = g.repo.Create(ctx, dbTx, rec)
	if errors.Is(err, domain.ErrDuplicateKey) {
		existing, err := g.repo.GetByKey(ctx, dbTx, key)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("load idempotency record: %w", err))
		}
		if existing == nil {
			return nil, apperror.InternalError(fmt.Errorf("idempotency record %q conflicted but is missing", key))
		}
		return replayRecord[T, PT](g, existing, op, requestHash)
	}
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("claim idempotency key: %w", err))
	}

	result, err := body(ctx, dbTx)
	if err != nil {
		return nil, err
	}

	response, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal result: %w", err))
	}
	if err := g.repo.Complete(ctx, dbTx, key, response); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("complete idempotency record: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	g.storeInCache(ctx, key, &ports.CachedResult{Operation: op, RequestHash: requestHash, Response: response})
	return result, nil
}

func runInTx[PT any](ctx context.Context, transactor ports.DBTransactor, body TxFunc[PT]) (PT, error) {
	var zero PT

	dbTx, err := transactor.Begin(ctx)
	if err != nil {
		return zero, apperror.ErrStoreUnavailable(err)
	}
	defer rollback(ctx, dbTx)

	result, err := body(ctx, dbTx)
	if err != nil {
		return zero, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return zero, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return result, nil
}

// rollback runs even if ctx is already cancelled. After Commit it is a no-op.
func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(context.WithoutCancel(ctx))
}

func replayFromCache[T any, PT versionedResult[T]](ctx context.Context, g *Guard, key string, op domain.Operation, requestHash string) (PT, bool, error) {
	if g.cache == nil {
		return nil, false, nil
	}

	entry, err := g.cache.Get(ctx, key)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("replay cache lookup failed, falling through to store")
		return nil, false, nil
	}
	if entry == nil {
		return nil, false, nil
	}
	if entry.Operation != op || entry.RequestHash != requestHash {
		return nil, false, apperror.ErrKeyReusedWithDifferentPayload()
	}

	result, err := decodeResult[T, PT](entry.Response)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable replay cache entry")
		return nil, false, nil
	}

	g.metrics.replayed(string(op), replaySourceCache)
	g.log.Debug().Str("key", key).Str("operation", string(op)).Msg("replayed result from cache")
	return result, true, nil
}

func replayRecord[T any, PT versionedResult[T]](g *Guard, rec *domain.IdempotencyRecord, op domain.Operation, requestHash string) (PT, error) {
	if !rec.Matches(op, requestHash) {
		return nil, apperror.ErrKeyReusedWithDifferentPayload()
	}
	if !rec.IsCompleted() {
		return nil, apperror.ErrOperationInProgress()
	}

	result, err := decodeResult[T, PT](rec.Response)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	g.metrics.replayed(string(op), replaySourceStore)
	g.log.Info().Str("key", rec.Key).Str("operation", string(op)).Msg("replayed stored result")
	return result, nil
}

func decodeResult[T any, PT versionedResult[T]](raw []byte) (PT, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode stored result: %w", err)
	}
	result := PT(&out)
	if v := result.SchemaVersion(); v != domain.ResultVersion {
		return nil, fmt.Errorf("stored result has unsupported version %d", v)
	}
	return result, nil
}

func (g *Guard) storeInCache(ctx context.Context, key string, entry *ports.CachedResult) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, key, entry, g.cacheTTL); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("failed to populate replay cache")
	}
}

// RequestHash returns the hex SHA-256 of {operation, payload} as canonical
// JSON: object keys sorted at every level, so field order never matters.
func RequestHash(op domain.Operation, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("normalize payload: %w", err)
	}

	// encoding/json writes map keys in sorted order.
	canonical, err := json.Marshal(map[string]any{
		"operation": op,
		"payload":   generic,
	})
	if err != nil {
		return "", fmt.Errorf("marshal canonical request: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
