package memory

import (
	"context"
	"sync"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store is an in-process ledger store for local runs and tests. Transactions
// are fully serialized: Begin waits until the previous transaction commits
// or rolls back, and writes are staged on the tx until Commit. Unrelated
// wallets therefore never proceed in parallel.
type Store struct {
	sem chan struct{}

	mu          sync.RWMutex
	wallets     map[uuid.UUID]domain.Wallet
	txns        []domain.Transaction
	references  map[string]struct{}
	idempotency map[string]domain.IdempotencyRecord
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		sem:         make(chan struct{}, 1),
		wallets:     make(map[uuid.UUID]domain.Wallet),
		references:  make(map[string]struct{}),
		idempotency: make(map[string]domain.IdempotencyRecord),
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &tx{
		store:       s,
		wallets:     make(map[uuid.UUID]domain.Wallet),
		references:  make(map[string]struct{}),
		idempotency: make(map[string]domain.IdempotencyRecord),
	}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(_ context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// tx stages writes until Commit. Only Commit and Rollback of pgx.Tx are
// implemented; the embedded nil interface panics on anything else.
type tx struct {
	pgx.Tx

	store *Store
	done  bool

	wallets     map[uuid.UUID]domain.Wallet
	txns        []domain.Transaction
	references  map[string]struct{}
	idempotency map[string]domain.IdempotencyRecord
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	for id, w := range t.wallets {
		s.wallets[id] = w
	}
	s.txns = append(s.txns, t.txns...)
	for ref := range t.references {
		s.references[ref] = struct{}{}
	}
	for key, rec := range t.idempotency {
		s.idempotency[key] = rec
	}
	s.mu.Unlock()

	<-s.sem
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	<-t.store.sem
	return nil
}

func asTx(ptx pgx.Tx) (*tx, error) {
	t, ok := ptx.(*tx)
	if !ok || t.done {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

func (t *tx) wallet(id uuid.UUID) (domain.Wallet, bool) {
	if w, ok := t.wallets[id]; ok {
		return w, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	w, ok := t.store.wallets[id]
	return w, ok
}

func (t *tx) hasReference(ref string) bool {
	if _, ok := t.references[ref]; ok {
		return true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	_, ok := t.store.references[ref]
	return ok
}

func (t *tx) record(key string) (domain.IdempotencyRecord, bool) {
	if rec, ok := t.idempotency[key]; ok {
		return rec, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	rec, ok := t.store.idempotency[key]
	return rec, ok
}
