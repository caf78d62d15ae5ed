package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository on a Store.
type WalletRepo struct {
	store *Store
}

func NewWalletRepo(store *Store) *WalletRepo {
	return &WalletRepo{store: store}
}

func (r *WalletRepo) Create(_ context.Context, w *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.wallets[w.ID]; exists {
		return fmt.Errorf("insert wallet: %w", domain.ErrDuplicateKey)
	}
	r.store.wallets[w.ID] = *w
	return nil
}

func (r *WalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	w, ok := r.store.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *WalletRepo) GetByIDForUpdate(_ context.Context, ptx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	t, err := asTx(ptx)
	if err != nil {
		return nil, err
	}
	w, ok := t.wallet(id)
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *WalletRepo) UpdateBalance(_ context.Context, ptx pgx.Tx, walletID uuid.UUID, balance int64, updatedAt time.Time) error {
	t, err := asTx(ptx)
	if err != nil {
		return err
	}
	w, ok := t.wallet(walletID)
	if !ok {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	// Mirrors the balance CHECK constraint in the SQL schema.
	if balance < 0 {
		return fmt.Errorf("update wallet balance: negative balance for %s", walletID)
	}
	w.Balance = balance
	w.UpdatedAt = updatedAt
	t.wallets[walletID] = w
	return nil
}

// TransactionRepo implements ports.TransactionRepository on a Store.
type TransactionRepo struct {
	store *Store
}

func NewTransactionRepo(store *Store) *TransactionRepo {
	return &TransactionRepo{store: store}
}

func (r *TransactionRepo) Create(_ context.Context, ptx pgx.Tx, txn *domain.Transaction) error {
	t, err := asTx(ptx)
	if err != nil {
		return err
	}
	if t.hasReference(txn.Reference) {
		return domain.ErrDuplicateKey
	}
	if _, ok := t.wallet(txn.WalletID); !ok {
		return fmt.Errorf("insert transaction: unknown wallet %s", txn.WalletID)
	}
	t.references[txn.Reference] = struct{}{}
	t.txns = append(t.txns, *txn)
	return nil
}

func (r *TransactionRepo) CountByWallet(_ context.Context, walletID uuid.UUID) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var n int64
	for i := range r.store.txns {
		if r.store.txns[i].WalletID == walletID {
			n++
		}
	}
	return n, nil
}

func (r *TransactionRepo) ListByWallet(_ context.Context, walletID uuid.UUID, skip, limit int) ([]domain.Transaction, error) {
	if skip < 0 || limit < 1 {
		return nil, fmt.Errorf("list transactions: invalid window skip=%d limit=%d", skip, limit)
	}

	r.store.mu.RLock()
	matched := make([]domain.Transaction, 0)
	for i := len(r.store.txns) - 1; i >= 0; i-- {
		if r.store.txns[i].WalletID == walletID {
			matched = append(matched, r.store.txns[i])
		}
	}
	r.store.mu.RUnlock()

	// Insertion order breaks created_at ties.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if skip >= len(matched) {
		return []domain.Transaction{}, nil
	}
	end := len(matched)
	if limit < end-skip {
		end = skip + limit
	}
	return matched[skip:end], nil
}

// IdempotencyRepo implements ports.IdempotencyRepository on a Store.
type IdempotencyRepo struct {
	store *Store
}

func NewIdempotencyRepo(store *Store) *IdempotencyRepo {
	return &IdempotencyRepo{store: store}
}

func (r *IdempotencyRepo) Create(_ context.Context, ptx pgx.Tx, rec *domain.IdempotencyRecord) error {
	t, err := asTx(ptx)
	if err != nil {
		return err
	}
	if _, exists := t.record(rec.Key); exists {
		return domain.ErrDuplicateKey
	}
	t.idempotency[rec.Key] = *rec
	return nil
}

func (r *IdempotencyRepo) GetByKey(_ context.Context, ptx pgx.Tx, key string) (*domain.IdempotencyRecord, error) {
	t, err := asTx(ptx)
	if err != nil {
		return nil, err
	}
	rec, ok := t.record(key)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *IdempotencyRepo) Complete(_ context.Context, ptx pgx.Tx, key string, response []byte) error {
	t, err := asTx(ptx)
	if err != nil {
		return err
	}
	rec, ok := t.record(key)
	if !ok || rec.Status != domain.IdempotencyStatusPending {
		return fmt.Errorf("pending idempotency record not found: %s", key)
	}
	now := time.Now().UTC()
	rec.Status = domain.IdempotencyStatusCompleted
	rec.Response = append([]byte(nil), response...)
	rec.CompletedAt = &now
	t.idempotency[key] = rec
	return nil
}

func (r *IdempotencyRepo) DeleteCompletedBefore(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deleted int64
	for key, rec := range r.store.idempotency {
		if deleted >= int64(limit) {
			break
		}
		if rec.IsCompleted() && rec.CompletedAt != nil && rec.CompletedAt.Before(cutoff) {
			delete(r.store.idempotency, key)
			deleted++
		}
	}
	return deleted, nil
}
