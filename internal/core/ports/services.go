package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/pagination"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// CachedResult is a completed idempotent result kept in the replay cache.
type CachedResult struct {
	Operation   domain.Operation `json:"operation"`
	RequestHash string           `json:"request_hash"`
	Response    []byte           `json:"response"`
}

// IdempotencyCache is the Redis-layer replay cache (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) (*CachedResult, error) // nil, nil on miss
	Set(ctx context.Context, key string, entry *CachedResult, ttl time.Duration) error
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// RateLimiter counts requests per key within a window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// --- Service Ports (Business Logic) ---

// LedgerService defines wallet creation and the mutating ledger operations.
type LedgerService interface {
	CreateWallet(ctx context.Context, currency string) (*domain.Wallet, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	Fund(ctx context.Context, req FundRequest) (*domain.FundResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*domain.TransferResult, error)
}

// FundRequest holds validated input for funding a wallet.
type FundRequest struct {
	WalletID       uuid.UUID
	Amount         int64
	IdempotencyKey string // empty = no idempotency
	Metadata       map[string]interface{}
}

// TransferRequest holds validated input for a wallet-to-wallet transfer.
type TransferRequest struct {
	FromID         uuid.UUID
	ToID           uuid.UUID
	Amount         int64
	IdempotencyKey string
	Metadata       map[string]interface{}
}

// QueryService defines read-only ledger queries.
type QueryService interface {
	ListTransactions(ctx context.Context, walletID uuid.UUID, page, limit int) ([]domain.Transaction, pagination.Meta, error)
}

// IdempotencySweeper evicts old completed idempotency records.
type IdempotencySweeper interface {
	Sweep(ctx context.Context) (int64, error)
}
