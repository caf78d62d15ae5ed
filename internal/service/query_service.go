package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/pagination"

	"github.com/google/uuid"
)

// QueryServiceImpl implements ports.QueryService.
type QueryServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	metrics    *Metrics
}

// NewQueryService creates a new QueryServiceImpl.
func NewQueryService(walletRepo ports.WalletRepository, txRepo ports.TransactionRepository, metrics *Metrics) *QueryServiceImpl {
	return &QueryServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		metrics:    metrics,
	}
}

// ListTransactions returns one page of a wallet's entries, newest first.
func (s *QueryServiceImpl) ListTransactions(ctx context.Context, walletID uuid.UUID, page, limit int) (_ []domain.Transaction, _ pagination.Meta, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(opListTxns, start, err) }()

	page, limit = pagination.Normalize(page, limit)

	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, pagination.Meta{}, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, pagination.Meta{}, apperror.ErrWalletNotFound(walletID.String())
	}

	total, err := s.txRepo.CountByWallet(ctx, walletID)
	if err != nil {
		return nil, pagination.Meta{}, apperror.InternalError(fmt.Errorf("count transactions: %w", err))
	}

	meta := pagination.NewMeta(page, limit, total)
	if int64(meta.Skip) >= total {
		return []domain.Transaction{}, meta, nil
	}

	txns, err := s.txRepo.ListByWallet(ctx, walletID, meta.Skip, meta.PerPage)
	if err != nil {
		return nil, pagination.Meta{}, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	return txns, meta, nil
}
