package main

import (
	"context"
	"fmt"

	"wallet-ledger/config"
	"wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// ledgerStore bundles the repositories of one storage backend.
type ledgerStore struct {
	wallets    ports.WalletRepository
	txns       ports.TransactionRepository
	idemp      ports.IdempotencyRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*ledgerStore, error) {
	if cfg.InMemory() {
		log.Warn().
			Str("driver", cfg.Driver).
			Msg("in-memory ledger store is for development only: data is lost on exit and all ledger transactions run one at a time")
		store := memory.NewStore()
		return &ledgerStore{
			wallets:    memory.NewWalletRepo(store),
			txns:       memory.NewTransactionRepo(store),
			idemp:      memory.NewIdempotencyRepo(store),
			transactor: store,
			health:     store,
			close:      func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := pgStorage.MigrateUp(pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &ledgerStore{
		wallets:    pgStorage.NewWalletRepo(pool),
		txns:       pgStorage.NewTransactionRepo(pool),
		idemp:      pgStorage.NewIdempotencyRepo(pool),
		transactor: pgStorage.NewTransactor(pool),
		health:     pgStorage.NewHealthCheck(pool),
		close:      pool.Close,
	}, nil
}
