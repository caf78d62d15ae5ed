package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// fundPayload and transferPayload are the request fields bound to an
// idempotency key. Metadata is deliberately not part of the hash.
type fundPayload struct {
	WalletID string `json:"wallet_id"`
	Amount   int64  `json:"amount"`
}

type transferPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	walletRepo        ports.WalletRepository
	txRepo            ports.TransactionRepository
	guard             *Guard
	defaultCurrency   domain.Currency
	referenceAttempts int
	newReference      func() (string, error)
	metrics           *Metrics
	log               zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	guard *Guard,
	defaultCurrency domain.Currency,
	referenceAttempts int,
	metrics *Metrics,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if referenceAttempts < 1 {
		referenceAttempts = 1
	}
	return &LedgerServiceImpl{
		walletRepo:        walletRepo,
		txRepo:            txRepo,
		guard:             guard,
		defaultCurrency:   defaultCurrency,
		referenceAttempts: referenceAttempts,
		newReference:      NewReference,
		metrics:           metrics,
		log:               log,
	}
}

// CreateWallet opens an empty wallet. An empty currency selects the default.
func (s *LedgerServiceImpl) CreateWallet(ctx context.Context, currency string) (_ *domain.Wallet, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(opCreateWallet, start, err) }()

	cur := s.defaultCurrency
	if currency != "" {
		parsed, ok := domain.ParseCurrency(currency)
		if !ok {
			return nil, apperror.ErrInvalidCurrency(currency)
		}
		cur = parsed
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	wallet := &domain.Wallet{
		ID:        uuid.New(),
		Currency:  cur,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("currency", string(wallet.Currency)).
		Msg("wallet created")

	return wallet, nil
}

// GetWallet returns a wallet by id.
func (s *LedgerServiceImpl) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(id.String())
	}
	return wallet, nil
}

// Fund credits a wallet and records a DEPOSIT, exactly once per idempotency key.
func (s *LedgerServiceImpl) Fund(ctx context.Context, req ports.FundRequest) (_ *domain.FundResult, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(opFund, start, err) }()

	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if _, err := s.GetWallet(ctx, req.WalletID); err != nil {
		return nil, err
	}

	payload := fundPayload{WalletID: req.WalletID.String(), Amount: req.Amount}

	result, err := RunIdempotent[domain.FundResult](ctx, s.guard, req.IdempotencyKey, domain.OperationFund, payload,
		func(ctx context.Context, tx pgx.Tx) (*domain.FundResult, error) {
			wallet, err := s.lockWallet(ctx, tx, req.WalletID)
			if err != nil {
				return nil, err
			}
			if wallet.Balance > math.MaxInt64-req.Amount {
				return nil, apperror.ErrInvalidAmount()
			}

			now := time.Now().UTC().Truncate(time.Microsecond)
			wallet.Balance += req.Amount
			wallet.UpdatedAt = now
			if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance, now); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
			}

			deposit := &domain.Transaction{
				ID:        uuid.New(),
				WalletID:  wallet.ID,
				Amount:    req.Amount,
				Type:      domain.TransactionTypeDeposit,
				Metadata:  req.Metadata,
				CreatedAt: now,
			}
			if err := s.recordTransaction(ctx, tx, deposit); err != nil {
				return nil, err
			}

			return &domain.FundResult{
				Version:     domain.ResultVersion,
				Wallet:      wallet,
				Transaction: deposit,
			}, nil
		})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("wallet_id", req.WalletID.String()).
		Str("tx_id", result.Transaction.ID.String()).
		Int64("amount", req.Amount).
		Bool("idempotent", req.IdempotencyKey != "").
		Msg("wallet funded")

	return result, nil
}

// Transfer moves amount between two wallets of the same currency and records
// a WITHDRAWAL and a DEPOSIT. Both balance moves commit together or not at all.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (_ *domain.TransferResult, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(opTransfer, start, err) }()

	if req.FromID == req.ToID {
		return nil, apperror.ErrInvalidTransfer()
	}
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	from, err := s.GetWallet(ctx, req.FromID)
	if err != nil {
		return nil, err
	}
	to, err := s.GetWallet(ctx, req.ToID)
	if err != nil {
		return nil, err
	}
	if from.Currency != to.Currency {
		return nil, apperror.ErrCurrencyMismatch()
	}

	payload := transferPayload{From: req.FromID.String(), To: req.ToID.String(), Amount: req.Amount}

	result, err := RunIdempotent[domain.TransferResult](ctx, s.guard, req.IdempotencyKey, domain.OperationTransfer, payload,
		func(ctx context.Context, tx pgx.Tx) (*domain.TransferResult, error) {
			from, to, err := s.lockPair(ctx, tx, req.FromID, req.ToID)
			if err != nil {
				return nil, err
			}
			if !from.CanDebit(req.Amount) {
				return nil, apperror.ErrInsufficientFunds()
			}
			if to.Balance > math.MaxInt64-req.Amount {
				return nil, apperror.ErrInvalidAmount()
			}

			now := time.Now().UTC().Truncate(time.Microsecond)
			from.Balance -= req.Amount
			from.UpdatedAt = now
			to.Balance += req.Amount
			to.UpdatedAt = now

			if err := s.walletRepo.UpdateBalance(ctx, tx, from.ID, from.Balance, now); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("debit source wallet: %w", err))
			}
			if err := s.walletRepo.UpdateBalance(ctx, tx, to.ID, to.Balance, now); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("credit destination wallet: %w", err))
			}

			debit := &domain.Transaction{
				ID:        uuid.New(),
				WalletID:  from.ID,
				Amount:    req.Amount,
				Type:      domain.TransactionTypeWithdrawal,
				Metadata:  req.Metadata,
				CreatedAt: now,
			}
			credit := &domain.Transaction{
				ID:        uuid.New(),
				WalletID:  to.ID,
				Amount:    req.Amount,
				Type:      domain.TransactionTypeDeposit,
				Metadata:  req.Metadata,
				CreatedAt: now,
			}
			if err := s.recordTransaction(ctx, tx, debit); err != nil {
				return nil, err
			}
			if err := s.recordTransaction(ctx, tx, credit); err != nil {
				return nil, err
			}

			return &domain.TransferResult{
				Version: domain.ResultVersion,
				From:    from,
				To:      to,
				Debit:   debit,
				Credit:  credit,
			}, nil
		})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("from", req.FromID.String()).
		Str("to", req.ToID.String()).
		Int64("amount", req.Amount).
		Bool("idempotent", req.IdempotencyKey != "").
		Msg("transfer completed")

	return result, nil
}

func (s *LedgerServiceImpl) lockWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(id.String())
	}
	return wallet, nil
}

// lockPair locks both wallets in ascending id order so that concurrent
// opposite transfers cannot deadlock.
func (s *LedgerServiceImpl) lockPair(ctx context.Context, tx pgx.Tx, fromID, toID uuid.UUID) (*domain.Wallet, *domain.Wallet, error) {
	firstID, secondID := fromID, toID
	if bytes.Compare(fromID[:], toID[:]) > 0 {
		firstID, secondID = toID, fromID
	}

	first, err := s.lockWallet(ctx, tx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.lockWallet(ctx, tx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if first.ID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

// recordTransaction assigns a fresh reference and inserts txn, regenerating
// the reference on collision up to referenceAttempts times.
func (s *LedgerServiceImpl) recordTransaction(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	for attempt := 1; ; attempt++ {
		ref, err := s.newReference()
		if err != nil {
			return apperror.InternalError(err)
		}
		txn.Reference = ref

		err = s.txRepo.Create(ctx, tx, txn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicateKey) {
			return apperror.InternalError(fmt.Errorf("create transaction: %w", err))
		}
		if attempt >= s.referenceAttempts {
			return apperror.InternalError(fmt.Errorf("reference collision after %d attempts: %w", attempt, err))
		}
		s.log.Warn().Str("reference", ref).Int("attempt", attempt).Msg("transaction reference collision, regenerating")
	}
}
