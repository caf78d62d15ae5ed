package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSweeper_SweepsInBatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockIdempotencyRepository(ctrl)
	metrics := NewMetrics(prometheus.NewRegistry())
	s := NewIdempotencySweeper(repo, 24*time.Hour, time.Minute, 10, metrics, zerolog.Nop())

	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	cutoff := now.Add(-24 * time.Hour)

	ctx := context.Background()
	gomock.InOrder(
		repo.EXPECT().DeleteCompletedBefore(ctx, cutoff, 10).Return(int64(10), nil),
		repo.EXPECT().DeleteCompletedBefore(ctx, cutoff, 10).Return(int64(10), nil),
		repo.EXPECT().DeleteCompletedBefore(ctx, cutoff, 10).Return(int64(3), nil),
	)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(23), n)
	assert.Equal(t, 23.0, testutil.ToFloat64(metrics.swept))
}

func TestSweeper_PropagatesError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockIdempotencyRepository(ctrl)
	s := NewIdempotencySweeper(repo, time.Hour, time.Minute, 10, nil, zerolog.Nop())

	repo.EXPECT().DeleteCompletedBefore(gomock.Any(), gomock.Any(), 10).Return(int64(0), errors.New("conn reset"))

	_, err := s.Sweep(context.Background())
	assert.ErrorContains(t, err, "conn reset")
}

func TestSweeper_DisabledWithoutRetention(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockIdempotencyRepository(ctrl)
	s := NewIdempotencySweeper(repo, 0, time.Minute, 10, nil, zerolog.Nop())

	assert.False(t, s.Enabled())
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, s.Run(context.Background()))
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	env := newLedgerEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	w := env.newWallet(t, 0)

	_, err := env.ledger.Fund(ctx, ports.FundRequest{WalletID: w.ID, Amount: 1, IdempotencyKey: "old"})
	require.NoError(t, err)

	s := NewIdempotencySweeper(env.idemp, time.Nanosecond, 10*time.Millisecond, 10, nil, zerolog.Nop())
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		tx, err := env.store.Begin(context.Background())
		if err != nil {
			return false
		}
		defer func() { _ = tx.Rollback(context.Background()) }()
		rec, err := env.idemp.GetByKey(context.Background(), tx, "old")
		return err == nil && rec == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

var _ ports.IdempotencySweeper = (*IdempotencySweeperImpl)(nil)
var _ ports.LedgerService = (*LedgerServiceImpl)(nil)
var _ ports.QueryService = (*QueryServiceImpl)(nil)
