package main

import (
	"bytes"
	"context"
	"testing"

	"wallet-ledger/config"
	"wallet-ledger/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore_MemoryDriverIsFlaggedDevOnly(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("info", &buf)

	store, err := openStore(context.Background(), config.DatabaseConfig{Driver: "memory"}, log)
	require.NoError(t, err)
	defer store.close()

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "development only")
	assert.Contains(t, buf.String(), "one at a time")

	assert.NotNil(t, store.wallets)
	assert.NotNil(t, store.transactor)
	assert.Equal(t, "memory", store.health.Name())
	assert.NoError(t, store.health.Ping(context.Background()))
}
