package postgres

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles_Embedded(t *testing.T) {
	entries, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)

	var ups, downs int
	for _, e := range entries {
		switch {
		case len(e) > len(".up.sql") && e[len(e)-len(".up.sql"):] == ".up.sql":
			ups++
		case len(e) > len(".down.sql") && e[len(e)-len(".down.sql"):] == ".down.sql":
			downs++
		}
	}
	assert.Equal(t, 2, ups)
	assert.Equal(t, ups, downs, "every up migration needs a down")

	schema, err := fs.ReadFile(migrationFiles, "migrations/000001_create_ledger.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(schema), "CHECK (balance >= 0)")
	assert.Contains(t, string(schema), "UNIQUE (reference)")
}

func TestTransactor_Begin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()

	tx, err := NewTransactor(mock).Begin(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tx)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err = NewTransactor(mock).Begin(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
}

func TestHealthCheck(t *testing.T) {
	mock, err := pgxmock.NewPool() // pgxmock v3 always monitors pings
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()

	hc := NewHealthCheck(mock)
	assert.Equal(t, "postgresql", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
