package db

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	names, err := fs.Glob(Migrations(), "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_data_sources.sql", "00002_sales_star.sql", "00003_import_claims.sql"}, names)

	for _, name := range names {
		body, err := fs.ReadFile(Migrations(), name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}

	star, err := fs.ReadFile(Migrations(), "00002_sales_star.sql")
	require.NoError(t, err)
	for _, idx := range []string{"ux_dim_product_name", "ux_dim_customer_name"} {
		assert.True(t, strings.Contains(string(star), "CREATE UNIQUE INDEX IF NOT EXISTS "+idx), idx)
	}
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New(context.Background(), Config{DSN: "postgres://%zz"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "failed to parse database config")
}
