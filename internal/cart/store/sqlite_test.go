package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T, path string) *SQLite {
	s, err := NewSQLite(path, "")
	require.NoError(t, err)
	require.NoError(t, s.RunMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_LoadMissing(t *testing.T) {
	s := setupSQLite(t, filepath.Join(t.TempDir(), "cart.db"))

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.db")
	ctx := context.Background()

	s := setupSQLite(t, path)
	require.NoError(t, s.Save(ctx, sampleState()))
	require.NoError(t, s.Close())

	// a fresh handle on the same file sees the state, as after a restart
	reopened := setupSQLite(t, path)
	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assertSameState(t, sampleState(), got)
}

func TestSQLite_SaveOverwrites(t *testing.T) {
	s := setupSQLite(t, filepath.Join(t.TempDir(), "cart.db"))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleState()))
	require.NoError(t, s.Save(ctx, domain.EmptyCart()))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Equal(t, 0, got.TotalQuantity)
	assert.True(t, got.TotalPrice.IsZero())
}

func TestSQLite_MigrationsAreIdempotent(t *testing.T) {
	s := setupSQLite(t, filepath.Join(t.TempDir(), "cart.db"))
	assert.NoError(t, s.RunMigrations())
}
