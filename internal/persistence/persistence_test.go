package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"portfolioanalytics/internal/config"
	apperrors "portfolioanalytics/internal/errors"
)

type snapshot struct {
	Symbol string   `json:"symbol"`
	PE     *float64 `json:"pe_ratio"`
	Date   string   `json:"date"`
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDBConnection(config.DatabaseConfig{
		Type: config.DBTypeSQLite,
		DSN:  filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })
	return db
}

func repositories(t *testing.T) map[string]Repository {
	files, err := NewFileRepository(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return map[string]Repository{
		"file":     files,
		"database": NewDatabaseRepository(openTestDB(t)),
	}
}

func TestRepository_RoundTrip(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			pe := 21.5

			require.NoError(t, repo.Save(ctx, "equity/AAPL", snapshot{Symbol: "AAPL", PE: &pe, Date: "2024-01-01"}))

			var got snapshot
			found, err := repo.Load(ctx, "equity/AAPL", &got)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "AAPL", got.Symbol)
			require.NotNil(t, got.PE)
			assert.InDelta(t, 21.5, *got.PE, 1e-12)

			// overwrite
			require.NoError(t, repo.Save(ctx, "equity/AAPL", snapshot{Symbol: "AAPL"}))
			got = snapshot{}
			found, err = repo.Load(ctx, "equity/AAPL", &got)
			require.NoError(t, err)
			require.True(t, found)
			assert.Nil(t, got.PE)

			found, err = repo.Load(ctx, "equity/MSFT", &got)
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, repo.Delete(ctx, "equity/AAPL"))
			require.NoError(t, repo.Delete(ctx, "equity/AAPL"))
			found, err = repo.Load(ctx, "equity/AAPL", &got)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestRepository_NonFiniteValuesBecomeNull(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Save(ctx, "risk", map[string]any{"var": nan()}))

			var got map[string]any
			found, err := repo.Load(ctx, "risk", &got)
			require.NoError(t, err)
			require.True(t, found)
			assert.Contains(t, got, "var")
			assert.Nil(t, got["var"])
		})
	}
}

func TestRepository_List(t *testing.T) {
	ctx := context.Background()

	files, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	db := NewDatabaseRepository(openTestDB(t))

	for _, key := range []string{"equity/MSFT", "equity/AAPL", "bond/US0001"} {
		require.NoError(t, files.Save(ctx, key, snapshot{Symbol: key}))
		require.NoError(t, db.Save(ctx, key, snapshot{Symbol: key}))
	}

	keys, err := files.List(ctx, "equity/")
	require.NoError(t, err)
	assert.Equal(t, []string{"equity_AAPL", "equity_MSFT"}, keys)

	keys, err = db.List(ctx, "equity/")
	require.NoError(t, err)
	assert.Equal(t, []string{"equity/AAPL", "equity/MSFT"}, keys)

	// underscore is literal, not a LIKE wildcard
	keys, err = db.List(ctx, "equity_")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestNewRepository(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		db      bool
		wantErr bool
	}{
		{name: "file default", cfg: config.StorageConfig{DataDir: t.TempDir()}},
		{name: "database", cfg: config.StorageConfig{Backend: config.StorageBackendDatabase}, db: true},
		{name: "database without connection", cfg: config.StorageConfig{Backend: config.StorageBackendDatabase}, wantErr: true},
		{name: "unknown", cfg: config.StorageConfig{Backend: "s3"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var db *gorm.DB
			if tt.db {
				db = openTestDB(t)
			}
			repo, err := NewRepository(tt.cfg, db)
			if tt.wantErr {
				require.Error(t, err)
				kind, ok := apperrors.TypeOf(err)
				assert.True(t, ok)
				assert.Equal(t, apperrors.ErrTypeConfig, kind)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, repo)
		})
	}
}

func TestNewDBConnection_InMemoryAndUnsupported(t *testing.T) {
	db, err := NewDBConnection(config.DatabaseConfig{Type: config.DBTypeSQLite})
	require.NoError(t, err)
	require.NoError(t, PingDB(db))

	// a second statement must see the migrated schema on the same connection
	store := NewBondStore(db)
	_, err = store.ListBonds(context.Background())
	require.NoError(t, err)
	require.NoError(t, CloseDB(db))

	_, err = NewDBConnection(config.DatabaseConfig{Type: "oracle"})
	assert.Error(t, err)
}

func TestDocumentTimestamps(t *testing.T) {
	db := openTestDB(t)
	repo := NewDatabaseRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "k", 1))
	var first DocumentModel
	require.NoError(t, db.First(&first, "key = ?", "k").Error)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.Save(ctx, "k", 2))
	var second DocumentModel
	require.NoError(t, db.First(&second, "key = ?", "k").Error)

	assert.Equal(t, "2", second.Payload)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}
