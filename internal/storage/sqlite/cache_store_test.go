package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/models"
	"github.com/ternarybob/equitylens/internal/storage/storagetest"
)

func testConfig(t *testing.T) *common.SQLiteConfig {
	return &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "stock_analysis.db"),
		CacheSizeMB:   4,
		BusyTimeoutMS: 5000,
		WALMode:       false,
	}
}

func TestCacheStore(t *testing.T) {
	storagetest.RunCacheStoreSuite(t, func(t *testing.T) interfaces.CacheStore {
		db, err := NewSQLiteDB(arbor.NewLogger(), testConfig(t))
		require.NoError(t, err)
		return NewCacheStore(db, arbor.NewLogger())
	})
}

func TestCacheStore_ReopenKeepsData(t *testing.T) {
	config := testConfig(t)
	ctx := context.Background()

	db, err := NewSQLiteDB(arbor.NewLogger(), config)
	require.NoError(t, err)
	store := NewCacheStore(db, arbor.NewLogger())
	require.NoError(t, store.SaveIdentity(ctx, "NVDA", "NVIDIA", "NVIDIA", "NASDAQ"))
	require.NoError(t, store.SaveSection(ctx, "NVDA", models.SectionPrice, "chart"))
	require.NoError(t, store.Close())

	db, err = NewSQLiteDB(arbor.NewLogger(), config)
	require.NoError(t, err)
	store = NewCacheStore(db, arbor.NewLogger())
	defer store.Close()

	content, err := store.GetSection(ctx, "NVDA", models.SectionPrice)
	require.NoError(t, err)
	assert.Equal(t, "chart", content)
}

// createLegacyDatabase writes a database the way older releases did: no schema_migrations
// table, naive ISO timestamps and the ta_option column.
func createLegacyDatabase(t *testing.T, path string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE stock_analysis (
		ticker TEXT PRIMARY KEY,
		stock_name TEXT NOT NULL,
		chinese_name TEXT,
		exchange TEXT NOT NULL,
		biz TEXT,
		exec TEXT,
		finance TEXT,
		call TEXT,
		ta_price TEXT,
		ta_option TEXT,
		ta_social TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO stock_analysis (ticker, stock_name, chinese_name, exchange, ta_option, created_at, updated_at)
		VALUES ('0700.HK', 'Tencent Holdings', '騰訊控股', 'HKSE', 'legacy analyst view', '2025-01-15T08:30:00.123456', '2025-01-15T08:30:00.123456')`)
	require.NoError(t, err)
}

func TestMigration_RenamesLegacyColumn(t *testing.T) {
	config := testConfig(t)
	createLegacyDatabase(t, config.Path)
	ctx := context.Background()

	db, err := NewSQLiteDB(arbor.NewLogger(), config)
	require.NoError(t, err)
	store := NewCacheStore(db, arbor.NewLogger())

	content, err := store.GetSection(ctx, "0700.HK", models.SectionAnalyst)
	require.NoError(t, err)
	assert.Equal(t, "legacy analyst view", content)

	record, err := store.Get(ctx, "0700.HK")
	require.NoError(t, err)
	assert.Equal(t, 2025, record.CreatedAt.Year())

	tx, err := db.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	columns, err := tableColumns(ctx, tx, "stock_analysis")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.True(t, columns["ta_analyst"])
	assert.False(t, columns["ta_option"])
	require.NoError(t, store.Close())

	// Running migrations again is a no-op
	db, err = NewSQLiteDB(arbor.NewLogger(), config)
	require.NoError(t, err)
	defer db.Close()

	var applied int
	require.NoError(t, db.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)
}

func TestMigration_RenameIsIdempotentOnCurrentSchema(t *testing.T) {
	config := testConfig(t)

	db, err := NewSQLiteDB(arbor.NewLogger(), config)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	tx, err := db.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	assert.NoError(t, migrateV2(ctx, tx))
	columns, err := tableColumns(ctx, tx, "stock_analysis")
	require.NoError(t, err)
	assert.True(t, columns["ta_analyst"])
}
