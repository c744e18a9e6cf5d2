// Package storagetest holds the behaviour every interfaces.CacheStore backend must share.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/models"
)

// Factory opens a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) interfaces.CacheStore

// RunCacheStoreSuite runs the shared cache contract against a backend
func RunCacheStoreSuite(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		run  func(t *testing.T, store interfaces.CacheStore)
	}{
		{"GetMissing", testGetMissing},
		{"SaveIdentityThenGet", testSaveIdentityThenGet},
		{"SaveIdentityPreservesCreatedAt", testSaveIdentityPreservesCreatedAt},
		{"SaveIdentityKeepsSections", testSaveIdentityKeepsSections},
		{"SaveSectionRoundTrip", testSaveSectionRoundTrip},
		{"SaveSectionOverwrites", testSaveSectionOverwrites},
		{"SaveSectionWithoutIdentity", testSaveSectionWithoutIdentity},
		{"SaveSectionInvalid", testSaveSectionInvalid},
		{"KeysAreCaseInsensitive", testKeysAreCaseInsensitive},
		{"ListTickers", testListTickers},
		{"DeleteTicker", testDeleteTicker},
		{"ConcurrentSectionWrites", testConcurrentSectionWrites},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()
			tt.run(t, store)
		})
	}
}

func testGetMissing(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, "NVDA")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)

	_, err = store.GetSection(ctx, "NVDA", models.SectionBusiness)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func testSaveIdentityThenGet(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, "0700.HK", "Tencent Holdings", "騰訊控股", "HKSE"))

	record, err := store.Get(ctx, "0700.HK")
	require.NoError(t, err)
	assert.Equal(t, "0700.HK", record.Ticker)
	assert.Equal(t, "Tencent Holdings", record.EnglishName)
	assert.Equal(t, "騰訊控股", record.LocalizedName)
	assert.Equal(t, "HKSE", record.Exchange)
	assert.Empty(t, record.Sections)
	assert.False(t, record.CreatedAt.IsZero())
	assert.False(t, record.UpdatedAt.IsZero())

	// Identity alone is not section content
	_, err = store.GetSection(ctx, "0700.HK", models.SectionBusiness)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func testSaveIdentityPreservesCreatedAt(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, "NVDA", "NVIDIA", "NVIDIA", "NASDAQ"))
	first, err := store.Get(ctx, "NVDA")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, store.SaveIdentity(ctx, "NVDA", "NVIDIA Corporation", "NVIDIA Corporation", "NASDAQ"))
	second, err := store.Get(ctx, "NVDA")
	require.NoError(t, err)

	assert.Equal(t, "NVIDIA Corporation", second.EnglishName)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "created_at must not change")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "updated_at must advance")
}

func testSaveIdentityKeepsSections(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, "NVDA", "NVIDIA", "NVIDIA", "NASDAQ"))
	require.NoError(t, store.SaveSection(ctx, "NVDA", models.SectionBusiness, "## Business"))
	require.NoError(t, store.SaveIdentity(ctx, "NVDA", "NVIDIA Corporation", "NVIDIA Corporation", "NASDAQ"))

	content, err := store.GetSection(ctx, "NVDA", models.SectionBusiness)
	require.NoError(t, err)
	assert.Equal(t, "## Business", content)
}

func testSaveSectionRoundTrip(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, "NVDA", "NVIDIA", "NVIDIA", "NASDAQ"))
	before, err := store.Get(ctx, "NVDA")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	content := "## 商業模式\n\n| 項目 | 數值 |\n|---|---|\n| 營收 | 100 |\n"
	require.NoError(t, store.SaveSection(ctx, "NVDA", models.SectionBusiness, content))

	got, err := store.GetSection(ctx, "NVDA", models.SectionBusiness)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Other sections stay absent
	_, err = store.GetSection(ctx, "NVDA", models.SectionFinance)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)

	after, err := store.Get(ctx, "NVDA")
	require.NoError(t, err)
	assert.Equal(t, map[models.Section]string{models.SectionBusiness: content}, after.Sections)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))
}

func testSaveSectionOverwrites(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, "NVDA", "NVIDIA", "NVIDIA", "NASDAQ"))
	require.NoError(t, store.SaveSection(ctx, "NVDA", models.SectionCall, "old"))
	require.NoError(t, store.SaveSection(ctx, "NVDA", models.SectionCall, "new"))

	content, err := store.GetSection(ctx, "NVDA", models.SectionCall)
	require.NoError(t, err)
	assert.Equal(t, "new", content)
}

func testSaveSectionWithoutIdentity(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	err := store.SaveSection(ctx, "AAPL", models.SectionBusiness, "orphan")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrIdentityMissing)
	assert.True(t, models.IsStorageError(err))

	_, err = store.Get(ctx, "AAPL")
	assert.ErrorIs(t, err, models.ErrRecordNotFound, "nothing may be written")

	tickers, err := store.ListTickers(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickers)
}

func testSaveSectionInvalid(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, "NVDA", "NVIDIA", "NVIDIA", "NASDAQ"))

	err := store.SaveSection(ctx, "NVDA", models.Section("ta_option"), "x")
	assert.ErrorIs(t, err, models.ErrInvalidSection)

	// Validation happens before storage is touched, even for unknown tickers
	err = store.SaveSection(ctx, "MISSING", models.Section("'; DROP TABLE stock_analysis; --"), "x")
	assert.ErrorIs(t, err, models.ErrInvalidSection)

	_, err = store.Get(ctx, "NVDA")
	assert.NoError(t, err)
}

func testKeysAreCaseInsensitive(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, "0700.hk", "Tencent", "騰訊控股", "HKSE"))
	require.NoError(t, store.SaveSection(ctx, "0700.HK", models.SectionBusiness, "report"))

	content, err := store.GetSection(ctx, " 0700.hk ", models.SectionBusiness)
	require.NoError(t, err)
	assert.Equal(t, "report", content)

	tickers, err := store.ListTickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0700.HK"}, tickers)
}

func testListTickers(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	tickers, err := store.ListTickers(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickers)

	for _, ticker := range []string{"NVDA", "0700.HK", "AAPL", "601899"} {
		require.NoError(t, store.SaveIdentity(ctx, ticker, ticker+" Inc", ticker, "X"))
	}

	tickers, err = store.ListTickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0700.HK", "601899", "AAPL", "NVDA"}, tickers)
}

func testDeleteTicker(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, "NVDA", "NVIDIA", "NVIDIA", "NASDAQ"))
	require.NoError(t, store.SaveSection(ctx, "NVDA", models.SectionBusiness, "report"))

	require.NoError(t, store.DeleteTicker(ctx, "nvda"))

	_, err := store.Get(ctx, "NVDA")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
	_, err = store.GetSection(ctx, "NVDA", models.SectionBusiness)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)

	err = store.DeleteTicker(ctx, "NVDA")
	assert.True(t, errors.Is(err, models.ErrRecordNotFound))
}

func testConcurrentSectionWrites(t *testing.T, store interfaces.CacheStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveIdentity(ctx, "NVDA", "NVIDIA", "NVIDIA", "NASDAQ"))

	var wg sync.WaitGroup
	errs := make(chan error, len(models.AllSections))
	for _, section := range models.AllSections {
		wg.Add(1)
		go func(section models.Section) {
			defer wg.Done()
			errs <- store.SaveSection(ctx, "NVDA", section, "content "+section.String())
		}(section)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	record, err := store.Get(ctx, "NVDA")
	require.NoError(t, err)
	require.Len(t, record.Sections, len(models.AllSections))
	for _, section := range models.AllSections {
		assert.Equal(t, "content "+section.String(), record.Sections[section])
	}
}
