package stockcodes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func writeCodes(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoad_PicksNewestFile(t *testing.T) {
	dir := t.TempDir()
	writeCodes(t, dir, "stock_code_20250101.json", `{"0700.HK": {"name": "Old Name", "exchange": "HKSE"}}`)
	writeCodes(t, dir, "stock_code_20260301.json", `{"0700.HK": {"name": "Tencent Holdings", "exchange": "HKSE"}}`)

	directory, err := Load(dir, arbor.NewLogger())
	require.NoError(t, err)

	entry, ok := directory.Lookup("700")
	require.True(t, ok)
	assert.Equal(t, "Tencent Holdings", entry.Name)
}

func TestLoad_FallbackFile(t *testing.T) {
	dir := t.TempDir()
	writeCodes(t, dir, "stock_code.json", `{"aapl": {"name": "Apple Inc.", "exchange": "NASDAQ"}}`)

	directory, err := Load(dir, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, directory.Len())

	entry, ok := directory.Lookup("aapl")
	require.True(t, ok)
	assert.Equal(t, "NASDAQ", entry.Exchange)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(t.TempDir(), arbor.NewLogger())
	assert.Error(t, err)

	dir := t.TempDir()
	writeCodes(t, dir, "stock_code.json", `[1, 2, 3]`)
	_, err = Load(dir, arbor.NewLogger())
	assert.Error(t, err)
}

func TestDirectory_LookupKeys(t *testing.T) {
	dir := t.TempDir()
	writeCodes(t, dir, "stock_code.json", `{
		"601899": {"name": "Zijin Mining", "exchange": "SHH"},
		"00005": {"name": "HSBC Holdings", "exchange": "HKSE"},
		"000001": {"name": "Ping An Bank", "exchange": "SHZ"}
	}`)

	directory, err := Load(dir, arbor.NewLogger())
	require.NoError(t, err)

	tests := []struct {
		input string
		want  string
	}{
		{"601899", "Zijin Mining"},    // exact code
		{"601899.SS", "Zijin Mining"}, // base before the suffix
		{"5", "HSBC Holdings"},        // 0005.HK -> base 0005 -> padded to 00005
		{"1", "Ping An Bank"},         // 0001.HK -> base 0001 -> padded to 000001
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			entry, ok := directory.Lookup(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, entry.Name)
		})
	}

	_, ok := directory.Lookup("NVDA")
	assert.False(t, ok)
}

func TestDirectory_Search(t *testing.T) {
	dir := t.TempDir()
	writeCodes(t, dir, "stock_code.json", `{"0700.HK": {"name": "Tencent Holdings", "exchange": "HKSE"}}`)

	directory, err := Load(dir, arbor.NewLogger())
	require.NoError(t, err)

	candidates, err := directory.Search(context.Background(), "0700.HK")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "0700.HK", candidates[0].Symbol)
	assert.Equal(t, "Tencent Holdings", candidates[0].Name)

	candidates, err = directory.Search(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
