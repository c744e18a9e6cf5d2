package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSection(t *testing.T) {
	for _, s := range AllSections {
		parsed, err := ParseSection(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	invalid := []string{"", "BIZ", "ta_option", "../info", "biz;drop"}
	for _, raw := range invalid {
		_, err := ParseSection(raw)
		assert.ErrorIs(t, err, ErrInvalidSection, "section %q", raw)
	}
}

func TestStockRecord_Section(t *testing.T) {
	record := &StockRecord{Ticker: "NVDA"}
	_, ok := record.Section(SectionBusiness)
	assert.False(t, ok)

	record.Sections = map[Section]string{SectionBusiness: "report", SectionCall: ""}
	content, ok := record.Section(SectionBusiness)
	assert.True(t, ok)
	assert.Equal(t, "report", content)

	_, ok = record.Section(SectionCall)
	assert.False(t, ok, "empty content counts as not computed")
}

func TestIdentity_DisplayName(t *testing.T) {
	assert.Equal(t, "騰訊控股", Identity{EnglishName: "Tencent", LocalizedName: "騰訊控股"}.DisplayName())
	assert.Equal(t, "Tencent", Identity{EnglishName: "Tencent"}.DisplayName())
}

func TestStorageError(t *testing.T) {
	assert.NoError(t, NewStorageError("get", "NVDA", nil))

	cause := errors.New("disk full")
	err := NewStorageError("save_section", "NVDA", cause)
	assert.True(t, IsStorageError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "save_section")
	assert.Contains(t, err.Error(), "NVDA")

	wrapped := NewStorageError("save_section", "NVDA", ErrIdentityMissing)
	assert.ErrorIs(t, wrapped, ErrIdentityMissing)
}
