// Package stockcodes provides an offline symbol directory loaded from stock_code_*.json exports.
package stockcodes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/models"
)

// Entry is one row of a stock code export
type Entry struct {
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// Directory is an in-memory code -> entry lookup
type Directory struct {
	source  string
	entries map[string]Entry
	logger  arbor.ILogger
}

// Load reads the newest stock_code_*.json in dir (lexicographically last, so date-stamped
// names sort correctly), falling back to stock_code.json.
func Load(dir string, logger arbor.ILogger) (*Directory, error) {
	files, err := filepath.Glob(filepath.Join(dir, "stock_code_*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list stock code files: %w", err)
	}
	sort.Strings(files)

	path := filepath.Join(dir, "stock_code.json")
	if len(files) > 0 {
		path = files[len(files)-1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock code file: %w", err)
	}

	raw := map[string]Entry{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse stock code file %s: %w", path, err)
	}

	entries := make(map[string]Entry, len(raw))
	for code, entry := range raw {
		entries[strings.ToUpper(strings.TrimSpace(code))] = entry
	}

	logger.Info().
		Str("file", filepath.Base(path)).
		Int("entries", len(entries)).
		Msg("Stock code directory loaded")

	return &Directory{source: path, entries: entries, logger: logger}, nil
}

// Len returns the number of codes loaded
func (d *Directory) Len() int {
	return len(d.entries)
}

// Lookup tries the normalized code, its base, then the base zero-padded to 4, 5 and 6 digits.
func (d *Directory) Lookup(ticker string) (Entry, bool) {
	code := common.NormalizeTicker(ticker)
	base := common.TickerBase(code)

	keys := []string{code, base}
	for _, width := range []int{4, 5, 6} {
		keys = append(keys, zeroPad(base, width))
	}

	for _, key := range keys {
		if entry, ok := d.entries[key]; ok {
			return entry, true
		}
	}
	return Entry{}, false
}

// Name identifies the source in logs
func (d *Directory) Name() string {
	return "stock_codes"
}

// Search returns the directory entry as a single candidate whose symbol is the query,
// so the resolver's exact pass accepts it.
func (d *Directory) Search(ctx context.Context, query string) ([]models.SymbolCandidate, error) {
	entry, ok := d.Lookup(query)
	if !ok {
		return nil, nil
	}
	return []models.SymbolCandidate{{
		Symbol:   strings.ToUpper(strings.TrimSpace(query)),
		Name:     entry.Name,
		Exchange: entry.Exchange,
	}}, nil
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
