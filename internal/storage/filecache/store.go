// Package filecache stores the section cache as a directory tree:
//
//	<root>/<TICKER_DIR>/info.json
//	<root>/<TICKER_DIR>/<section>.md
//
// where TICKER_DIR is the canonical ticker upper-cased with '.' replaced by '_'.
// Distinct tickers can share a TICKER_DIR (BRK.B and BRK_B); the ticker field of
// info.json says which one owns it.
package filecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/models"
)

const infoFileName = "info.json"

// errForeignTicker means the ticker directory exists but belongs to another ticker
var errForeignTicker = errors.New("cache directory belongs to another ticker")

// info is the on-disk identity file. Timestamps are strings so files written by
// older releases (naive ISO timestamps) still load.
type info struct {
	Ticker        string `json:"ticker"`
	EnglishName   string `json:"stock_name"`
	LocalizedName string `json:"chinese_name"`
	Exchange      string `json:"exchange"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// Store implements interfaces.CacheStore on the local filesystem
type Store struct {
	root   string
	logger arbor.ILogger

	// locks serializes writes per ticker directory
	locks *common.KeyedMutex
}

// NewStore creates the cache root if needed
func NewStore(root string, logger arbor.ILogger) (interfaces.CacheStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	logger.Info().Str("root", root).Msg("File cache initialized")

	return &Store{
		root:   root,
		logger: logger,
		locks:  common.NewKeyedMutex(),
	}, nil
}

// lock is keyed by directory so colliding tickers also serialize
func (s *Store) lock(key string) func() {
	return s.locks.Lock(common.TickerDirName(key))
}

func (s *Store) dir(key string) string {
	return filepath.Join(s.root, common.TickerDirName(key))
}

func (s *Store) readInfo(key string) (*info, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(key), infoFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	var meta info
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", infoFileName, err)
	}
	if owner := common.CacheKey(meta.Ticker); owner != "" && owner != key {
		return nil, fmt.Errorf("%w: %s is %s", errForeignTicker, common.TickerDirName(key), owner)
	}
	return &meta, nil
}

// readOwnInfo is readInfo for read paths, where a foreign directory is a miss
func (s *Store) readOwnInfo(key string) (*info, error) {
	meta, err := s.readInfo(key)
	if errors.Is(err, errForeignTicker) {
		return nil, models.ErrRecordNotFound
	}
	return meta, err
}

func (s *Store) writeInfo(key string, meta *info) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir(key), infoFileName), data)
}

// writeAtomic replaces path via a temp file in the same directory and a rename
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, ticker string) (*models.StockRecord, error) {
	key := common.CacheKey(ticker)

	meta, err := s.readOwnInfo(key)
	if errors.Is(err, models.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, models.NewStorageError("get", key, err)
	}

	record := &models.StockRecord{
		Ticker:        meta.Ticker,
		EnglishName:   meta.EnglishName,
		LocalizedName: meta.LocalizedName,
		Exchange:      meta.Exchange,
		Sections:      make(map[models.Section]string),
		CreatedAt:     parseTime(meta.CreatedAt),
		UpdatedAt:     parseTime(meta.UpdatedAt),
	}

	for _, section := range models.AllSections {
		content, err := s.readSection(key, section)
		if errors.Is(err, models.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, models.NewStorageError("get", key, err)
		}
		record.Sections[section] = content
	}

	return record, nil
}

func (s *Store) readSection(key string, section models.Section) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(key), section.String()+".md"))
	if errors.Is(err, fs.ErrNotExist) {
		return "", models.ErrRecordNotFound
	}
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", models.ErrRecordNotFound
	}
	return string(data), nil
}

func (s *Store) GetSection(ctx context.Context, ticker string, section models.Section) (string, error) {
	if !section.Valid() {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidSection, section)
	}
	key := common.CacheKey(ticker)

	if _, err := s.readOwnInfo(key); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return "", err
		}
		return "", models.NewStorageError("get_section", key, err)
	}

	content, err := s.readSection(key, section)
	if err != nil && !errors.Is(err, models.ErrRecordNotFound) {
		return "", models.NewStorageError("get_section", key, err)
	}
	return content, err
}

func (s *Store) SaveIdentity(ctx context.Context, ticker, englishName, localizedName, exchange string) error {
	key := common.CacheKey(ticker)
	unlock := s.lock(key)
	defer unlock()

	now := formatTime(time.Now())
	meta, err := s.readInfo(key)
	switch {
	case errors.Is(err, models.ErrRecordNotFound):
		if err := os.MkdirAll(s.dir(key), 0755); err != nil {
			return models.NewStorageError("save_identity", key, err)
		}
		meta = &info{CreatedAt: now}
	case err != nil:
		return models.NewStorageError("save_identity", key, err)
	}

	meta.Ticker = key
	meta.EnglishName = englishName
	meta.LocalizedName = localizedName
	meta.Exchange = exchange
	meta.UpdatedAt = now
	if meta.CreatedAt == "" {
		meta.CreatedAt = now
	}

	if err := s.writeInfo(key, meta); err != nil {
		return models.NewStorageError("save_identity", key, err)
	}

	s.logger.Debug().Str("ticker", key).Str("exchange", exchange).Msg("Saved identity")
	return nil
}

func (s *Store) SaveSection(ctx context.Context, ticker string, section models.Section, content string) error {
	if !section.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidSection, section)
	}

	key := common.CacheKey(ticker)
	unlock := s.lock(key)
	defer unlock()

	meta, err := s.readInfo(key)
	if errors.Is(err, models.ErrRecordNotFound) {
		return models.NewStorageError("save_section", key, models.ErrIdentityMissing)
	}
	if err != nil {
		return models.NewStorageError("save_section", key, err)
	}

	if err := writeAtomic(filepath.Join(s.dir(key), section.String()+".md"), []byte(content)); err != nil {
		return models.NewStorageError("save_section", key, err)
	}

	meta.UpdatedAt = formatTime(time.Now())
	if err := s.writeInfo(key, meta); err != nil {
		return models.NewStorageError("save_section", key, err)
	}

	s.logger.Debug().Str("ticker", key).Str("section", section.String()).Int("bytes", len(content)).Msg("Saved section")
	return nil
}

// ListTickers reads the ticker field of every info.json; directory names are lossy
func (s *Store) ListTickers(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, models.NewStorageError("list", "", err)
	}

	tickers := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.root, entry.Name(), infoFileName))
		if err != nil {
			continue
		}

		var meta info
		if err := json.Unmarshal(data, &meta); err != nil || meta.Ticker == "" {
			s.logger.Warn().Str("dir", entry.Name()).Msg("Skipping cache directory with unreadable info.json")
			continue
		}
		tickers = append(tickers, meta.Ticker)
	}

	sort.Strings(tickers)
	return tickers, nil
}

func (s *Store) DeleteTicker(ctx context.Context, ticker string) error {
	key := common.CacheKey(ticker)
	unlock := s.lock(key)
	defer unlock()

	if _, err := s.readOwnInfo(key); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return err
		}
		return models.NewStorageError("delete", key, err)
	}

	if err := os.RemoveAll(s.dir(key)); err != nil {
		return models.NewStorageError("delete", key, err)
	}

	s.logger.Info().Str("ticker", key).Msg("Deleted cached ticker")
	return nil
}

func (s *Store) Close() error {
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
