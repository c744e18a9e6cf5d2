package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/models"
)

// stockEntry is the persisted form of one ticker. Sections live inside the record,
// so every section write is a read-modify-write under the store mutex.
type stockEntry struct {
	Ticker        string `badgerhold:"key"`
	EnglishName   string
	LocalizedName string
	Exchange      string
	Sections      map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (e *stockEntry) toRecord() *models.StockRecord {
	record := &models.StockRecord{
		Ticker:        e.Ticker,
		EnglishName:   e.EnglishName,
		LocalizedName: e.LocalizedName,
		Exchange:      e.Exchange,
		Sections:      make(map[models.Section]string, len(e.Sections)),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	for key, content := range e.Sections {
		if content != "" {
			record.Sections[models.Section(key)] = content
		}
	}
	return record
}

// CacheStore implements interfaces.CacheStore for Badger
type CacheStore struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewCacheStore creates a new CacheStore instance
func NewCacheStore(db *BadgerDB, logger arbor.ILogger) interfaces.CacheStore {
	return &CacheStore{
		db:     db,
		logger: logger,
	}
}

func (s *CacheStore) load(key string) (*stockEntry, error) {
	var entry stockEntry
	err := s.db.Store().Get(key, &entry)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *CacheStore) Get(ctx context.Context, ticker string) (*models.StockRecord, error) {
	key := common.CacheKey(ticker)

	entry, err := s.load(key)
	if errors.Is(err, models.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, models.NewStorageError("get", key, err)
	}
	return entry.toRecord(), nil
}

func (s *CacheStore) GetSection(ctx context.Context, ticker string, section models.Section) (string, error) {
	if !section.Valid() {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidSection, section)
	}

	record, err := s.Get(ctx, ticker)
	if err != nil {
		return "", err
	}

	content, ok := record.Section(section)
	if !ok {
		return "", models.ErrRecordNotFound
	}
	return content, nil
}

func (s *CacheStore) SaveIdentity(ctx context.Context, ticker, englishName, localizedName, exchange string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := common.CacheKey(ticker)
	now := time.Now()

	entry, err := s.load(key)
	switch {
	case errors.Is(err, models.ErrRecordNotFound):
		entry = &stockEntry{
			Ticker:    key,
			Sections:  map[string]string{},
			CreatedAt: now,
		}
	case err != nil:
		return models.NewStorageError("save_identity", key, err)
	}

	entry.EnglishName = englishName
	entry.LocalizedName = localizedName
	entry.Exchange = exchange
	entry.UpdatedAt = now

	if err := s.db.Store().Upsert(key, entry); err != nil {
		return models.NewStorageError("save_identity", key, err)
	}

	s.logger.Debug().Str("ticker", key).Str("exchange", exchange).Msg("Saved identity")
	return nil
}

func (s *CacheStore) SaveSection(ctx context.Context, ticker string, section models.Section, content string) error {
	if !section.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidSection, section)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := common.CacheKey(ticker)

	entry, err := s.load(key)
	if errors.Is(err, models.ErrRecordNotFound) {
		return models.NewStorageError("save_section", key, models.ErrIdentityMissing)
	}
	if err != nil {
		return models.NewStorageError("save_section", key, err)
	}

	if entry.Sections == nil {
		entry.Sections = map[string]string{}
	}
	entry.Sections[section.String()] = content
	entry.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(key, entry); err != nil {
		return models.NewStorageError("save_section", key, err)
	}

	s.logger.Debug().Str("ticker", key).Str("section", section.String()).Int("bytes", len(content)).Msg("Saved section")
	return nil
}

func (s *CacheStore) ListTickers(ctx context.Context) ([]string, error) {
	var entries []stockEntry
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return nil, models.NewStorageError("list", "", err)
	}

	tickers := make([]string, 0, len(entries))
	for _, entry := range entries {
		tickers = append(tickers, entry.Ticker)
	}
	sort.Strings(tickers)
	return tickers, nil
}

func (s *CacheStore) DeleteTicker(ctx context.Context, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := common.CacheKey(ticker)

	if _, err := s.load(key); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return err
		}
		return models.NewStorageError("delete", key, err)
	}

	if err := s.db.Store().Delete(key, &stockEntry{}); err != nil {
		return models.NewStorageError("delete", key, err)
	}

	s.logger.Info().Str("ticker", key).Msg("Deleted cached ticker")
	return nil
}

func (s *CacheStore) Close() error {
	return s.db.Close()
}
