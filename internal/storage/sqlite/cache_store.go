package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/models"
)

// sectionColumns maps each section to its stock_analysis column. Column names are
// only ever taken from this map, never from caller input.
var sectionColumns = map[models.Section]string{
	models.SectionBusiness:  "biz",
	models.SectionExecutive: "exec",
	models.SectionFinance:   "finance",
	models.SectionCall:      "call",
	models.SectionPrice:     "ta_price",
	models.SectionAnalyst:   "ta_analyst",
	models.SectionSocial:    "ta_social",
}

const selectRecord = `SELECT ticker, stock_name, chinese_name, exchange,
	biz, exec, finance, call, ta_price, ta_analyst, ta_social,
	created_at, updated_at
	FROM stock_analysis WHERE ticker = ?`

// CacheStore implements interfaces.CacheStore on the stock_analysis table
type CacheStore struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewCacheStore creates a new CacheStore instance
func NewCacheStore(db *SQLiteDB, logger arbor.ILogger) interfaces.CacheStore {
	return &CacheStore{
		db:     db,
		logger: logger,
	}
}

func (s *CacheStore) Get(ctx context.Context, ticker string) (*models.StockRecord, error) {
	key := common.CacheKey(ticker)

	var (
		record               models.StockRecord
		localized            sql.NullString
		sections             [7]sql.NullString
		createdAt, updatedAt string
	)

	err := s.db.DB().QueryRowContext(ctx, selectRecord, key).Scan(
		&record.Ticker, &record.EnglishName, &localized, &record.Exchange,
		&sections[0], &sections[1], &sections[2], &sections[3], &sections[4], &sections[5], &sections[6],
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, models.NewStorageError("get", key, err)
	}

	record.LocalizedName = localized.String
	record.Sections = make(map[models.Section]string)
	for i, section := range models.AllSections {
		if sections[i].Valid && sections[i].String != "" {
			record.Sections[section] = sections[i].String
		}
	}
	record.CreatedAt = parseTime(createdAt)
	record.UpdatedAt = parseTime(updatedAt)

	return &record, nil
}

func (s *CacheStore) GetSection(ctx context.Context, ticker string, section models.Section) (string, error) {
	column, ok := sectionColumns[section]
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidSection, section)
	}
	key := common.CacheKey(ticker)

	var content sql.NullString
	query := fmt.Sprintf(`SELECT "%s" FROM stock_analysis WHERE ticker = ?`, column)
	err := s.db.DB().QueryRowContext(ctx, query, key).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrRecordNotFound
	}
	if err != nil {
		return "", models.NewStorageError("get_section", key, err)
	}

	if !content.Valid || content.String == "" {
		return "", models.ErrRecordNotFound
	}
	return content.String, nil
}

func (s *CacheStore) SaveIdentity(ctx context.Context, ticker, englishName, localizedName, exchange string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := common.CacheKey(ticker)
	now := formatTime(time.Now())

	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO stock_analysis (ticker, stock_name, chinese_name, exchange, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			stock_name = excluded.stock_name,
			chinese_name = excluded.chinese_name,
			exchange = excluded.exchange,
			updated_at = excluded.updated_at`,
		key, englishName, localizedName, exchange, now, now,
	)
	if err != nil {
		return models.NewStorageError("save_identity", key, err)
	}

	s.logger.Debug().Str("ticker", key).Str("exchange", exchange).Msg("Saved identity")
	return nil
}

func (s *CacheStore) SaveSection(ctx context.Context, ticker string, section models.Section, content string) error {
	column, ok := sectionColumns[section]
	if !ok {
		return fmt.Errorf("%w: %q", models.ErrInvalidSection, section)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := common.CacheKey(ticker)
	query := fmt.Sprintf(`UPDATE stock_analysis SET "%s" = ?, updated_at = ? WHERE ticker = ?`, column)

	result, err := s.db.DB().ExecContext(ctx, query, content, formatTime(time.Now()), key)
	if err != nil {
		return models.NewStorageError("save_section", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.NewStorageError("save_section", key, err)
	}
	if affected == 0 {
		return models.NewStorageError("save_section", key, models.ErrIdentityMissing)
	}

	s.logger.Debug().Str("ticker", key).Str("section", section.String()).Int("bytes", len(content)).Msg("Saved section")
	return nil
}

func (s *CacheStore) ListTickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.DB().QueryContext(ctx, "SELECT ticker FROM stock_analysis ORDER BY ticker")
	if err != nil {
		return nil, models.NewStorageError("list", "", err)
	}
	defer rows.Close()

	tickers := []string{}
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, models.NewStorageError("list", "", err)
		}
		tickers = append(tickers, ticker)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStorageError("list", "", err)
	}
	return tickers, nil
}

func (s *CacheStore) DeleteTicker(ctx context.Context, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := common.CacheKey(ticker)
	result, err := s.db.DB().ExecContext(ctx, "DELETE FROM stock_analysis WHERE ticker = ?", key)
	if err != nil {
		return models.NewStorageError("delete", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.NewStorageError("delete", key, err)
	}
	if affected == 0 {
		return models.ErrRecordNotFound
	}

	s.logger.Info().Str("ticker", key).Msg("Deleted cached ticker")
	return nil
}

func (s *CacheStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts RFC3339 and the naive ISO layout written by older databases
func parseTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
