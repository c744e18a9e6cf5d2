// Package interfaces provides service interfaces for dependency injection.
package interfaces

import (
	"context"

	"github.com/ternarybob/equitylens/internal/models"
)

// CacheStore is the durable section-level cache keyed by canonical ticker.
// Every backend (sqlite, file, badger) implements the same contract.
type CacheStore interface {
	// Get returns the full record, or models.ErrRecordNotFound.
	Get(ctx context.Context, ticker string) (*models.StockRecord, error)

	// GetSection returns non-empty section content, or models.ErrRecordNotFound.
	GetSection(ctx context.Context, ticker string, section models.Section) (string, error)

	// SaveIdentity creates the record or updates its identity fields.
	// CreatedAt is preserved and sections are left untouched.
	SaveIdentity(ctx context.Context, ticker, englishName, localizedName, exchange string) error

	// SaveSection replaces one section's content and bumps UpdatedAt.
	// Fails with models.ErrInvalidSection before touching storage, and with
	// models.ErrIdentityMissing when SaveIdentity was never called for the ticker.
	SaveSection(ctx context.Context, ticker string, section models.Section, content string) error

	// ListTickers returns every cached ticker in lexicographic order.
	ListTickers(ctx context.Context) ([]string, error)

	// DeleteTicker removes the record and all its sections, or returns models.ErrRecordNotFound.
	DeleteTicker(ctx context.Context, ticker string) error

	Close() error
}
