package interfaces

import (
	"context"

	"github.com/ternarybob/equitylens/internal/models"
)

// SymbolResolver maps a canonical ticker to its listing identity.
// Returns an error wrapping models.ErrNotFound when nothing matches.
type SymbolResolver interface {
	Resolve(ctx context.Context, ticker string) (*models.Identity, error)
}

// LocalizedNameResolver returns the display name shown to readers. Failures are soft:
// the result may be placeholder text rather than an error.
type LocalizedNameResolver interface {
	Resolve(ctx context.Context, englishName, ticker, exchange string) string
}
