package interfaces

import (
	"context"

	"github.com/ternarybob/equitylens/internal/models"
)

// SymbolSearcher queries a symbol directory. Candidate order carries no meaning.
type SymbolSearcher interface {
	Search(ctx context.Context, query string) ([]models.SymbolCandidate, error)
	Name() string
}
