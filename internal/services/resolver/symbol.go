// Package resolver turns canonical tickers into identities.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/models"
)

// SymbolResolver matches symbol-search candidates against a canonical ticker.
type SymbolResolver struct {
	searcher  interfaces.SymbolSearcher
	preferred map[string]bool
	logger    arbor.ILogger
}

// NewSymbolResolver creates a resolver. preferredExchanges are compared case-insensitively.
func NewSymbolResolver(searcher interfaces.SymbolSearcher, preferredExchanges []string, logger arbor.ILogger) *SymbolResolver {
	preferred := make(map[string]bool, len(preferredExchanges))
	for _, exchange := range preferredExchanges {
		preferred[normalizeExchange(exchange)] = true
	}
	return &SymbolResolver{
		searcher:  searcher,
		preferred: preferred,
		logger:    logger,
	}
}

// Resolve returns the English name and exchange for ticker, or an error wrapping
// models.ErrNotFound. Search failures are reported as not found and never retried.
func (r *SymbolResolver) Resolve(ctx context.Context, ticker string) (*models.Identity, error) {
	query := strings.ToUpper(strings.TrimSpace(ticker))

	candidates, err := r.searcher.Search(ctx, query)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("ticker", query).
			Str("source", r.searcher.Name()).
			Msg("Symbol search failed")
		return nil, fmt.Errorf("%w: %s (search failed: %v)", models.ErrNotFound, query, err)
	}
	if len(candidates) == 0 {
		r.logger.Info().Str("ticker", query).Msg("Symbol search returned no candidates")
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, query)
	}

	if match, ok := exactMatch(query, candidates); ok {
		r.logger.Debug().
			Str("ticker", query).
			Str("symbol", match.Symbol).
			Str("exchange", match.Exchange).
			Msg("Exact symbol match")
		return identityFrom(query, match), nil
	}

	if !strings.Contains(query, ".") {
		if match, ok := r.prefixMatch(query, candidates); ok {
			r.logger.Debug().
				Str("ticker", query).
				Str("symbol", match.Symbol).
				Str("exchange", match.Exchange).
				Msg("Prefix symbol match")
			return identityFrom(query, match), nil
		}
	}

	r.logger.Info().
		Str("ticker", query).
		Int("candidates", len(candidates)).
		Msg("No symbol match")
	return nil, fmt.Errorf("%w: %s", models.ErrNotFound, query)
}

// exactMatch returns the first candidate whose symbol equals the query and has a name.
func exactMatch(query string, candidates []models.SymbolCandidate) (models.SymbolCandidate, bool) {
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c.Symbol), query) && strings.TrimSpace(c.Name) != "" {
			return c, true
		}
	}
	return models.SymbolCandidate{}, false
}

// prefixMatch considers candidates listed as "<query>.<suffix>". The first one on a preferred
// exchange wins; otherwise the first one found.
func (r *SymbolResolver) prefixMatch(query string, candidates []models.SymbolCandidate) (models.SymbolCandidate, bool) {
	prefix := query + "."

	var first *models.SymbolCandidate
	for i := range candidates {
		c := candidates[i]
		symbol := strings.ToUpper(strings.TrimSpace(c.Symbol))
		if !strings.HasPrefix(symbol, prefix) || strings.TrimSpace(c.Name) == "" {
			continue
		}
		if r.preferred[normalizeExchange(c.Exchange)] {
			return c, true
		}
		if first == nil {
			first = &candidates[i]
		}
	}

	if first == nil {
		return models.SymbolCandidate{}, false
	}
	return *first, true
}

func identityFrom(ticker string, c models.SymbolCandidate) *models.Identity {
	return &models.Identity{
		Ticker:      ticker,
		EnglishName: strings.TrimSpace(c.Name),
		Exchange:    strings.TrimSpace(c.Exchange),
	}
}

func normalizeExchange(exchange string) string {
	return strings.ToUpper(strings.TrimSpace(exchange))
}
