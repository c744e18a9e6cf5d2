package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/models"
)

// ChainSearcher tries each searcher in order and returns the first non-empty result.
// An error is returned only when every searcher failed.
type ChainSearcher struct {
	searchers []interfaces.SymbolSearcher
	logger    arbor.ILogger
}

// NewChainSearcher creates a searcher over the given sources
func NewChainSearcher(logger arbor.ILogger, searchers ...interfaces.SymbolSearcher) *ChainSearcher {
	return &ChainSearcher{searchers: searchers, logger: logger}
}

func (c *ChainSearcher) Name() string {
	names := make([]string, 0, len(c.searchers))
	for _, s := range c.searchers {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

func (c *ChainSearcher) Search(ctx context.Context, query string) ([]models.SymbolCandidate, error) {
	var errs []error
	for _, s := range c.searchers {
		candidates, err := s.Search(ctx, query)
		if err != nil {
			c.logger.Debug().Err(err).Str("source", s.Name()).Str("query", query).Msg("Symbol source failed, trying next")
			errs = append(errs, err)
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}

	if len(errs) == len(c.searchers) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}
