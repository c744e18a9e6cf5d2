// Package analysis coordinates ticker resolution, the section cache and report generation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/models"
	"github.com/ternarybob/equitylens/internal/services/llm"
)

// DateLayout is the date format substituted for {today} in prompts and shown on pages
const DateLayout = "2006/01/02"

// Orchestrator serves section reports from the cache and computes them on a miss.
// At most one computation runs per (ticker, section) at a time.
type Orchestrator struct {
	store     interfaces.CacheStore
	symbols   interfaces.SymbolResolver
	names     interfaces.LocalizedNameResolver
	prompts   interfaces.PromptBuilder
	generator interfaces.ReportGenerator
	locks     *common.KeyedMutex
	logger    arbor.ILogger
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator. generator applies the retry and
// placeholder policy (llm.RetryingGenerator).
func NewOrchestrator(
	store interfaces.CacheStore,
	symbols interfaces.SymbolResolver,
	names interfaces.LocalizedNameResolver,
	prompts interfaces.PromptBuilder,
	generator interfaces.ReportGenerator,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		symbols:   symbols,
		names:     names,
		prompts:   prompts,
		generator: generator,
		locks:     common.NewKeyedMutex(),
		logger:    logger,
		now:       time.Now,
	}
}

// Today returns the current date in DateLayout
func (o *Orchestrator) Today() string {
	return o.now().Format(DateLayout)
}

// GetOrCompute returns the report for one section of a ticker. A cached report is
// returned unless forceRefresh is set. A caller waiting on another request's generation
// gives up when ctx is done; generation itself runs detached from ctx cancellation so
// an abandoned request still fills the cache.
func (o *Orchestrator) GetOrCompute(ctx context.Context, rawTicker, rawSection string, forceRefresh bool) (*models.AnalysisResult, error) {
	ticker := common.NormalizeTicker(rawTicker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", models.ErrInvalidTicker)
	}

	section, err := models.ParseSection(rawSection)
	if err != nil {
		return nil, err
	}

	if !forceRefresh {
		if result, err := o.cached(ctx, ticker, section); result != nil || err != nil {
			return result, err
		}
	}

	unlock, err := o.locks.LockContext(ctx, ticker+"|"+section.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Another request may have filled the cache while we waited
	if !forceRefresh {
		if result, err := o.cached(ctx, ticker, section); result != nil || err != nil {
			return result, err
		}
	}

	return o.compute(context.WithoutCancel(ctx), ticker, section)
}

// cached returns (nil, nil) on a miss
func (o *Orchestrator) cached(ctx context.Context, ticker string, section models.Section) (*models.AnalysisResult, error) {
	content, err := o.store.GetSection(ctx, ticker, section)
	if errors.Is(err, models.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	o.logger.Debug().Str("ticker", ticker).Str("section", section.String()).Msg("Section served from cache")
	return &models.AnalysisResult{
		Ticker:    ticker,
		Section:   section,
		Content:   content,
		FromCache: true,
	}, nil
}

func (o *Orchestrator) compute(ctx context.Context, ticker string, section models.Section) (*models.AnalysisResult, error) {
	start := o.now()

	identity, err := o.ResolveIdentity(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if err := o.store.SaveIdentity(ctx, identity.Ticker, identity.EnglishName, identity.LocalizedName, identity.Exchange); err != nil {
		return nil, err
	}

	prompt, err := o.prompts.Build(section, *identity, o.Today())
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	o.logger.Info().
		Str("ticker", ticker).
		Str("section", section.String()).
		Str("provider", o.generator.Provider()).
		Msg("Generating section report")

	generation := o.generator.GenerateReport(ctx, prompt, interfaces.GenerateOptions{Search: true})
	content := generation.Text

	result := &models.AnalysisResult{
		Ticker:   ticker,
		Section:  section,
		Content:  content,
		Degraded: generation.Degraded,
	}

	// Placeholder text is shown once but never replaces a good cached report
	if result.Degraded {
		o.logger.Warn().
			Str("ticker", ticker).
			Str("section", section.String()).
			Str("content", content).
			Msg("Generation degraded, result not cached")
		return result, nil
	}

	if err := o.store.SaveSection(ctx, ticker, section, content); err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("ticker", ticker).
		Str("section", section.String()).
		Int("bytes", len(content)).
		Dur("duration", o.now().Sub(start)).
		Msg("Section report generated and cached")

	return result, nil
}

// ResolveIdentity runs symbol resolution and localized-name lookup for a canonical
// ticker. A placeholder localized name is replaced by the English name.
func (o *Orchestrator) ResolveIdentity(ctx context.Context, ticker string) (*models.Identity, error) {
	identity, err := o.symbols.Resolve(ctx, ticker)
	if err != nil {
		return nil, err
	}

	localized := o.names.Resolve(ctx, identity.EnglishName, ticker, identity.Exchange)
	if localized == "" || llm.IsPlaceholder(localized) {
		if localized != "" {
			o.logger.Warn().Str("ticker", ticker).Str("result", localized).Msg("Localized name unavailable, using English name")
		}
		localized = identity.EnglishName
	}

	return &models.Identity{
		Ticker:        ticker,
		EnglishName:   identity.EnglishName,
		LocalizedName: localized,
		Exchange:      identity.Exchange,
	}, nil
}

// EnsureIdentity returns the cached record for a ticker, resolving and saving the
// identity first when the ticker has never been seen.
func (o *Orchestrator) EnsureIdentity(ctx context.Context, rawTicker string) (*models.StockRecord, error) {
	ticker := common.NormalizeTicker(rawTicker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", models.ErrInvalidTicker)
	}

	record, err := o.store.Get(ctx, ticker)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, models.ErrRecordNotFound) {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	identity, err := o.ResolveIdentity(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if err := o.store.SaveIdentity(ctx, identity.Ticker, identity.EnglishName, identity.LocalizedName, identity.Exchange); err != nil {
		return nil, err
	}

	return o.store.Get(ctx, ticker)
}
