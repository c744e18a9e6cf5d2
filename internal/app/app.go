package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/fmp"
	"github.com/ternarybob/equitylens/internal/handlers"
	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/services/analysis"
	"github.com/ternarybob/equitylens/internal/services/llm"
	"github.com/ternarybob/equitylens/internal/services/prompts"
	"github.com/ternarybob/equitylens/internal/services/resolver"
	"github.com/ternarybob/equitylens/internal/services/warmup"
	"github.com/ternarybob/equitylens/internal/stockcodes"
	"github.com/ternarybob/equitylens/internal/storage"
)

// pagesDir is resolved relative to the executable, then the working directory
const pagesDir = "./pages"

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	Store interfaces.CacheStore

	// Resolution and generation
	Searcher       interfaces.SymbolSearcher
	SymbolResolver *resolver.SymbolResolver
	NameResolver   *resolver.LocalizedNameResolver
	Generator      *llm.RetryingGenerator
	Prompts        *prompts.Manager
	Orchestrator   *analysis.Orchestrator

	// Background
	Warmup *warmup.Scheduler

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	AnalyzeHandler *handlers.AnalyzeHandler
	TickersHandler *handlers.TickersHandler
	PageHandler    *handlers.PageHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	if err := app.Warmup.Start(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to start warmup scheduler: %w", err)
	}

	logger.Info().
		Str("storage", cfg.Storage.Type).
		Str("symbol_source", app.Searcher.Name()).
		Str("provider", app.Generator.Provider()).
		Bool("warmup_enabled", cfg.Warmup.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// NewServices initializes storage and services without HTTP handlers.
// Used by the admin CLI.
func NewServices(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return app, nil
}

// initStorage opens the configured cache backend
func (a *App) initStorage() error {
	store, err := storage.NewCacheStore(a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.Store = store
	return nil
}

// initServices initializes services in dependency order:
// searcher -> symbol resolver -> generator -> name resolver -> prompts -> orchestrator -> warmup
func (a *App) initServices() error {
	searcher, err := a.newSearcher()
	if err != nil {
		return err
	}
	a.Searcher = searcher
	a.SymbolResolver = resolver.NewSymbolResolver(searcher, a.Config.Resolver.PreferredExchanges, a.Logger)

	a.Generator, err = llm.NewGenerator(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create text generator: %w", err)
	}
	a.NameResolver = resolver.NewLocalizedNameResolver(a.Generator, a.Config.Resolver.DomesticExchanges, a.Logger)

	a.Prompts, err = prompts.NewManager(a.Config.Prompts.Path, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	a.Orchestrator = analysis.NewOrchestrator(
		a.Store,
		a.SymbolResolver,
		a.NameResolver,
		a.Prompts,
		a.Generator,
		a.Logger,
	)

	a.Warmup = warmup.NewScheduler(a.Orchestrator, a.Config.Warmup, a.Logger)

	return nil
}

// newSearcher builds the symbol search chain from [resolver] sources, in order
func (a *App) newSearcher() (interfaces.SymbolSearcher, error) {
	var searchers []interfaces.SymbolSearcher

	for _, source := range a.Config.Resolver.Sources {
		switch source {
		case "fmp":
			if a.Config.FMP.APIKey == "" {
				a.Logger.Warn().Msg("FMP API key not set, symbol search will find nothing")
			}
			searchers = append(searchers, fmp.NewClientFromConfig(&a.Config.FMP, a.Logger))
		case "stock_codes":
			directory, err := stockcodes.Load(a.Config.StockCodes.Dir, a.Logger)
			if err != nil {
				return nil, fmt.Errorf("failed to load stock codes: %w", err)
			}
			searchers = append(searchers, directory)
		default:
			return nil, fmt.Errorf("unsupported symbol source: %s", source)
		}
	}

	switch len(searchers) {
	case 0:
		return nil, fmt.Errorf("no symbol sources configured")
	case 1:
		return searchers[0], nil
	default:
		return resolver.NewChainSearcher(a.Logger, searchers...), nil
	}
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.AnalyzeHandler = handlers.NewAnalyzeHandler(a.Orchestrator, a.Logger)
	a.TickersHandler = handlers.NewTickersHandler(a.Store, a.Logger)

	pageHandler, err := handlers.NewPageHandler(a.Orchestrator, a.Prompts, a.Config.DefaultTicker, pagesDir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create page handler: %w", err)
	}
	a.PageHandler = pageHandler

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.Warmup != nil {
		a.Warmup.Stop()
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
