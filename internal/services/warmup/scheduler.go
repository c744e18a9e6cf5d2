// Package warmup pre-computes section reports for a configured watchlist on a cron schedule.
package warmup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/models"
)

// Computer produces section reports; satisfied by *analysis.Orchestrator
type Computer interface {
	GetOrCompute(ctx context.Context, ticker, section string, forceRefresh bool) (*models.AnalysisResult, error)
}

// RunSummary counts the outcome of one warmup pass
type RunSummary struct {
	Cached    int
	Generated int
	Degraded  int
	Failed    int
	Duration  time.Duration
}

// Scheduler runs warmup passes. Passes never overlap; a tick that fires while a
// pass is still running is skipped.
type Scheduler struct {
	computer Computer
	config   common.WarmupConfig
	cron     *cron.Cron
	logger   arbor.ILogger

	mu      sync.Mutex
	running bool
	started bool
}

// NewScheduler creates a scheduler from the [warmup] section
func NewScheduler(computer Computer, config common.WarmupConfig, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		computer: computer,
		config:   config,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers the cron job. It is a no-op when warmup is disabled.
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Debug().Msg("Warmup disabled")
		return nil
	}

	if err := common.ValidateSchedule(s.config.Schedule); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("failed to add warmup job: %w", err)
	}

	s.cron.Start()
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Strs("tickers", s.config.Tickers).
		Int("sections", len(s.sections())).
		Bool("force", s.config.Force).
		Msg("Warmup scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	if !started {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Warmup scheduler stopped")
}

func (s *Scheduler) sections() []string {
	if len(s.config.Sections) > 0 {
		return s.config.Sections
	}
	sections := make([]string, 0, len(models.AllSections))
	for _, section := range models.AllSections {
		sections = append(sections, section.String())
	}
	return sections
}

// RunOnce computes every configured (ticker, section) sequentially. Failures are
// logged and counted; they do not stop the pass.
func (s *Scheduler) RunOnce(ctx context.Context) RunSummary {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Warmup pass already running, skipping")
		return RunSummary{}
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	var summary RunSummary

	for _, ticker := range s.config.Tickers {
		for _, section := range s.sections() {
			if ctx.Err() != nil {
				summary.Duration = time.Since(start)
				return summary
			}

			result, err := s.computer.GetOrCompute(ctx, ticker, section, s.config.Force)
			switch {
			case err != nil:
				summary.Failed++
				s.logger.Warn().Err(err).Str("ticker", ticker).Str("section", section).Msg("Warmup failed")
			case result.FromCache:
				summary.Cached++
			case result.Degraded:
				summary.Degraded++
			default:
				summary.Generated++
			}
		}
	}

	summary.Duration = time.Since(start)
	s.logger.Info().
		Int("cached", summary.Cached).
		Int("generated", summary.Generated).
		Int("degraded", summary.Degraded).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Warmup pass complete")

	return summary
}
