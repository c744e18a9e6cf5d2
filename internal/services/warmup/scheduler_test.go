package warmup

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/models"
)

type call struct {
	ticker  string
	section string
	force   bool
}

type mockComputer struct {
	mu    sync.Mutex
	calls []call
	fn    func(ticker, section string) (*models.AnalysisResult, error)
}

func (m *mockComputer) GetOrCompute(ctx context.Context, ticker, section string, forceRefresh bool) (*models.AnalysisResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call{ticker, section, forceRefresh})
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(ticker, section)
	}
	return &models.AnalysisResult{Ticker: ticker, Section: models.Section(section)}, nil
}

func TestRunOnce_VisitsEveryPair(t *testing.T) {
	computer := &mockComputer{}
	scheduler := NewScheduler(computer, common.WarmupConfig{
		Tickers:  []string{"NVDA", "0700.HK"},
		Sections: []string{"biz", "finance"},
		Force:    true,
	}, arbor.NewLogger())

	summary := scheduler.RunOnce(context.Background())

	assert.Equal(t, 4, summary.Generated)
	assert.Equal(t, []call{
		{"NVDA", "biz", true},
		{"NVDA", "finance", true},
		{"0700.HK", "biz", true},
		{"0700.HK", "finance", true},
	}, computer.calls)
}

func TestRunOnce_DefaultsToAllSections(t *testing.T) {
	computer := &mockComputer{}
	scheduler := NewScheduler(computer, common.WarmupConfig{Tickers: []string{"NVDA"}}, arbor.NewLogger())

	scheduler.RunOnce(context.Background())
	assert.Len(t, computer.calls, len(models.AllSections))
}

func TestRunOnce_FailuresDoNotStopPass(t *testing.T) {
	computer := &mockComputer{fn: func(ticker, section string) (*models.AnalysisResult, error) {
		switch ticker {
		case "BAD":
			return nil, models.ErrNotFound
		case "CACHED":
			return &models.AnalysisResult{FromCache: true}, nil
		case "FLAKY":
			return &models.AnalysisResult{Degraded: true}, nil
		}
		return nil, errors.New("unexpected")
	}}
	scheduler := NewScheduler(computer, common.WarmupConfig{
		Tickers:  []string{"BAD", "CACHED", "FLAKY"},
		Sections: []string{"biz"},
	}, arbor.NewLogger())

	summary := scheduler.RunOnce(context.Background())
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Cached)
	assert.Equal(t, 1, summary.Degraded)
	assert.Len(t, computer.calls, 3)
}

func TestRunOnce_StopsOnCancel(t *testing.T) {
	computer := &mockComputer{}
	scheduler := NewScheduler(computer, common.WarmupConfig{Tickers: []string{"NVDA"}}, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scheduler.RunOnce(ctx)
	assert.Empty(t, computer.calls)
}

func TestStart(t *testing.T) {
	disabled := NewScheduler(&mockComputer{}, common.WarmupConfig{Enabled: false, Schedule: "not cron"}, arbor.NewLogger())
	assert.NoError(t, disabled.Start())
	disabled.Stop()

	invalid := NewScheduler(&mockComputer{}, common.WarmupConfig{Enabled: true, Schedule: "not cron"}, arbor.NewLogger())
	assert.Error(t, invalid.Start())

	valid := NewScheduler(&mockComputer{}, common.WarmupConfig{Enabled: true, Schedule: "0 6 * * 1-5"}, arbor.NewLogger())
	require.NoError(t, valid.Start())
	valid.Stop()
}
