package handlers

import (
	"context"

	"github.com/ternarybob/equitylens/internal/models"
	"github.com/ternarybob/equitylens/internal/services/prompts"
)

// AnalysisService is the orchestrator surface the handlers use; satisfied by *analysis.Orchestrator.
type AnalysisService interface {
	GetOrCompute(ctx context.Context, ticker, section string, forceRefresh bool) (*models.AnalysisResult, error)
	EnsureIdentity(ctx context.Context, ticker string) (*models.StockRecord, error)
	Today() string
}

// SectionNamer supplies section display names; satisfied by *prompts.Manager.
type SectionNamer interface {
	SectionNames() []prompts.SectionName
}
