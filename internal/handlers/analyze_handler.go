package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/models"
	"github.com/ternarybob/equitylens/internal/render"
)

// AnalyzeRequest is the body of POST /analyze/{section}
type AnalyzeRequest struct {
	Ticker      string `json:"ticker" validate:"required,max=32"`
	ForceUpdate bool   `json:"force_update"`
}

// AnalyzeResponse carries the rendered report, or an error message when Success is false
type AnalyzeResponse struct {
	Success   bool   `json:"success"`
	Report    string `json:"report,omitempty"`
	FromCache bool   `json:"from_cache"`
	Degraded  bool   `json:"degraded,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AnalyzeHandler serves section reports to the page's JavaScript
type AnalyzeHandler struct {
	analysis AnalysisService
	logger   arbor.ILogger
}

func NewAnalyzeHandler(analysis AnalysisService, logger arbor.ILogger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysis: analysis,
		logger:   logger,
	}
}

// AnalyzeSectionHandler handles POST /analyze/{section}
func (h *AnalyzeHandler) AnalyzeSectionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	section := strings.Trim(strings.TrimPrefix(r.URL.Path, "/analyze/"), "/")
	if _, err := models.ParseSection(section); err != nil {
		WriteJSON(w, http.StatusBadRequest, AnalyzeResponse{Error: fmt.Sprintf("未知的分析類別: %s", section)})
		return
	}

	var req AnalyzeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteJSON(w, http.StatusBadRequest, AnalyzeResponse{Error: err.Error()})
		return
	}

	result, err := h.analysis.GetOrCompute(r.Context(), req.Ticker, section, req.ForceUpdate)
	if err != nil {
		h.writeAnalyzeError(w, req.Ticker, section, err)
		return
	}

	report, err := render.Markdown(result.Content)
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", result.Ticker).Str("section", section).Msg("Failed to render report")
		WriteJSON(w, http.StatusInternalServerError, AnalyzeResponse{Error: "failed to render report"})
		return
	}

	WriteJSON(w, http.StatusOK, AnalyzeResponse{
		Success:   true,
		Report:    string(report),
		FromCache: result.FromCache,
		Degraded:  result.Degraded,
	})
}

func (h *AnalyzeHandler) writeAnalyzeError(w http.ResponseWriter, ticker, section string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		// Not found is an expected outcome for the page, not an HTTP failure
		WriteJSON(w, http.StatusOK, AnalyzeResponse{Error: fmt.Sprintf("找不到 %s 的資料", common.NormalizeTicker(ticker))})
	case errors.Is(err, models.ErrInvalidSection), errors.Is(err, models.ErrInvalidTicker):
		WriteJSON(w, http.StatusBadRequest, AnalyzeResponse{Error: err.Error()})
	default:
		h.logger.Error().Err(err).Str("ticker", ticker).Str("section", section).Msg("Section analysis failed")
		WriteJSON(w, http.StatusInternalServerError, AnalyzeResponse{Error: err.Error()})
	}
}
