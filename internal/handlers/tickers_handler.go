package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/models"
)

// TickersHandler exposes administrative access to the cache
type TickersHandler struct {
	store  interfaces.CacheStore
	logger arbor.ILogger
}

func NewTickersHandler(store interfaces.CacheStore, logger arbor.ILogger) *TickersHandler {
	return &TickersHandler{
		store:  store,
		logger: logger,
	}
}

// ListHandler handles GET /api/tickers
func (h *TickersHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	tickers, err := h.store.ListTickers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list tickers")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tickers": tickers,
		"count":   len(tickers),
	})
}

// GetHandler handles GET /api/tickers/{ticker}
func (h *TickersHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	ticker := tickerFromPath(r.URL.Path)
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	record, err := h.store.Get(r.Context(), ticker)
	if errors.Is(err, models.ErrRecordNotFound) {
		WriteError(w, http.StatusNotFound, "ticker not cached: "+ticker)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to load ticker")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sections := make([]string, 0, len(record.Sections))
	for _, section := range models.AllSections {
		if _, ok := record.Section(section); ok {
			sections = append(sections, section.String())
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":       record.Ticker,
		"stock_name":   record.EnglishName,
		"chinese_name": record.LocalizedName,
		"exchange":     record.Exchange,
		"sections":     sections,
		"created_at":   record.CreatedAt,
		"updated_at":   record.UpdatedAt,
	})
}

// DeleteHandler handles DELETE /api/tickers/{ticker}
func (h *TickersHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	ticker := tickerFromPath(r.URL.Path)
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	err := h.store.DeleteTicker(r.Context(), ticker)
	if errors.Is(err, models.ErrRecordNotFound) {
		WriteError(w, http.StatusNotFound, "ticker not cached: "+ticker)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to delete ticker")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info().Str("ticker", ticker).Msg("Ticker removed from cache")
	WriteSuccess(w, "deleted "+ticker)
}

// tickerFromPath extracts and normalizes {ticker} from /api/tickers/{ticker}
func tickerFromPath(path string) string {
	raw := strings.Trim(strings.TrimPrefix(path, "/api/tickers/"), "/")
	return common.NormalizeTicker(raw)
}
