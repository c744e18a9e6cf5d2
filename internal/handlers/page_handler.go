package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/models"
	"github.com/ternarybob/equitylens/internal/render"
)

// reservedPaths are answered with 404 before any ticker resolution
var reservedPaths = map[string]bool{
	"favicon.ico": true,
	"robots.txt":  true,
	"sitemap.xml": true,
}

// metricKeys are shown as placeholders; financial metrics are not computed
var metricKeys = []string{"eps", "pe", "yield", "short", "cap", "vol"}

// SectionView is one section block on the stock page
type SectionView struct {
	Key    string
	Name   string
	HTML   template.HTML
	Cached bool
}

// StockPage is the template data for index.html
type StockPage struct {
	Ticker      string
	StockName   string
	ChineseName string
	Exchange    string
	Date        string
	Metrics     map[string]string
	Sections    []SectionView
	Version     string
}

type PageHandler struct {
	analysis      AnalysisService
	sections      SectionNamer
	defaultTicker string
	templates     *template.Template
	logger        arbor.ILogger
}

// NewPageHandler parses the page templates in pagesDir. An empty pagesDir searches
// the usual locations relative to the working directory.
func NewPageHandler(analysis AnalysisService, sections SectionNamer, defaultTicker, pagesDir string, logger arbor.ILogger) (*PageHandler, error) {
	if pagesDir == "" {
		pagesDir = findPagesDir()
	}

	templates, err := template.ParseGlob(filepath.Join(pagesDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates in %s: %w", pagesDir, err)
	}

	return &PageHandler{
		analysis:      analysis,
		sections:      sections,
		defaultTicker: defaultTicker,
		templates:     templates,
		logger:        logger,
	}, nil
}

// findPagesDir locates the pages directory
func findPagesDir() string {
	dirs := []string{
		"./pages",     // Running from project root
		"../pages",    // Running from bin/
		"../../pages", // Running from deeper location
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); err == nil {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

// ServeRoot handles "/" and every "/{ticker}" path
func (h *PageHandler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/")

	if raw == "" {
		target := h.defaultTicker
		if q := strings.TrimSpace(r.URL.Query().Get("ticker")); q != "" {
			target = common.NormalizeTicker(q)
		}
		http.Redirect(w, r, "/"+url.PathEscape(target), http.StatusFound)
		return
	}

	if reservedPaths[strings.ToLower(raw)] || strings.Contains(raw, "/") {
		http.NotFound(w, r)
		return
	}

	ticker := common.NormalizeTicker(raw)
	if ticker != strings.ToUpper(strings.TrimSpace(raw)) {
		http.Redirect(w, r, "/"+url.PathEscape(ticker), http.StatusMovedPermanently)
		return
	}

	h.serveStock(w, r, raw, ticker)
}

func (h *PageHandler) serveStock(w http.ResponseWriter, r *http.Request, raw, ticker string) {
	record, err := h.analysis.EnsureIdentity(r.Context(), ticker)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidTicker) {
			h.renderError(w, http.StatusNotFound, raw)
			return
		}
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to load stock page")
		h.renderError(w, http.StatusInternalServerError, raw)
		return
	}

	page := StockPage{
		Ticker:      record.Ticker,
		StockName:   record.EnglishName,
		ChineseName: record.LocalizedName,
		Exchange:    record.Exchange,
		Date:        h.analysis.Today(),
		Metrics:     make(map[string]string, len(metricKeys)),
		Version:     common.GetVersion(),
	}
	for _, key := range metricKeys {
		page.Metrics[key] = "-"
	}

	for _, name := range h.sections.SectionNames() {
		view := SectionView{Key: name.Section.String(), Name: name.Name}
		if content, ok := record.Section(name.Section); ok {
			html, err := render.Markdown(content)
			if err != nil {
				h.logger.Warn().Err(err).Str("ticker", ticker).Str("section", view.Key).Msg("Failed to render cached section")
			} else {
				view.HTML = html
				view.Cached = true
			}
		}
		page.Sections = append(page.Sections, view)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index.html", page); err != nil {
		h.logger.Error().Err(err).Str("template", "index.html").Msg("Failed to render page")
	}
}

func (h *PageHandler) renderError(w http.ResponseWriter, status int, ticker string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	data := map[string]interface{}{
		"Ticker": ticker,
		"Date":   h.analysis.Today(),
		"Status": status,
	}
	if err := h.templates.ExecuteTemplate(w, "error.html", data); err != nil {
		h.logger.Error().Err(err).Str("template", "error.html").Msg("Failed to render page")
	}
}
