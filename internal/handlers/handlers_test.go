package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/models"
	"github.com/ternarybob/equitylens/internal/services/prompts"
)

// mockAnalysisService implements AnalysisService for testing
type mockAnalysisService struct {
	getOrComputeFunc   func(ctx context.Context, ticker, section string, force bool) (*models.AnalysisResult, error)
	ensureIdentityFunc func(ctx context.Context, ticker string) (*models.StockRecord, error)
	ensureCalls        int
}

func (m *mockAnalysisService) GetOrCompute(ctx context.Context, ticker, section string, force bool) (*models.AnalysisResult, error) {
	if m.getOrComputeFunc != nil {
		return m.getOrComputeFunc(ctx, ticker, section, force)
	}
	return nil, errors.New("not configured")
}

func (m *mockAnalysisService) EnsureIdentity(ctx context.Context, ticker string) (*models.StockRecord, error) {
	m.ensureCalls++
	if m.ensureIdentityFunc != nil {
		return m.ensureIdentityFunc(ctx, ticker)
	}
	return nil, models.ErrNotFound
}

func (m *mockAnalysisService) Today() string {
	return "2025/01/15"
}

type staticSectionNamer struct{}

func (staticSectionNamer) SectionNames() []prompts.SectionName {
	names := make([]prompts.SectionName, 0, len(models.AllSections))
	for _, section := range models.AllSections {
		names = append(names, prompts.SectionName{Section: section, Name: "name-" + section.String()})
	}
	return names
}

func newTestPageHandler(t *testing.T, analysis AnalysisService) *PageHandler {
	t.Helper()
	handler, err := NewPageHandler(analysis, staticSectionNamer{}, "NVDA", "../../pages", arbor.NewLogger())
	require.NoError(t, err)
	return handler
}

func serve(handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeAnalyze(t *testing.T, rec *httptest.ResponseRecorder) AnalyzeResponse {
	t.Helper()
	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAnalyzeHandler_Success(t *testing.T) {
	analysis := &mockAnalysisService{getOrComputeFunc: func(ctx context.Context, ticker, section string, force bool) (*models.AnalysisResult, error) {
		assert.Equal(t, "nvda", ticker)
		assert.Equal(t, "biz", section)
		assert.True(t, force)
		return &models.AnalysisResult{Ticker: "NVDA", Section: models.SectionBusiness, Content: "## 商業模式\n\n| a | b |\n|---|---|\n| 1 | 2 |"}, nil
	}}
	handler := NewAnalyzeHandler(analysis, arbor.NewLogger())

	rec := serve(handler.AnalyzeSectionHandler, "POST", "/analyze/biz", `{"ticker":"nvda","force_update":true}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAnalyze(t, rec)
	assert.True(t, resp.Success)
	assert.False(t, resp.FromCache)
	assert.Contains(t, resp.Report, "<h2>商業模式</h2>")
	assert.Contains(t, resp.Report, "<table>")
}

func TestAnalyzeHandler_FromCache(t *testing.T) {
	analysis := &mockAnalysisService{getOrComputeFunc: func(ctx context.Context, ticker, section string, force bool) (*models.AnalysisResult, error) {
		assert.False(t, force)
		return &models.AnalysisResult{Content: "cached", FromCache: true}, nil
	}}
	handler := NewAnalyzeHandler(analysis, arbor.NewLogger())

	rec := serve(handler.AnalyzeSectionHandler, "POST", "/analyze/finance", `{"ticker":"NVDA"}`)

	resp := decodeAnalyze(t, rec)
	assert.True(t, resp.Success)
	assert.True(t, resp.FromCache)
}

func TestAnalyzeHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"invalid section", "/analyze/ta_option", `{"ticker":"NVDA"}`, nil, http.StatusBadRequest, "ta_option"},
		{"missing ticker", "/analyze/biz", `{}`, nil, http.StatusBadRequest, "invalid request"},
		{"bad json", "/analyze/biz", `{"ticker":`, nil, http.StatusBadRequest, "invalid JSON"},
		{"not found", "/analyze/biz", `{"ticker":"700"}`, models.ErrNotFound, http.StatusOK, "找不到 0700.HK 的資料"},
		{"invalid ticker", "/analyze/biz", `{"ticker":" "}`, models.ErrInvalidTicker, http.StatusBadRequest, "invalid ticker"},
		{"storage failure", "/analyze/biz", `{"ticker":"NVDA"}`, models.NewStorageError("save_section", "NVDA", errors.New("disk full")), http.StatusInternalServerError, "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := &mockAnalysisService{getOrComputeFunc: func(ctx context.Context, ticker, section string, force bool) (*models.AnalysisResult, error) {
				return nil, tt.err
			}}
			handler := NewAnalyzeHandler(analysis, arbor.NewLogger())

			rec := serve(handler.AnalyzeSectionHandler, "POST", tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeAnalyze(t, rec)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.wantError)
		})
	}
}

func TestAnalyzeHandler_MethodNotAllowed(t *testing.T) {
	handler := NewAnalyzeHandler(&mockAnalysisService{}, arbor.NewLogger())
	rec := serve(handler.AnalyzeSectionHandler, "GET", "/analyze/biz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPageHandler_RootRedirects(t *testing.T) {
	handler := newTestPageHandler(t, &mockAnalysisService{})

	rec := serve(handler.ServeRoot, "GET", "/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/NVDA", rec.Header().Get("Location"))

	rec = serve(handler.ServeRoot, "GET", "/?ticker=700", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/0700.HK", rec.Header().Get("Location"))
}

func TestPageHandler_ReservedPaths(t *testing.T) {
	analysis := &mockAnalysisService{}
	handler := newTestPageHandler(t, analysis)

	for _, path := range []string{"/favicon.ico", "/robots.txt", "/sitemap.xml", "/a/b"} {
		rec := serve(handler.ServeRoot, "GET", path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Equal(t, 0, analysis.ensureCalls, "reserved paths never resolve")
}

func TestPageHandler_CanonicalRedirect(t *testing.T) {
	handler := newTestPageHandler(t, &mockAnalysisService{})

	rec := serve(handler.ServeRoot, "GET", "/700", "")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/0700.HK", rec.Header().Get("Location"))
}

func TestPageHandler_RendersStock(t *testing.T) {
	analysis := &mockAnalysisService{ensureIdentityFunc: func(ctx context.Context, ticker string) (*models.StockRecord, error) {
		assert.Equal(t, "NVDA", ticker)
		return &models.StockRecord{
			Ticker:        "NVDA",
			EnglishName:   "NVIDIA Corporation",
			LocalizedName: "NVIDIA Corporation",
			Exchange:      "NASDAQ",
			Sections:      map[models.Section]string{models.SectionFinance: "## 財務分析"},
		}, nil
	}}
	handler := newTestPageHandler(t, analysis)

	// Lower-case input upper-cases to the canonical form, so no redirect
	rec := serve(handler.ServeRoot, "GET", "/nvda", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "NVIDIA Corporation")
	assert.Contains(t, body, "2025/01/15")
	assert.Contains(t, body, "name-biz")
	assert.Contains(t, body, "<h2>財務分析</h2>")
	assert.Equal(t, len(metricKeys), strings.Count(body, "<br>-</div>"))
}

func TestPageHandler_NotFound(t *testing.T) {
	handler := newTestPageHandler(t, &mockAnalysisService{})

	rec := serve(handler.ServeRoot, "GET", "/ZZZZ", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "找不到 ZZZZ 的資料")
}

func TestPageHandler_StorageFailure(t *testing.T) {
	analysis := &mockAnalysisService{ensureIdentityFunc: func(ctx context.Context, ticker string) (*models.StockRecord, error) {
		return nil, models.NewStorageError("get", ticker, errors.New("locked"))
	}}
	handler := newTestPageHandler(t, analysis)

	rec := serve(handler.ServeRoot, "GET", "/NVDA", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPIHandler_Health(t *testing.T) {
	handler := NewAPIHandler(arbor.NewLogger())

	rec := serve(handler.HealthHandler, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, common.GetVersion(), body["version"])
}
