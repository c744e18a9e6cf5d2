package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Stock pages: "/" redirects to the default ticker, "/{ticker}" renders
	mux.HandleFunc("/", s.app.PageHandler.ServeRoot)

	// Section reports (page JavaScript)
	mux.HandleFunc("/analyze/", s.app.AnalyzeHandler.AnalyzeSectionHandler) // POST /analyze/{section}

	// API routes - Cache administration
	mux.HandleFunc("/api/tickers", s.app.TickersHandler.ListHandler) // GET
	mux.HandleFunc("/api/tickers/", s.handleTickerRoutes)            // GET/DELETE /{ticker}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleTickerRoutes routes /api/tickers/{ticker} by method
func (s *Server) handleTickerRoutes(w http.ResponseWriter, r *http.Request) {
	methodRoutes{
		http.MethodGet:    s.app.TickersHandler.GetHandler,
		http.MethodDelete: s.app.TickersHandler.DeleteHandler,
	}.dispatch(w, r)
}
