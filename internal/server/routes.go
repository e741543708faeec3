package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Report pipeline
	mux.HandleFunc("/webhook/market-report", s.app.WebhookHandler.MarketReportHandler) // POST
	mux.HandleFunc("/scrape", s.app.WebhookHandler.ScrapeHandler)                      // POST - known report URL

	// Diagnostics
	mux.HandleFunc("/test-ai", s.app.AnalysisHandler.TestAIHandler) // POST - analysis only
	mux.HandleFunc("/health", s.app.StatusHandler.HealthHandler)    // GET
	mux.HandleFunc("/status", s.app.StatusHandler.GetStatusHandler) // GET - scheduled jobs

	// Run history
	mux.HandleFunc("/runs", s.handleRunsRoute)  // GET ?limit=N&status=S
	mux.HandleFunc("/runs/", s.handleRunsRoute) // GET /{id}

	mux.HandleFunc("/", s.handleRoot)

	return mux
}

// handleRunsRoute routes the run history list and item endpoints
func (s *Server) handleRunsRoute(w http.ResponseWriter, r *http.Request) {
	if s.app.RunsHandler == nil {
		historyDisabled(w, r)
		return
	}

	if r.URL.Path == "/runs" || r.URL.Path == "/runs/" {
		RouteByMethod(w, r, MethodRouter{
			http.MethodGet: s.app.RunsHandler.ListRunsHandler,
		})
		return
	}

	RouteByMethod(w, r, MethodRouter{
		http.MethodGet: s.app.RunsHandler.GetRunHandler,
	})
}

// handleRoot serves the health document at "/" and 404 elsewhere
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFound(w, r)
		return
	}
	s.app.StatusHandler.HealthHandler(w, r)
}
