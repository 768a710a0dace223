// Package http exposes the presentation API: the aggregate summary, the
// merged transaction feed and the record edit operations. The identity
// collaborator is stood in by the X-Owner-ID header.
package http

import (
	"net/http"
	"time"

	"carteira/internal/cache"
	"carteira/internal/log"
	"carteira/internal/session"
)

type Server struct {
	manager *session.Manager
	summary *cache.LRUCache[summaryResponse]
	logger  *log.Logger
}

// Config carries the HTTP layer tunables.
type Config struct {
	Addr             string
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
}

// NewServer builds the API server with logging middleware and sensible
// timeouts.
func NewServer(cfg Config, manager *session.Manager, logger *log.Logger) *http.Server {
	s := &Server{
		manager: manager,
		summary: cache.NewLRUCache[summaryResponse](cfg.SummaryCacheSize, cfg.SummaryCacheTTL),
		logger:  logger.WithComponent(log.ComponentHTTP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session/login", s.handleLogin)
	mux.HandleFunc("POST /api/session/logout", s.handleLogout)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/feed", s.handleFeed)
	mux.HandleFunc("POST /api/feed/more", s.handleLoadMore)
	mux.HandleFunc("POST /api/records", s.handleCreate)
	mux.HandleFunc("PATCH /api/records/{kind}/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/records/{kind}/{id}", s.handleDelete)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      log.Middleware(logger)(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
