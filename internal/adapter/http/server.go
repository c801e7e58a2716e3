// Package http serves rendered charts together with health, readiness, and
// metrics endpoints.
package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the chart gallery plus /healthz, /readyz, and /metrics.
type Server struct {
	httpServer *http.Server
	gallery    *Gallery
	logger     *slog.Logger
}

// NewServer creates an HTTP server with chart, health, readiness, and metrics routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, gallery *Gallery, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		gallery: gallery,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /charts", s.handleIndex)
	mux.HandleFunc("GET /charts/{name}", s.handleChart)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type chartEntry struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Bytes       int       `json:"bytes"`
	RenderedAt  time.Time `json:"rendered_at"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	names := s.gallery.Names()
	entries := make([]chartEntry, 0, len(names))
	for _, name := range names {
		a, ok := s.gallery.Get(name)
		if !ok {
			continue
		}
		entries = append(entries, chartEntry{
			Name:        a.Name,
			URL:         "/charts/" + a.Name,
			ContentType: a.ContentType,
			Bytes:       len(a.Data),
			RenderedAt:  a.RenderedAt,
		})
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"charts": entries})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	a, ok := s.gallery.Get(r.PathValue("name"))
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "chart not found"})
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	http.ServeContent(w, r, a.Name, a.RenderedAt, bytes.NewReader(a.Data))
}
