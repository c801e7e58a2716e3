package http

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/couchcryptid/covid-data-tracker/internal/domain"
)

// Gallery keeps the latest artifact of each name in memory for the server.
// It implements pipeline.Display.
type Gallery struct {
	mu        sync.RWMutex
	artifacts map[string]domain.Artifact
	baseURL   string
	logger    *slog.Logger
}

// NewGallery creates an empty gallery. baseURL is only used in log lines.
func NewGallery(baseURL string, logger *slog.Logger) *Gallery {
	return &Gallery{
		artifacts: make(map[string]domain.Artifact),
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Show publishes the artifact, replacing any earlier one of the same name.
func (g *Gallery) Show(_ context.Context, a domain.Artifact) error {
	g.mu.Lock()
	g.artifacts[a.Name] = a
	g.mu.Unlock()

	g.logger.Info("chart available", "url", g.baseURL+"/charts/"+a.Name)
	return nil
}

// Get returns the named artifact.
func (g *Gallery) Get(name string) (domain.Artifact, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.artifacts[name]
	return a, ok
}

// Names returns the artifact names in sorted order.
func (g *Gallery) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.artifacts))
	for name := range g.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
