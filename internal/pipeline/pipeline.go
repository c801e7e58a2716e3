package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/covid-data-tracker/internal/domain"
	"github.com/couchcryptid/covid-data-tracker/internal/observability"
)

// Source loads the raw observations table.
type Source interface {
	Load(ctx context.Context) (domain.Table, error)
}

// Renderer turns chart descriptions into artifacts.
type Renderer interface {
	RenderTimeSeries(c domain.TimeSeriesChart) (domain.Artifact, error)
	RenderChoropleth(s domain.Snapshot) (domain.Artifact, error)
}

// Display shows rendered artifacts.
type Display interface {
	Show(ctx context.Context, a domain.Artifact) error
}

// Sink receives the cleaned observations of a run.
type Sink interface {
	Name() string
	Write(ctx context.Context, batch domain.Batch) error
}

// Pipeline runs the load, clean, derive, plot, and report stages once.
type Pipeline struct {
	source   Source
	renderer Renderer
	display  Display
	sinks    []Sink
	console  *Console
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Pipeline. A nil display discards every chart.
func New(src Source, r Renderer, d Display, console *Console, logger *slog.Logger, metrics *observability.Metrics, sinks ...Sink) *Pipeline {
	if d == nil {
		d = discard{}
	}
	return &Pipeline{
		source:   src,
		renderer: r,
		display:  d,
		sinks:    sinks,
		console:  console,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed yet")
	}
	return nil
}

// Run executes every stage in order. Any stage error stops the run; charts
// with nothing to draw are logged and skipped.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")

	start := clock.Now()
	raw, err := p.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	p.observe("load", start)
	rows, cols := raw.Shape()
	p.metrics.RowsLoaded.Set(float64(rows))
	p.logger.Info("dataset loaded", "rows", rows, "columns", cols)

	if err := p.console.Diagnostics(raw); err != nil {
		return fmt.Errorf("print diagnostics: %w", err)
	}

	cleaned, err := p.clean(raw)
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}

	if err := p.showTimeSeries(ctx, domain.ChartCases, domain.CasesChart, cleaned); err != nil {
		return err
	}

	start = clock.Now()
	derived, err := domain.WithDeathRate(cleaned)
	if err != nil {
		return fmt.Errorf("derive: %w", err)
	}
	p.observe("derive", start)

	if err := p.console.DeathRatePreview(derived); err != nil {
		return fmt.Errorf("print death rate preview: %w", err)
	}

	if err := p.showTimeSeries(ctx, domain.ChartVaccinations, domain.VaccinationsChart, derived); err != nil {
		return err
	}
	if err := p.showSnapshot(ctx, derived); err != nil {
		return err
	}

	if err := p.writeSinks(ctx, derived); err != nil {
		return err
	}

	if err := p.console.Insights(); err != nil {
		return fmt.Errorf("print insights: %w", err)
	}

	p.ready.Store(true)
	p.metrics.PipelineCompleted.Set(1)
	p.logger.Info("pipeline completed")
	return nil
}

func (p *Pipeline) clean(t domain.Table) (domain.Table, error) {
	start := clock.Now()
	parsed, err := domain.ParseDates(t, domain.ColDate)
	if err != nil {
		return domain.Table{}, err
	}
	if err := domain.CheckNumeric(parsed); err != nil {
		return domain.Table{}, err
	}
	filtered, err := domain.FilterLocations(parsed, domain.AllowList)
	if err != nil {
		return domain.Table{}, err
	}
	filled, n := domain.ForwardFillCount(filtered)
	p.observe("clean", start)

	p.metrics.RowsRetained.Set(float64(filled.Len()))
	p.metrics.CellsFilled.Set(float64(n))
	p.logger.Info("dataset cleaned", "rows_retained", filled.Len(), "cells_filled", n)
	return filled, nil
}

func (p *Pipeline) showTimeSeries(ctx context.Context, name string, build func(domain.Table) (domain.TimeSeriesChart, error), t domain.Table) error {
	c, err := build(t)
	if err != nil {
		return fmt.Errorf("chart %s: %w", name, err)
	}
	return p.show(ctx, c.Name, func() (domain.Artifact, error) {
		return p.renderer.RenderTimeSeries(c)
	})
}

func (p *Pipeline) showSnapshot(ctx context.Context, t domain.Table) error {
	s, err := domain.LatestSnapshot(t)
	if err != nil {
		return fmt.Errorf("chart %s: %w", domain.ChartSnapshot, err)
	}
	return p.show(ctx, s.Name, func() (domain.Artifact, error) {
		return p.renderer.RenderChoropleth(s)
	})
}

func (p *Pipeline) show(ctx context.Context, name string, render func() (domain.Artifact, error)) error {
	start := clock.Now()
	a, err := render()
	if errors.Is(err, domain.ErrNoData) {
		p.logger.Warn("chart skipped", "chart", name, "error", err)
		p.metrics.ChartsSkipped.WithLabelValues(name).Inc()
		return nil
	}
	if err != nil {
		return err
	}
	a.RenderedAt = clock.Now()

	if err := p.display.Show(ctx, a); err != nil {
		return fmt.Errorf("show %s: %w", a.Name, err)
	}
	p.observe("render", start)
	p.metrics.ChartsRendered.WithLabelValues(name).Inc()
	return nil
}

// writeSinks hands the final table to every sink concurrently. The table is
// read-only from here on.
func (p *Pipeline) writeSinks(ctx context.Context, t domain.Table) error {
	if len(p.sinks) == 0 {
		return nil
	}
	start := clock.Now()
	obs, err := domain.Observations(t)
	if err != nil {
		return fmt.Errorf("observations: %w", err)
	}
	batch := domain.Batch{
		RunID:        uuid.NewString(),
		ProcessedAt:  clock.Now().UTC(),
		Observations: obs,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range p.sinks {
		g.Go(func() error {
			if err := s.Write(gctx, batch); err != nil {
				return fmt.Errorf("sink %s: %w", s.Name(), err)
			}
			p.metrics.SinkRecords.WithLabelValues(s.Name()).Add(float64(len(obs)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	p.observe("sink", start)
	p.logger.Info("observations written", "count", len(obs), "sinks", len(p.sinks), "run_id", batch.RunID)
	return nil
}

func (p *Pipeline) observe(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(clock.Since(start).Seconds())
}

type discard struct{}

func (discard) Show(context.Context, domain.Artifact) error { return nil }
