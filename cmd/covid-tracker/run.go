package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	httpadapter "github.com/couchcryptid/covid-data-tracker/internal/adapter/http"
	"github.com/couchcryptid/covid-data-tracker/internal/adapter/files"
	kafkaadapter "github.com/couchcryptid/covid-data-tracker/internal/adapter/kafka"
	"github.com/couchcryptid/covid-data-tracker/internal/adapter/owid"
	"github.com/couchcryptid/covid-data-tracker/internal/adapter/render"
	"github.com/couchcryptid/covid-data-tracker/internal/adapter/sqlite"
	"github.com/couchcryptid/covid-data-tracker/internal/config"
	"github.com/couchcryptid/covid-data-tracker/internal/observability"
	"github.com/couchcryptid/covid-data-tracker/internal/pipeline"
)

// run executes the pipeline once. In http display mode the charts stay
// available until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, stdout io.Writer, metrics *observability.Metrics) error {
	logger := observability.NewLogger(cfg)

	var sinks []pipeline.Sink
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("sqlite close error", "error", err)
			}
		}()
		sinks = append(sinks, store)
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}

	var (
		display pipeline.Display
		gallery *httpadapter.Gallery
	)
	switch cfg.Display {
	case config.DisplayHTTP:
		gallery = httpadapter.NewGallery(baseURL(cfg.HTTPAddr), logger)
		display = gallery
	case config.DisplayDir:
		display = files.NewDisplay(cfg.OutputDir, logger)
	}

	p := pipeline.New(
		owid.NewReader(cfg.InputPath),
		render.NewRenderer(),
		display,
		pipeline.NewConsole(stdout, cfg.PreviewRows),
		logger,
		metrics,
		sinks...,
	)

	if gallery == nil {
		return p.Run(ctx)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, gallery, logger)
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	runErr := p.Run(ctx)
	if runErr == nil {
		logger.Info("charts ready, interrupt to exit", "url", baseURL(cfg.HTTPAddr)+"/charts")
		select {
		case <-ctx.Done():
		case err, ok := <-serveErr:
			if ok {
				runErr = fmt.Errorf("http server: %w", err)
			}
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return runErr
}

// baseURL turns a listen address such as ":8080" into a browsable URL.
func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
