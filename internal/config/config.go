package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Display modes select where rendered charts go.
const (
	DisplayHTTP = "http" // served by the chart gallery until interrupted
	DisplayDir  = "dir"  // written to OUTPUT_DIR
	DisplayNone = "none" // discarded
)

// Config holds all tracker settings, populated from environment variables.
type Config struct {
	InputPath       string
	Display         string
	OutputDir       string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	PreviewRows     int

	// Kafka sink configuration.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// SQLite sink; empty disables it.
	SQLitePath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	previewRows, err := parsePreviewRows()
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		InputPath:       sharedcfg.EnvOrDefault("INPUT_PATH", "owid-covid-data.csv"),
		Display:         strings.ToLower(sharedcfg.EnvOrDefault("CHART_DISPLAY", DisplayHTTP)),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "charts"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		PreviewRows:     previewRows,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "covid-observations"),

		SQLitePath: os.Getenv("SQLITE_PATH"),
	}

	if cfg.InputPath == "" {
		return nil, errors.New("INPUT_PATH is required")
	}
	switch cfg.Display {
	case DisplayHTTP, DisplayDir, DisplayNone:
	default:
		return nil, fmt.Errorf("invalid CHART_DISPLAY %q: want http, dir or none", cfg.Display)
	}
	if cfg.Display == DisplayDir && cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required when CHART_DISPLAY is dir")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePreviewRows() (int, error) {
	s := os.Getenv("PREVIEW_ROWS")
	if s == "" {
		return 5, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 100 {
		return 0, fmt.Errorf("invalid PREVIEW_ROWS %q: want 1-100", s)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}
