// Package files writes rendered chart artifacts to a directory.
package files

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/covid-data-tracker/internal/domain"
)

// Display writes each artifact to dir/<artifact name>.
// It implements pipeline.Display.
type Display struct {
	dir    string
	logger *slog.Logger
}

// NewDisplay creates a Display rooted at dir. The directory is created on first use.
func NewDisplay(dir string, logger *slog.Logger) *Display {
	return &Display{dir: dir, logger: logger}
}

// Show writes the artifact, replacing any previous file of the same name.
func (d *Display) Show(ctx context.Context, a domain.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.Name == "" || filepath.Base(a.Name) != a.Name {
		return fmt.Errorf("invalid artifact name %q", a.Name)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(d.dir, a.Name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, a.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", a.Name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write %s: %w", a.Name, err)
	}
	d.logger.Info("chart written", "path", path, "bytes", len(a.Data))
	return nil
}
