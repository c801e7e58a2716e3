package files

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/covid-data-tracker/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDisplay_WritesArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	d := NewDisplay(dir, discardLogger())

	require.NoError(t, d.Show(context.Background(), domain.Artifact{Name: "cases.png", Data: []byte("png")}))
	require.NoError(t, d.Show(context.Background(), domain.Artifact{Name: "cases.png", Data: []byte("png2")}))

	data, err := os.ReadFile(filepath.Join(dir, "cases.png"))
	require.NoError(t, err)
	assert.Equal(t, "png2", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDisplay_RejectsPathNames(t *testing.T) {
	d := NewDisplay(t.TempDir(), discardLogger())
	for _, name := range []string{"", "../escape.png", "a/b.png"} {
		err := d.Show(context.Background(), domain.Artifact{Name: name})
		assert.Error(t, err, name)
	}
}
