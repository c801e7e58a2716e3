package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/couchcryptid/covid-data-tracker/internal/adapter/files"
	"github.com/couchcryptid/covid-data-tracker/internal/adapter/owid"
	"github.com/couchcryptid/covid-data-tracker/internal/adapter/render"
	"github.com/couchcryptid/covid-data-tracker/internal/domain"
	"github.com/couchcryptid/covid-data-tracker/internal/observability"
	"github.com/couchcryptid/covid-data-tracker/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const fixtureCSV = `iso_code,location,date,total_cases,total_deaths,total_vaccinations
KEN,Kenya,2021-01-01,10,1,
KEN,Kenya,2021-01-02,,,5
OWID_WRL,World,2021-01-02,1000,20,
USA,United States,2021-01-01,100,2,50
USA,United States,2021-01-02,0,0,60
`

var frozen = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// --- fakes ---

type fakeSource struct {
	csv string
	err error
}

func (f *fakeSource) Load(_ context.Context) (domain.Table, error) {
	if f.err != nil {
		return domain.Table{}, f.err
	}
	return owid.Decode(strings.NewReader(f.csv))
}

type fakeRenderer struct {
	charts    []domain.TimeSeriesChart
	snapshots []domain.Snapshot
}

func (f *fakeRenderer) RenderTimeSeries(c domain.TimeSeriesChart) (domain.Artifact, error) {
	if !c.Drawable() {
		return domain.Artifact{}, domain.ErrNoData
	}
	f.charts = append(f.charts, c)
	return domain.Artifact{Name: c.Name + ".png", ContentType: "image/png", Data: []byte(c.Title)}, nil
}

func (f *fakeRenderer) RenderChoropleth(s domain.Snapshot) (domain.Artifact, error) {
	if len(s.Regions) == 0 {
		return domain.Artifact{}, domain.ErrNoData
	}
	f.snapshots = append(f.snapshots, s)
	return domain.Artifact{Name: s.Name + ".html", ContentType: "text/html", Data: []byte(s.Title)}, nil
}

type fakeDisplay struct {
	shown []domain.Artifact
}

func (f *fakeDisplay) Show(_ context.Context, a domain.Artifact) error {
	f.shown = append(f.shown, a)
	return nil
}

type fakeSink struct {
	name string
	err  error

	mu      sync.Mutex
	batches []domain.Batch
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Write(_ context.Context, b domain.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, b)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freezeClock(t *testing.T) {
	t.Helper()
	pipeline.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { pipeline.SetClock(nil) })
}

type harness struct {
	pipeline *pipeline.Pipeline
	out      *bytes.Buffer
	renderer *fakeRenderer
	display  *fakeDisplay
	metrics  *observability.Metrics
}

func newHarness(src pipeline.Source, sinks ...pipeline.Sink) *harness {
	h := &harness{
		out:      &bytes.Buffer{},
		renderer: &fakeRenderer{},
		display:  &fakeDisplay{},
		metrics:  observability.NewMetricsForTesting(),
	}
	console := pipeline.NewConsole(h.out, 5)
	h.pipeline = pipeline.New(src, h.renderer, h.display, console, discardLogger(), h.metrics, sinks...)
	return h
}

// --- tests ---

func TestPipeline_Run_EndToEnd(t *testing.T) {
	freezeClock(t)
	sink := &fakeSink{name: "memory"}
	h := newHarness(&fakeSource{csv: fixtureCSV}, sink)

	require.Error(t, h.pipeline.CheckReadiness(context.Background()))
	require.NoError(t, h.pipeline.Run(context.Background()))
	require.NoError(t, h.pipeline.CheckReadiness(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "Dataset shape: (5, 6)\n")
	assert.Contains(t, out, "Columns: [iso_code location date total_cases total_deaths total_vaccinations]\n")
	assert.Contains(t, out, "Death rate preview:\n")
	assert.True(t, strings.HasSuffix(out, "\n"+strings.Join(domain.Insights, "\n")+"\n\n"))

	// Charts are shown in a fixed order and stamped with the pipeline clock.
	names := make([]string, len(h.display.shown))
	for i, a := range h.display.shown {
		names[i] = a.Name
		assert.Equal(t, frozen, a.RenderedAt)
	}
	assert.Equal(t, []string{"cases.png", "vaccinations.png", "snapshot.html"}, names)

	require.Len(t, h.renderer.charts, 2)
	cases := h.renderer.charts[0]
	require.Len(t, cases.Series, 3)
	assert.Equal(t, "Kenya", cases.Series[0].Name)
	// Kenya's second day is forward filled from the first.
	assert.Equal(t, []float64{10, 10}, values(cases.Series[0]))
	assert.Equal(t, []float64{100, 0}, values(cases.Series[1]))
	assert.Empty(t, cases.Series[2].Points)

	require.Len(t, h.renderer.snapshots, 1)
	snap := h.renderer.snapshots[0]
	assert.Equal(t, "2021-01-02", snap.Date.Format(domain.DateLayout))
	assert.Equal(t, []domain.Region{
		{ISOCode: "KEN", Location: "Kenya", TotalCases: 10},
		{ISOCode: "USA", Location: "United States", TotalCases: 0},
	}, snap.Regions)

	require.Len(t, sink.batches, 1)
	batch := sink.batches[0]
	assert.NotEmpty(t, batch.RunID)
	assert.Equal(t, frozen, batch.ProcessedAt)
	require.Len(t, batch.Observations, 4)
	require.NotNil(t, batch.Observations[0].DeathRate)
	assert.InDelta(t, 0.1, *batch.Observations[0].DeathRate, 1e-12)
	assert.Nil(t, batch.Observations[3].DeathRate, "0/0 is NaN and has no record value")

	assert.InDelta(t, 5, testutil.ToFloat64(h.metrics.RowsLoaded), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(h.metrics.RowsRetained), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.CellsFilled), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.PipelineCompleted), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(h.metrics.SinkRecords.WithLabelValues("memory")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.ChartsRendered.WithLabelValues(domain.ChartSnapshot)), 0)
}

func TestPipeline_Run_DeathRatePreviewSkipsNaN(t *testing.T) {
	freezeClock(t)
	h := newHarness(&fakeSource{csv: fixtureCSV})
	require.NoError(t, h.pipeline.Run(context.Background()))

	out := h.out.String()
	start := strings.Index(out, "Death rate preview:\n")
	require.GreaterOrEqual(t, start, 0)
	preview := out[start:]
	preview = preview[:strings.Index(preview, "\n\n")]

	lines := strings.Split(preview, "\n")
	require.Len(t, lines, 5, "title, header, three finite rates")
	assert.Contains(t, lines[2], "Kenya")
	assert.Contains(t, lines[3], "Kenya")
	assert.Contains(t, lines[4], "United States")
	assert.True(t, strings.HasSuffix(lines[4], "0.02"))
	assert.NotContains(t, preview, "NaN")
}

func TestPipeline_Run_Idempotent(t *testing.T) {
	freezeClock(t)
	first := newHarness(&fakeSource{csv: fixtureCSV})
	second := newHarness(&fakeSource{csv: fixtureCSV})

	require.NoError(t, first.pipeline.Run(context.Background()))
	require.NoError(t, second.pipeline.Run(context.Background()))

	assert.Equal(t, first.out.String(), second.out.String())
	if diff := cmp.Diff(first.renderer.charts, second.renderer.charts, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("chart series differ (-first +second):\n%s", diff)
	}
}

func TestPipeline_Run_SkipsEmptyChart(t *testing.T) {
	freezeClock(t)
	csv := `iso_code,location,date,total_cases,total_deaths,total_vaccinations
KEN,Kenya,2021-01-01,10,1,
`
	h := newHarness(&fakeSource{csv: csv})
	require.NoError(t, h.pipeline.Run(context.Background()))

	require.Len(t, h.display.shown, 2)
	assert.Equal(t, "cases.png", h.display.shown[0].Name)
	assert.Equal(t, "snapshot.html", h.display.shown[1].Name)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.ChartsSkipped.WithLabelValues(domain.ChartVaccinations)), 0)
}

func TestPipeline_Run_HeaderOnly(t *testing.T) {
	freezeClock(t)
	sink := &fakeSink{name: "memory"}
	csv := "iso_code,location,date,total_cases,total_deaths,total_vaccinations\n"
	h := newHarness(&fakeSource{csv: csv}, sink)

	require.NoError(t, h.pipeline.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "Dataset shape: (0, 6)\n")
	assert.True(t, strings.HasSuffix(out, "\n"+strings.Join(domain.Insights, "\n")+"\n\n"))
	assert.Empty(t, h.display.shown)
	for _, name := range []string{domain.ChartCases, domain.ChartVaccinations, domain.ChartSnapshot} {
		assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.ChartsSkipped.WithLabelValues(name)), 0, name)
	}
	require.Len(t, sink.batches, 1)
	assert.Empty(t, sink.batches[0].Observations)
}

func TestPipeline_Run_NonNumericCountIsFatal(t *testing.T) {
	csv := `iso_code,location,date,total_cases,total_deaths,total_vaccinations
KEN,Kenya,2021-01-01,10,1,
KEN,Kenya,2021-01-02,n/a,2,
`
	h := newHarness(&fakeSource{csv: csv})

	err := h.pipeline.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrNotNumeric)
	assert.Contains(t, err.Error(), `"n/a"`)
	assert.Empty(t, h.display.shown)
}

func TestPipeline_SatisfiesReadinessChecker(t *testing.T) {
	var _ sharedobs.ReadinessChecker = (*pipeline.Pipeline)(nil)
}

func TestPipeline_Run_LoadError(t *testing.T) {
	h := newHarness(&fakeSource{err: os.ErrNotExist})

	err := h.pipeline.Run(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, h.out.String())
	assert.Error(t, h.pipeline.CheckReadiness(context.Background()))
}

func TestPipeline_Run_BadDateIsFatal(t *testing.T) {
	csv := `iso_code,location,date,total_cases,total_deaths,total_vaccinations
KEN,Kenya,01/02/2021,10,1,
`
	h := newHarness(&fakeSource{csv: csv})

	err := h.pipeline.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrParseDate)
	assert.Empty(t, h.display.shown)
}

func TestPipeline_Run_MissingColumnIsFatal(t *testing.T) {
	csv := `iso_code,location,date,total_cases,total_vaccinations
KEN,Kenya,2021-01-01,10,
`
	h := newHarness(&fakeSource{csv: csv})

	err := h.pipeline.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrMissingColumn)
}

func TestPipeline_Run_SinkErrorIsFatal(t *testing.T) {
	freezeClock(t)
	ok := &fakeSink{name: "ok"}
	broken := &fakeSink{name: "broken", err: errors.New("disk full")}
	h := newHarness(&fakeSource{csv: fixtureCSV}, ok, broken)

	err := h.pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink broken")
	assert.NotContains(t, h.out.String(), domain.Insights[0])
	assert.Error(t, h.pipeline.CheckReadiness(context.Background()))
}

func TestPipeline_Run_WritesChartFiles(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	p := pipeline.New(
		&fakeSource{csv: fixtureCSV},
		render.NewRenderer(),
		files.NewDisplay(dir, discardLogger()),
		pipeline.NewConsole(&out, 5),
		discardLogger(),
		observability.NewMetricsForTesting(),
	)
	require.NoError(t, p.Run(context.Background()))

	for _, name := range []string{"cases.png", "vaccinations.png", "snapshot.html"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestPipeline_Run_NilDisplayDiscards(t *testing.T) {
	var out bytes.Buffer
	p := pipeline.New(&fakeSource{csv: fixtureCSV}, &fakeRenderer{}, nil,
		pipeline.NewConsole(&out, 5), discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, p.Run(context.Background()))
	assert.Contains(t, out.String(), domain.Insights[3])
}

func values(s domain.Series) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
		if math.IsNaN(p.Value) {
			out[i] = -1
		}
	}
	return out
}
