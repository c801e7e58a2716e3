// Package render turns domain chart descriptions into displayable artifacts:
// PNG line charts drawn with go-chart and an HTML choropleth page.
package render

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/covid-data-tracker/internal/domain"
)

// Default canvas size, matching a 10x5 inch figure at 100 dpi.
const (
	DefaultWidth  = 1000
	DefaultHeight = 500
)

// seriesColors cycles per series in legend order.
var seriesColors = []drawing.Color{
	chart.ColorBlue,
	chart.ColorOrange,
	chart.ColorGreen,
	chart.ColorRed,
	chart.ColorAlternateGray,
}

// Renderer produces chart artifacts.
// It implements pipeline.Renderer.
type Renderer struct {
	width  int
	height int
}

// NewRenderer creates a Renderer with the default canvas size.
func NewRenderer() *Renderer {
	return &Renderer{width: DefaultWidth, height: DefaultHeight}
}

// RenderTimeSeries draws c as a PNG line chart with a legend keyed by series name.
// Points with a NaN or infinite value are left out. A chart with nothing to draw
// returns an error wrapping domain.ErrNoData.
func (r *Renderer) RenderTimeSeries(c domain.TimeSeriesChart) (domain.Artifact, error) {
	series, xr, yr, ok := buildSeries(c.Series)
	if !ok {
		return domain.Artifact{}, fmt.Errorf("render %s: %w", c.Name, domain.ErrNoData)
	}

	graph := chart.Chart{
		Title:      c.Title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:           c.XLabel,
			ValueFormatter: chart.TimeDateValueFormatter,
			Range:          xr,
		},
		YAxis: chart.YAxis{
			Name:           c.YLabel,
			ValueFormatter: countFormatter,
			Range:          yr,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return domain.Artifact{}, fmt.Errorf("render %s: %w", c.Name, err)
	}
	return domain.Artifact{
		Name:        c.Name + ".png",
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, nil
}

// buildSeries converts domain series to go-chart series and computes axis ranges
// that are never empty, since go-chart rejects zero-width ranges.
func buildSeries(in []domain.Series) ([]chart.Series, *chart.ContinuousRange, *chart.ContinuousRange, bool) {
	var (
		out        []chart.Series
		minX, maxX time.Time
		anyPoint   bool
	)
	minY, maxY := math.Inf(1), math.Inf(-1)

	for i, s := range in {
		xs := make([]time.Time, 0, len(s.Points))
		ys := make([]float64, 0, len(s.Points))
		for _, p := range s.Points {
			if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
				continue
			}
			xs = append(xs, p.Date)
			ys = append(ys, p.Value)

			if !anyPoint || p.Date.Before(minX) {
				minX = p.Date
			}
			if !anyPoint || p.Date.After(maxX) {
				maxX = p.Date
			}
			minY = math.Min(minY, p.Value)
			maxY = math.Max(maxY, p.Value)
			anyPoint = true
		}
		if len(xs) == 0 {
			continue
		}
		color := seriesColors[i%len(seriesColors)]
		style := chart.Style{StrokeColor: color, StrokeWidth: 2}
		if len(xs) == 1 {
			// A single point has no segment to stroke.
			style = chart.Style{StrokeWidth: 0, DotWidth: 4, DotColor: color, StrokeColor: color}
		}
		out = append(out, chart.TimeSeries{Name: s.Name, XValues: xs, YValues: ys, Style: style})
	}
	if !anyPoint {
		return nil, nil, nil, false
	}

	xMin, xMax := chart.TimeToFloat64(minX), chart.TimeToFloat64(maxX)
	if xMax <= xMin {
		xMax = xMin + float64(24*time.Hour)
	}
	if maxY <= minY {
		maxY = minY + 1
	}
	return out,
		&chart.ContinuousRange{Min: xMin, Max: xMax},
		&chart.ContinuousRange{Min: minY, Max: maxY},
		true
}

// countFormatter prints axis values as whole numbers with thousands separators.
func countFormatter(v any) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	return formatCount(f)
}

func formatCount(f float64) string {
	return humanize.Comma(int64(math.Round(f)))
}
