package domain

import (
	"math"
	"time"
)

// Point is one (date, value) pair of a time series. Value is NaN when missing.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is one named line of a time-series chart.
type Series struct {
	Name   string
	Points []Point
}

// TimeSeriesChart describes a line chart of several series over a shared date axis.
type TimeSeriesChart struct {
	Name   string
	Title  string
	XLabel string
	YLabel string
	Series []Series
}

// Drawable reports whether at least one point of the chart has a finite value.
func (c TimeSeriesChart) Drawable() bool {
	for _, s := range c.Series {
		for _, p := range s.Points {
			if !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0) {
				return true
			}
		}
	}
	return false
}

// Region is one area of a choropleth.
type Region struct {
	ISOCode    string
	Location   string
	TotalCases float64 // NaN when missing
}

// Snapshot is the choropleth of total cases at the latest date in the table.
type Snapshot struct {
	Name    string
	Title   string
	Date    time.Time
	Regions []Region
}

// Artifact is a rendered chart ready for display.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	RenderedAt  time.Time
}

// Chart names double as artifact names.
const (
	ChartCases        = "cases"
	ChartVaccinations = "vaccinations"
	ChartSnapshot     = "snapshot"
)

// CountrySeries builds one series per country, in the given order, of
// (date, valueColumn) pairs as they appear in the table. Rows are not sorted.
// Rows without a date are skipped; missing values become NaN points.
func CountrySeries(t Table, countries []string, valueColumn string) ([]Series, error) {
	if err := t.Require(ColLocation, ColDate, valueColumn); err != nil {
		return nil, err
	}
	if err := t.RequireNumeric(valueColumn); err != nil {
		return nil, err
	}
	loc, _ := t.Column(ColLocation)
	dates, _ := t.Column(ColDate)
	vals, _ := t.Column(valueColumn)

	byCountry := make(map[string]int, len(countries))
	out := make([]Series, len(countries))
	for i, name := range countries {
		byCountry[name] = i
		out[i] = Series{Name: name}
	}

	for row := 0; row < t.Len(); row++ {
		l := loc.Values[row]
		if l.Kind != Text {
			continue
		}
		si, ok := byCountry[l.Str]
		if !ok {
			continue
		}
		d := dates.Values[row]
		if d.Kind != Date {
			continue
		}
		out[si].Points = append(out[si].Points, Point{Date: d.Time, Value: vals.Values[row].Float()})
	}
	return out, nil
}

// CasesChart is the total-cases-over-time line chart for AllowList.
func CasesChart(t Table) (TimeSeriesChart, error) {
	series, err := CountrySeries(t, AllowList, ColTotalCases)
	if err != nil {
		return TimeSeriesChart{}, err
	}
	return TimeSeriesChart{
		Name:   ChartCases,
		Title:  "Total COVID-19 Cases Over Time",
		XLabel: "Date",
		YLabel: "Total Cases",
		Series: series,
	}, nil
}

// VaccinationsChart is the total-vaccinations-over-time line chart for AllowList.
func VaccinationsChart(t Table) (TimeSeriesChart, error) {
	series, err := CountrySeries(t, AllowList, ColTotalVaccinations)
	if err != nil {
		return TimeSeriesChart{}, err
	}
	return TimeSeriesChart{
		Name:   ChartVaccinations,
		Title:  "Total Vaccinations Over Time",
		XLabel: "Date",
		YLabel: "Total Vaccinations",
		Series: series,
	}, nil
}

// LatestRows returns the rows whose date equals the maximum date in the table,
// in table order. The second result is that date; it is zero when no row has a date.
func LatestRows(t Table) (Table, time.Time, error) {
	dates, err := t.Column(ColDate)
	if err != nil {
		return Table{}, time.Time{}, err
	}

	var latest time.Time
	for _, v := range dates.Values {
		if v.Kind == Date && v.Time.After(latest) {
			latest = v.Time
		}
	}
	if latest.IsZero() {
		return t.Rows(nil), latest, nil
	}

	var indices []int
	for i, v := range dates.Values {
		if v.Kind == Date && v.Time.Equal(latest) {
			indices = append(indices, i)
		}
	}
	return t.Rows(indices), latest, nil
}

// LatestSnapshot selects every row at the table's maximum date and maps it to a
// choropleth region keyed by ISO code. The table has already been narrowed to
// AllowList, so at most those locations appear.
func LatestSnapshot(t Table) (Snapshot, error) {
	if err := t.Require(ColISOCode, ColLocation, ColDate, ColTotalCases); err != nil {
		return Snapshot{}, err
	}
	if err := t.RequireNumeric(ColTotalCases); err != nil {
		return Snapshot{}, err
	}
	latest, date, err := LatestRows(t)
	if err != nil {
		return Snapshot{}, err
	}
	iso, _ := latest.Column(ColISOCode)
	loc, _ := latest.Column(ColLocation)
	cases, _ := latest.Column(ColTotalCases)

	regions := make([]Region, latest.Len())
	for i := range regions {
		regions[i] = Region{
			ISOCode:    iso.Values[i].Str,
			Location:   loc.Values[i].Str,
			TotalCases: cases.Values[i].Float(),
		}
	}
	return Snapshot{
		Name:    ChartSnapshot,
		Title:   "Total COVID-19 Cases by Country",
		Date:    date,
		Regions: regions,
	}, nil
}
