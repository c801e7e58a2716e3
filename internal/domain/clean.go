package domain

import (
	"fmt"
	"strings"
	"time"
)

// Column names of the OWID dataset used by the tracker.
const (
	ColLocation          = "location"
	ColISOCode           = "iso_code"
	ColDate              = "date"
	ColTotalCases        = "total_cases"
	ColTotalDeaths       = "total_deaths"
	ColTotalVaccinations = "total_vaccinations"
	ColDeathRate         = "death_rate"
)

// AllowList is the fixed set of tracked locations, in chart legend order.
// Matching is exact and case-sensitive; other spellings (e.g. "USA") are dropped.
var AllowList = []string{"Kenya", "United States", "India"}

// RequiredColumns lists the columns the pipeline reads.
var RequiredColumns = []string{
	ColISOCode, ColLocation, ColDate, ColTotalCases, ColTotalDeaths, ColTotalVaccinations,
}

// NumericColumns are the count columns that must hold numbers.
var NumericColumns = []string{ColTotalCases, ColTotalDeaths, ColTotalVaccinations}

// dateLayouts are tried in order when parsing a date cell.
var dateLayouts = []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05"}

// Clean parses the date column, checks the count columns, keeps only AllowList
// locations, and forward-fills every column in table order.
func Clean(t Table) (Table, error) {
	parsed, err := ParseDates(t, ColDate)
	if err != nil {
		return Table{}, err
	}
	if err := CheckNumeric(parsed); err != nil {
		return Table{}, err
	}
	filtered, err := FilterLocations(parsed, AllowList)
	if err != nil {
		return Table{}, err
	}
	return ForwardFill(filtered), nil
}

// ParseDates converts the named text column to dates. Missing cells stay missing;
// any other cell that does not parse is an error wrapping ErrParseDate.
func ParseDates(t Table, name string) (Table, error) {
	col, err := t.Column(name)
	if err != nil {
		return Table{}, err
	}

	values := make([]Value, col.Len())
	for i, v := range col.Values {
		switch v.Kind {
		case Missing, Date:
			values[i] = v
		default:
			d, err := parseDate(v.String())
			if err != nil {
				return Table{}, fmt.Errorf("%w: column %q row %d: %q", ErrParseDate, name, i, v.String())
			}
			values[i] = DateValue(d)
		}
	}
	return t.WithColumn(Column{Name: name, Values: values})
}

// CheckNumeric applies RequireNumeric to every NumericColumns entry the table
// has. Absent columns are left to the stages that read them.
func CheckNumeric(t Table) error {
	for _, name := range NumericColumns {
		if !t.Has(name) {
			continue
		}
		if err := t.RequireNumeric(name); err != nil {
			return err
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range dateLayouts {
		d, err := time.Parse(layout, s)
		if err == nil {
			return d.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FilterLocations keeps the rows whose location text exactly equals one of allow,
// preserving table order.
func FilterLocations(t Table, allow []string) (Table, error) {
	col, err := t.Column(ColLocation)
	if err != nil {
		return Table{}, err
	}

	keep := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		keep[name] = struct{}{}
	}

	indices := make([]int, 0, col.Len())
	for i, v := range col.Values {
		if v.Kind != Text {
			continue
		}
		if _, ok := keep[v.Str]; ok {
			indices = append(indices, i)
		}
	}
	return t.Rows(indices), nil
}

// ForwardFill replaces every missing cell with the nearest preceding non-missing
// cell of the same column. Rows are scanned in table order without grouping, so
// a country's leading gaps take the previous country's last value. Cells with no
// preceding value stay missing.
func ForwardFill(t Table) Table {
	filled, _ := ForwardFillCount(t)
	return filled
}

// ForwardFillCount is ForwardFill that also reports how many cells were filled.
func ForwardFillCount(t Table) (Table, int) {
	cols := make([]Column, len(t.columns))
	filled := 0
	for ci, c := range t.columns {
		values := make([]Value, c.Len())
		var last Value
		for i, v := range c.Values {
			if v.IsMissing() {
				if !last.IsMissing() {
					filled++
				}
				values[i] = last
				continue
			}
			values[i] = v
			last = v
		}
		cols[ci] = Column{Name: c.Name, Values: values}
	}
	return Table{columns: cols, index: t.index, rows: t.rows}, filled
}
