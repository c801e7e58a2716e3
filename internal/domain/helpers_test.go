package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func day(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func texts(ss ...string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		if s == "" {
			continue
		}
		out[i] = TextValue(s)
	}
	return out
}

// nums builds numeric cells; NaN inputs become missing cells.
func nums(fs ...float64) []Value {
	out := make([]Value, len(fs))
	for i, f := range fs {
		if math.IsNaN(f) {
			continue
		}
		out[i] = NumberValue(f)
	}
	return out
}

func mustTable(t *testing.T, cols ...Column) Table {
	t.Helper()
	tbl, err := NewTable(cols...)
	require.NoError(t, err)
	return tbl
}

func column(t *testing.T, tbl Table, name string) Column {
	t.Helper()
	c, err := tbl.Column(name)
	require.NoError(t, err)
	return c
}

// minimalFixture is the three-row example: Kenya twice (second row empty) and
// the United States once.
func minimalFixture(t *testing.T) Table {
	t.Helper()
	return mustTable(t,
		Column{Name: ColISOCode, Values: texts("KEN", "KEN", "USA")},
		Column{Name: ColLocation, Values: texts("Kenya", "Kenya", "United States")},
		Column{Name: ColDate, Values: texts("2021-01-01", "2021-01-02", "2021-01-01")},
		Column{Name: ColTotalCases, Values: nums(10, nan, 100)},
		Column{Name: ColTotalDeaths, Values: nums(1, nan, 2)},
		Column{Name: ColTotalVaccinations, Values: nums(nan, nan, nan)},
	)
}
