package domain

import (
	"math"
	"time"
)

// Observation is the typed record view of one cleaned table row, used by sinks.
// Nil pointers are missing values. Non-finite numbers are also nil because JSON
// and SQL REAL cannot carry NaN.
type Observation struct {
	Location          string    `json:"location"`
	ISOCode           string    `json:"iso_code"`
	Date              time.Time `json:"date"`
	TotalCases        *float64  `json:"total_cases"`
	TotalDeaths       *float64  `json:"total_deaths"`
	TotalVaccinations *float64  `json:"total_vaccinations"`
	DeathRate         *float64  `json:"death_rate"`
}

// Key identifies the observation by location code and day, e.g. "KEN|2021-01-02".
func (o Observation) Key() string {
	return o.ISOCode + "|" + o.Date.Format(DateLayout)
}

// Observations converts a cleaned table into records. The death_rate column is
// optional; the rest of RequiredColumns must be present.
func Observations(t Table) ([]Observation, error) {
	if err := t.Require(RequiredColumns...); err != nil {
		return nil, err
	}
	loc, _ := t.Column(ColLocation)
	iso, _ := t.Column(ColISOCode)
	dates, _ := t.Column(ColDate)
	cases, _ := t.Column(ColTotalCases)
	deaths, _ := t.Column(ColTotalDeaths)
	vacc, _ := t.Column(ColTotalVaccinations)
	rate, hasRate := Column{}, t.Has(ColDeathRate)
	if hasRate {
		rate, _ = t.Column(ColDeathRate)
	}

	out := make([]Observation, t.Len())
	for i := range out {
		o := Observation{
			Location:          loc.Values[i].Str,
			ISOCode:           iso.Values[i].Str,
			TotalCases:        finite(cases.Values[i]),
			TotalDeaths:       finite(deaths.Values[i]),
			TotalVaccinations: finite(vacc.Values[i]),
		}
		if dates.Values[i].Kind == Date {
			o.Date = dates.Values[i].Time
		}
		if hasRate {
			o.DeathRate = finite(rate.Values[i])
		}
		out[i] = o
	}
	return out, nil
}

func finite(v Value) *float64 {
	if v.Kind != Number || math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
		return nil
	}
	f := v.Num
	return &f
}

// Batch is the set of observations one run hands to its sinks.
type Batch struct {
	RunID        string
	ProcessedAt  time.Time
	Observations []Observation
}
