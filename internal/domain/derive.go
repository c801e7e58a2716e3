package domain

// WithDeathRate adds the death_rate column, total_deaths / total_cases per row.
// The result is missing when either operand is missing. Division follows IEEE-754,
// so a zero case count yields ±Inf or NaN rather than an error.
func WithDeathRate(t Table) (Table, error) {
	if err := t.RequireNumeric(ColTotalDeaths, ColTotalCases); err != nil {
		return Table{}, err
	}
	deaths, _ := t.Column(ColTotalDeaths)
	cases, _ := t.Column(ColTotalCases)

	values := make([]Value, t.Len())
	for i := range values {
		d, c := deaths.Values[i], cases.Values[i]
		if d.Kind != Number || c.Kind != Number {
			continue
		}
		values[i] = NumberValue(d.Num / c.Num)
	}
	return t.WithColumn(Column{Name: ColDeathRate, Values: values})
}
