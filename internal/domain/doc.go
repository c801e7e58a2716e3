// Package domain models the Our World in Data (OWID) COVID-19 observations table
// and the pure transformations the tracker applies to it.
//
// # Data Source
//
// The input is owid-covid-data.csv from https://ourworldindata.org/covid-cases:
// one header row, one row per (location, date) pair, roughly seventy columns of
// cumulative and daily counts. The tracker reads these columns:
//
//	iso_code            ISO 3166-1 alpha-3 code, or an OWID_* aggregate code
//	location            country or aggregate name, e.g. "United States"
//	date                calendar date, "2021-03-04"
//	total_cases         cumulative confirmed cases
//	total_deaths        cumulative confirmed deaths
//	total_vaccinations  cumulative doses administered
//
// Empty cells, "NA" and "NaN" are missing values.
//
// # Table Semantics
//
// A [Table] is columnar and positional: rows have no identity beyond their index.
// Every operation returns a new Table, so each stage of the pipeline can be tested
// against the table value it received.
//
// Cleaning ([Clean]) runs in a fixed order:
//
//  1. [ParseDates] converts the date column; any unparsable text is fatal.
//  2. [CheckNumeric] rejects count columns holding text such as "n/a".
//  3. [FilterLocations] keeps exact, case-sensitive matches of [AllowList].
//  4. [ForwardFill] fills every missing cell from the previous row of the same
//     column, scanning the whole table. Fills are not grouped by location, so a
//     country's first rows can inherit the previous country's last values.
//
// # Derived Values
//
// [WithDeathRate] divides total_deaths by total_cases with IEEE-754 semantics:
// x/0 is ±Inf and 0/0 is NaN. Either operand missing makes the result missing.
//
// # Charts
//
// [CasesChart] and [VaccinationsChart] produce one series per allow-listed
// country in table order. [LatestSnapshot] takes every row at the single maximum
// date of the filtered table; because filtering happens first, the "global" map
// shows at most the allow-listed countries.
package domain
