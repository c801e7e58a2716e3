package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/covid-data-tracker/internal/adapter/owid"
	"github.com/couchcryptid/covid-data-tracker/internal/config"
	"github.com/couchcryptid/covid-data-tracker/internal/domain"
)

var errValidation = errors.New("validation failed")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the input CSV for required columns, parsable dates, and tracked locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return validate(cmd.Context(), cfg.InputPath, cmd.OutOrStdout())
		},
	}
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validate(ctx context.Context, path string, w io.Writer) error {
	fmt.Fprintln(w, "=== COVID-19 Dataset Validation ===")
	fmt.Fprintln(w)

	raw, err := owid.NewReader(path).Load(ctx)
	if err != nil {
		return err
	}
	rows, cols := raw.Shape()

	columns := validateColumns(raw)
	phases := []*phase{columns}

	var cleaned domain.Table
	if columns.passed() {
		var dates *phase
		dates, cleaned = validateDates(raw)
		phases = append(phases, dates)
		if dates.passed() {
			phases = append(phases, validateLocations(cleaned))
		}
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d rows, %d columns, %d tracked rows\n", rows, cols, cleaned.Len())
	if first, last, ok := dateRange(cleaned); ok {
		fmt.Fprintf(w, "Tracked dates: %s to %s\n", first.Format(domain.DateLayout), last.Format(domain.DateLayout))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for _, e := range p.errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if !allPassed {
		fmt.Fprintln(w, "\nValidation FAILED.")
		return errValidation
	}
	fmt.Fprintln(w, "\nValidation passed.")
	return nil
}

func validateColumns(t domain.Table) *phase {
	p := &phase{name: "Required columns"}
	for _, name := range domain.RequiredColumns {
		if !t.Has(name) {
			p.errorf("missing column %q", name)
		}
	}
	return p
}

// validateDates runs the full cleaning step, which on a table with the required
// columns fails only on an unparsable date or a non-numeric count.
func validateDates(t domain.Table) (*phase, domain.Table) {
	p := &phase{name: "Dates and counts parse"}
	cleaned, err := domain.Clean(t)
	if err != nil {
		p.errorf("%v", err)
	}
	return p, cleaned
}

func validateLocations(t domain.Table) *phase {
	p := &phase{name: "Tracked locations present"}
	loc, err := t.Column(domain.ColLocation)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	counts := make(map[string]int, len(domain.AllowList))
	for _, v := range loc.Values {
		counts[v.Str]++
	}
	for _, name := range domain.AllowList {
		if counts[name] == 0 {
			p.errorf("no rows for %q (location names must match exactly)", name)
		}
	}
	return p
}

func dateRange(t domain.Table) (first, last time.Time, ok bool) {
	dates, err := t.Column(domain.ColDate)
	if err != nil {
		return first, last, false
	}
	for _, v := range dates.Values {
		if v.Kind != domain.Date {
			continue
		}
		if !ok || v.Time.Before(first) {
			first = v.Time
		}
		if !ok || v.Time.After(last) {
			last = v.Time
		}
		ok = true
	}
	return first, last, ok
}
