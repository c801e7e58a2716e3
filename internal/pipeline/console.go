package pipeline

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/covid-data-tracker/internal/domain"
)

// Console prints the run's diagnostics and narrative to a writer, usually stdout.
// Output depends only on the tables it is given.
type Console struct {
	w           io.Writer
	previewRows int
}

// NewConsole creates a Console that previews up to previewRows rows.
func NewConsole(w io.Writer, previewRows int) *Console {
	return &Console{w: w, previewRows: previewRows}
}

// Diagnostics prints the shape, the column names, the first rows, and the
// missing-cell count of every column.
func (c *Console) Diagnostics(t domain.Table) error {
	rows, cols := t.Shape()
	if _, err := fmt.Fprintf(c.w, "Dataset shape: (%d, %d)\n", rows, cols); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.w, "Columns: [%s]\n\n", strings.Join(t.Columns(), " ")); err != nil {
		return err
	}
	if err := c.table(t.Head(c.previewRows)); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(c.w, "\nMissing values per column:"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', 0)
	for _, mc := range t.MissingCounts() {
		fmt.Fprintf(tw, "%s\t%d\n", mc.Column, mc.Missing)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(c.w)
	return err
}

// DeathRatePreview prints location, date and death_rate for the first rows
// where all three are present and the rate is not NaN.
func (c *Console) DeathRatePreview(t domain.Table) error {
	view, err := t.Select(domain.ColLocation, domain.ColDate, domain.ColDeathRate)
	if err != nil {
		return err
	}
	loc, _ := view.Column(domain.ColLocation)
	dates, _ := view.Column(domain.ColDate)
	rate, _ := view.Column(domain.ColDeathRate)

	indices := make([]int, 0, c.previewRows)
	for i := 0; i < view.Len() && len(indices) < c.previewRows; i++ {
		if loc.Values[i].IsMissing() || dates.Values[i].IsMissing() {
			continue
		}
		if r := rate.Values[i]; r.IsMissing() || math.IsNaN(r.Float()) {
			continue
		}
		indices = append(indices, i)
	}

	preview := view.Rows(indices)
	if _, err := fmt.Fprintln(c.w, "Death rate preview:"); err != nil {
		return err
	}
	if err := c.table(preview); err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.w)
	return err
}

// Insights prints the fixed narrative block framed by blank lines.
func (c *Console) Insights() error {
	_, err := fmt.Fprintf(c.w, "\n%s\n\n", strings.Join(domain.Insights, "\n"))
	return err
}

// table prints t with a row-index column, tab aligned.
func (c *Console) table(t domain.Table) error {
	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', 0)
	names := t.Columns()
	fmt.Fprintf(tw, "\t%s\n", strings.Join(names, "\t"))

	cols := make([]domain.Column, len(names))
	for i, name := range names {
		cols[i], _ = t.Column(name)
	}
	cells := make([]string, len(cols))
	for row := 0; row < t.Len(); row++ {
		for i, col := range cols {
			cells[i] = col.Values[row].String()
		}
		fmt.Fprintf(tw, "%d\t%s\n", row, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
