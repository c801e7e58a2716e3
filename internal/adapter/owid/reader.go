// Package owid loads the Our World in Data COVID-19 CSV into a domain.Table.
package owid

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/covid-data-tracker/internal/domain"
)

// nanValues are the cell texts treated as missing.
var nanValues = []string{"", "NA", "NaN"}

// Reader loads the dataset from a file path.
// It implements pipeline.Source.
type Reader struct {
	path string
}

// NewReader creates a Reader for the CSV at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Path returns the file the reader loads.
func (r *Reader) Path() string { return r.path }

// Load opens, parses, and closes the CSV file.
func (r *Reader) Load(ctx context.Context) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	f, err := os.Open(r.path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return domain.Table{}, fmt.Errorf("load %s: %w", r.path, err)
	}
	return t, nil
}

// Decode parses CSV text with a header row. Every column is read as text and
// then typed by domain.InferColumn. A header with no data rows decodes to a
// zero-row table.
func Decode(r io.Reader) (domain.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Table{}, fmt.Errorf("read csv: %w", err)
	}
	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		if header, ok := headerOnly(data); ok {
			return emptyTable(header)
		}
		return domain.Table{}, fmt.Errorf("parse csv: %w", df.Err)
	}
	return fromDataFrame(df)
}

// headerOnly reports whether data is a single well-formed CSV record.
// gota refuses such input as an empty DataFrame.
func headerOnly(data []byte) ([]string, bool) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil || len(records) != 1 {
		return nil, false
	}
	return records[0], true
}

func emptyTable(header []string) (domain.Table, error) {
	cols := make([]domain.Column, len(header))
	for i, name := range header {
		cols[i] = domain.InferColumn(name, nil, nil)
	}
	return domain.NewTable(cols...)
}

func fromDataFrame(df dataframe.DataFrame) (domain.Table, error) {
	names := df.Names()
	cols := make([]domain.Column, 0, len(names))
	for _, name := range names {
		s := df.Col(name)
		if s.Err != nil {
			return domain.Table{}, fmt.Errorf("column %q: %w", name, s.Err)
		}
		cols = append(cols, domain.InferColumn(name, s.Records(), s.IsNaN()))
	}
	return domain.NewTable(cols...)
}
