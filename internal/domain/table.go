package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the OWID dataset and the console.
const DateLayout = "2006-01-02"

// Kind identifies what a Value holds. The zero Kind is Missing.
type Kind uint8

const (
	Missing Kind = iota
	Text
	Number
	Date
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Text:
		return "text"
	case Number:
		return "number"
	case Date:
		return "date"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single table cell. The zero Value is missing.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
}

// TextValue returns a text cell.
func TextValue(s string) Value { return Value{Kind: Text, Str: s} }

// NumberValue returns a numeric cell. NaN and infinities are kept as numbers.
func NumberValue(f float64) Value { return Value{Kind: Number, Num: f} }

// DateValue returns a date cell.
func DateValue(t time.Time) Value { return Value{Kind: Date, Time: t} }

// IsMissing reports whether the cell has no value.
func (v Value) IsMissing() bool { return v.Kind == Missing }

// Float returns the numeric value, or NaN for anything that is not a number.
func (v Value) Float() float64 {
	if v.Kind != Number {
		return math.NaN()
	}
	return v.Num
}

// String formats the cell for console output.
func (v Value) String() string {
	switch v.Kind {
	case Text:
		return v.Str
	case Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case Date:
		return v.Time.Format(DateLayout)
	default:
		return "NaN"
	}
}

// Column is a named sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Len returns the number of cells.
func (c Column) Len() int { return len(c.Values) }

// MissingCount returns the number of missing cells.
func (c Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

func (c Column) clone() Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return Column{Name: c.Name, Values: values}
}

// InferColumn builds a column from raw CSV text. Cells flagged in missing become
// Missing. When every remaining cell parses as a float the column is numeric,
// otherwise every remaining cell is kept as text.
func InferColumn(name string, raw []string, missing []bool) Column {
	values := make([]Value, len(raw))
	numeric := true
	nums := make([]float64, len(raw))
	for i, s := range raw {
		if missing[i] {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = f
	}

	for i, s := range raw {
		switch {
		case missing[i]:
			values[i] = Value{}
		case numeric:
			values[i] = NumberValue(nums[i])
		default:
			values[i] = TextValue(s)
		}
	}
	return Column{Name: name, Values: values}
}

// Table is an ordered set of equal-length columns. Tables are treated as
// immutable: every operation returns a new Table and leaves its receiver as is.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// NewTable assembles columns into a Table. All columns must have the same
// length and distinct names.
func NewTable(columns ...Column) (Table, error) {
	t := Table{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c.Name]; dup {
			return Table{}, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return Table{}, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// Shape returns the row and column counts.
func (t Table) Shape() (rows, cols int) { return t.rows, len(t.columns) }

// Len returns the number of rows.
func (t Table) Len() int { return t.rows }

// Columns returns the column names in table order.
func (t Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table has the named column.
func (t Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The returned column shares storage with the
// table and must not be modified.
func (t Table) Column(name string) (Column, error) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return t.columns[i], nil
}

// Require returns ErrMissingColumn for the first name the table lacks.
func (t Table) Require(names ...string) error {
	for _, name := range names {
		if !t.Has(name) {
			return fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	return nil
}

// Rows returns a new table holding the given row positions, in the given order.
func (t Table) Rows(indices []int) Table {
	out := Table{
		columns: make([]Column, len(t.columns)),
		index:   t.index,
		rows:    len(indices),
	}
	for ci, c := range t.columns {
		values := make([]Value, len(indices))
		for j, ri := range indices {
			values[j] = c.Values[ri]
		}
		out.columns[ci] = Column{Name: c.Name, Values: values}
	}
	return out
}

// Head returns the first n rows.
func (t Table) Head(n int) Table {
	if n > t.rows {
		n = t.rows
	}
	if n < 0 {
		n = 0
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return t.Rows(indices)
}

// Select returns a table with only the named columns, in the given order.
func (t Table) Select(names ...string) (Table, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return Table{}, err
		}
		cols = append(cols, c.clone())
	}
	return NewTable(cols...)
}

// WithColumn returns a table with c added, replacing any column of the same name
// in place. c must have one cell per row.
func (t Table) WithColumn(c Column) (Table, error) {
	if len(t.columns) > 0 && c.Len() != t.rows {
		return Table{}, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
	}
	cols := make([]Column, len(t.columns), len(t.columns)+1)
	copy(cols, t.columns)
	if i, ok := t.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return NewTable(cols...)
}

// Cell returns the value at (row, column name).
func (t Table) Cell(row int, name string) (Value, error) {
	c, err := t.Column(name)
	if err != nil {
		return Value{}, err
	}
	if row < 0 || row >= t.rows {
		return Value{}, fmt.Errorf("row %d out of range [0,%d)", row, t.rows)
	}
	return c.Values[row], nil
}

// RequireNumeric returns ErrNotNumeric when a named column holds text. The error
// names the first cell that does not parse as a number, or the first text cell
// when the offending row has already been filtered away.
func (t Table) RequireNumeric(names ...string) error {
	for _, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return err
		}
		if row, ok := c.firstNonNumeric(); ok {
			return fmt.Errorf("%w: column %q row %d: %q", ErrNotNumeric, name, row, c.Values[row].Str)
		}
	}
	return nil
}

func (c Column) firstNonNumeric() (int, bool) {
	first := -1
	for i, v := range c.Values {
		if v.Kind != Text {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err != nil {
			return i, true
		}
		if first < 0 {
			first = i
		}
	}
	return first, first >= 0
}

// MissingCount pairs a column name with its number of missing cells.
type MissingCount struct {
	Column  string
	Missing int
}

// MissingCounts returns the missing-cell count of every column in table order.
func (t Table) MissingCounts() []MissingCount {
	counts := make([]MissingCount, len(t.columns))
	for i, c := range t.columns {
		counts[i] = MissingCount{Column: c.Name, Missing: c.MissingCount()}
	}
	return counts
}
