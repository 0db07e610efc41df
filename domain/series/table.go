package series

import (
	"fmt"
	"time"

	"gapfill/domain/core"
)

// Column is one named column of a table. Text is set only for columns that
// did not parse as numbers; those are carried through untouched.
type Column struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values,omitempty"`
	Text   []string  `json:"text,omitempty"`
}

// IsNumeric reports whether the column holds float values
func (c Column) IsNumeric() bool {
	return c.Text == nil
}

// Len returns the column length regardless of its kind
func (c Column) Len() int {
	if c.IsNumeric() {
		return len(c.Values)
	}
	return len(c.Text)
}

// Table is a set of columns sharing one timestamp axis
type Table struct {
	TimeColumn string      `json:"time_column"`
	Timestamps []time.Time `json:"timestamps"`
	Columns    []Column    `json:"columns"`
}

// Rows returns the number of rows on the timestamp axis
func (t *Table) Rows() int {
	return len(t.Timestamps)
}

// Column looks a column up by name
func (t *Table) Column(name string) (*Column, error) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrColumnNotFound, name)
}

// Series returns the named numeric column as a series sharing the table's
// buffers. Clone it before mutating.
func (t *Table) Series(name string) (Series, error) {
	col, err := t.Column(name)
	if err != nil {
		return Series{}, err
	}
	if !col.IsNumeric() {
		return Series{}, core.NewMalformedInputError(fmt.Sprintf("column %q is not numeric", name))
	}
	return New(col.Name, t.Timestamps, col.Values), nil
}

// NumericColumns lists the names of numeric columns in table order
func (t *Table) NumericColumns() []string {
	var names []string
	for _, c := range t.Columns {
		if c.IsNumeric() {
			names = append(names, c.Name)
		}
	}
	return names
}

// Clone deep-copies the table
func (t *Table) Clone() *Table {
	out := &Table{
		TimeColumn: t.TimeColumn,
		Timestamps: append([]time.Time(nil), t.Timestamps...),
		Columns:    make([]Column, len(t.Columns)),
	}
	for i, c := range t.Columns {
		out.Columns[i] = Column{Name: c.Name}
		if c.Values != nil {
			out.Columns[i].Values = append([]float64(nil), c.Values...)
		}
		if c.Text != nil {
			out.Columns[i].Text = append([]string(nil), c.Text...)
		}
	}
	return out
}

// Validate checks that every column is aligned to the timestamp axis and
// that the table is long enough for the smallest imputation method.
func (t *Table) Validate() error {
	for _, c := range t.Columns {
		if c.Len() != len(t.Timestamps) {
			return core.NewLengthMismatchError(c.Name, c.Len(), len(t.Timestamps))
		}
	}
	if len(t.Timestamps) < MinLength {
		return core.NewSeriesTooShortError(t.TimeColumn, len(t.Timestamps), MinLength)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Name] {
			return core.NewMalformedInputError(fmt.Sprintf("duplicate column %q", c.Name))
		}
		seen[c.Name] = true
	}
	return nil
}
