// Package frame provides the in-memory tabular dataset: an ordered set of
// named columns whose cells share one Go type per column, with nil as the
// missing marker.
package frame

import (
	"fmt"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
)

// Kind is the inferred type of a column
type Kind string

const (
	// KindInt holds int64 cells
	KindInt Kind = "int64"
	// KindFloat holds float64 cells
	KindFloat Kind = "float64"
	// KindBool holds bool cells
	KindBool Kind = "bool"
	// KindString holds string cells
	KindString Kind = "string"
)

// IsNumeric reports whether statistics can be computed over the kind
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// Column is a named, typed vector of cells. A nil cell is missing.
type Column struct {
	Name   string
	Kind   Kind
	Values []interface{}
}

// NewColumn creates a column, checking every non-nil cell against kind
func NewColumn(name string, kind Kind, values []interface{}) (*Column, error) {
	for i, v := range values {
		if !cellMatches(kind, v) {
			return nil, errors.Newf(errors.ErrorTypeData, "column %q row %d: %T is not %s", name, i, v, kind).
				WithDetail("column", name)
		}
	}
	return &Column{Name: name, Kind: kind, Values: values}, nil
}

// Len returns the number of cells
func (c *Column) Len() int {
	return len(c.Values)
}

// NullCount returns the number of missing cells
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Floats returns the non-missing cells of a numeric column as float64
func (c *Column) Floats() []float64 {
	if !c.Kind.IsNumeric() {
		return nil
	}
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		switch x := v.(type) {
		case int64:
			out = append(out, float64(x))
		case float64:
			out = append(out, x)
		}
	}
	return out
}

func (c *Column) slice(n int) *Column {
	if n > len(c.Values) {
		n = len(c.Values)
	}
	values := make([]interface{}, n)
	copy(values, c.Values[:n])
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}

func cellMatches(kind Kind, v interface{}) bool {
	if v == nil {
		return true
	}
	switch kind {
	case KindInt:
		_, ok := v.(int64)
		return ok
	case KindFloat:
		_, ok := v.(float64)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindString:
		_, ok := v.(string)
		return ok
	default:
		return false
	}
}

// Frame is an immutable table of equally long, uniquely named columns
type Frame struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a frame from columns
func New(columns ...*Column) (*Frame, error) {
	f := &Frame{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		if col == nil {
			return nil, errors.Newf(errors.ErrorTypeValidation, "column %d is nil", i)
		}
		if _, dup := f.index[col.Name]; dup {
			return nil, errors.Newf(errors.ErrorTypeValidation, "duplicate column name %q", col.Name)
		}
		if i == 0 {
			f.rows = col.Len()
		} else if col.Len() != f.rows {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"column %q has %d rows, expected %d", col.Name, col.Len(), f.rows)
		}
		f.index[col.Name] = i
		f.columns = append(f.columns, col)
	}

	return f, nil
}

// MustNew is New that panics on error, for fixtures
func MustNew(columns ...*Column) *Frame {
	f, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return f
}

// NumRows returns the row count
func (f *Frame) NumRows() int { return f.rows }

// NumCols returns the column count
func (f *Frame) NumCols() int { return len(f.columns) }

// Shape returns (rows, columns)
func (f *Frame) Shape() (int, int) { return f.rows, len(f.columns) }

// ColumnNames returns the column names in order
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. Callers must not modify them.
func (f *Frame) Columns() []*Column {
	out := make([]*Column, len(f.columns))
	copy(out, f.columns)
	return out
}

// Column looks a column up by name
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

// Row returns the cells of row i
func (f *Frame) Row(i int) []interface{} {
	row := make([]interface{}, len(f.columns))
	for j, c := range f.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Head returns a new frame with the first n rows
func (f *Frame) Head(n int) *Frame {
	if n < 0 {
		n = 0
	}
	cols := make([]*Column, len(f.columns))
	for i, c := range f.columns {
		cols[i] = c.slice(n)
	}
	head, _ := New(cols...)
	return head
}

// Equal reports whether both frames have the same columns, kinds and cells
func (f *Frame) Equal(other *Frame) bool {
	if other == nil || f.rows != other.rows || len(f.columns) != len(other.columns) {
		return false
	}
	for i, c := range f.columns {
		o := other.columns[i]
		if c.Name != o.Name || c.Kind != o.Kind {
			return false
		}
		for r := range c.Values {
			if c.Values[r] != o.Values[r] {
				return false
			}
		}
	}
	return true
}

// String renders the shape, for log fields
func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%d rows, %d columns)", f.rows, len(f.columns))
}
