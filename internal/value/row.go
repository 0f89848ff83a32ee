package value

import (
	"fmt"
	"strings"
)

// Row is an ordered sequence of (column name, Value) pairs.
//
// Column names may repeat. A Row is immutable once built.
type Row struct {
	columns []string
	values  []Value
}

// NewRow builds a Row. It panics if the slices differ in length, which is
// always a programming error in the adapter that produced them.
func NewRow(columns []string, values []Value) Row {
	if len(columns) != len(values) {
		panic(fmt.Sprintf("value: row has %d columns but %d values", len(columns), len(values)))
	}
	return Row{columns: columns, values: values}
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.values) }

// Columns returns the column names in order.
func (r Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values returns the values in column order.
func (r Row) Values() []Value {
	out := make([]Value, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the value at position i.
func (r Row) Get(i int) (Value, error) {
	if i < 0 || i >= len(r.values) {
		return Null(), fmt.Errorf("value: column index %d out of range (len %d)", i, len(r.values))
	}
	return r.values[i], nil
}

// Lookup returns the value of the first column called name.
func (r Row) Lookup(name string) (Value, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return Null(), false
}

// String renders the row as {name: value, ...}.
func (r Row) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i := range r.values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(r.columns[i])
		sb.WriteString(": ")
		sb.WriteString(r.values[i].Describe())
	}
	sb.WriteByte('}')
	return sb.String()
}
