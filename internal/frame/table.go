package frame

import (
	"encoding/json"
	"fmt"
)

// Table is the column-oriented representation: ordered column names with one
// value slice per column, all of equal length. Column order is fixed at
// construction: metadata first (date, hour, latitude, longitude), then
// variables in requested order.
type Table struct {
	columns []string
	data    map[string][]any
	length  int
}

// NewTable creates an empty table with the given column order. Duplicate
// column names are collapsed to the first occurrence.
func NewTable(columns []string) *Table {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		data:    make(map[string][]any, len(columns)),
	}
	for _, c := range columns {
		if _, ok := t.data[c]; ok {
			continue
		}
		t.columns = append(t.columns, c)
		t.data[c] = nil
	}
	return t
}

// Columns returns the column names in order. The caller must not modify the
// returned slice.
func (t *Table) Columns() []string { return t.columns }

// Len returns the number of rows.
func (t *Table) Len() int { return t.length }

// Column returns the values of the named column, or nil when the column does
// not exist. The caller must not modify the returned slice.
func (t *Table) Column(name string) []any { return t.data[name] }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

// AppendRow appends one row. Columns absent from values get nil, which the
// cleaner treats as the missing marker. Keys in values that are not table
// columns are ignored.
func (t *Table) AppendRow(values map[string]any) {
	for _, c := range t.columns {
		t.data[c] = append(t.data[c], values[c])
	}
	t.length++
}

// Row returns a copy of row i as a Record.
func (t *Table) Row(i int) Record {
	rec := make(Record, len(t.columns))
	for _, c := range t.columns {
		rec[c] = t.data[c][i]
	}
	return rec
}

// set writes a single cell. Row index must be in range.
func (t *Table) set(column string, i int, v any) {
	t.data[column][i] = v
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [[...], ...]}
// so column order survives serialization.
func (t *Table) MarshalJSON() ([]byte, error) {
	type wire struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	w := wire{Columns: t.columns, Rows: make([][]any, t.length)}
	for i := 0; i < t.length; i++ {
		row := make([]any, len(t.columns))
		for j, c := range t.columns {
			row[j] = t.data[c][i]
		}
		w.Rows[i] = row
	}
	return json.Marshal(w)
}

// String summarizes the table for logs.
func (t *Table) String() string {
	return fmt.Sprintf("Table(%d columns, %d rows)", len(t.columns), t.length)
}
