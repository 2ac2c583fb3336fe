// Package tabular reads and writes tables of named string columns,
// dispatching on file extension. It is the only place file formats are
// known; everything downstream works on in-memory Tables.
package tabular

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Table is an ordered-column table of string cells. Column order is
// preserved from the source file and on write.
type Table struct {
	Columns []string
	Rows    [][]string

	colIdx map[string]int
}

// NewTable builds an empty table with the given columns.
func NewTable(columns []string) *Table {
	t := &Table{Columns: columns}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.colIdx = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.colIdx[strings.TrimSpace(c)] = i
	}
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIdx[name]
	return ok
}

// Cell returns the value at (row, column), or "" if the column is absent
// or the row is ragged short.
func (t *Table) Cell(row int, column string) string {
	idx, ok := t.colIdx[column]
	if !ok || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// AppendRow adds a row. Short rows are padded to column width.
func (t *Table) AppendRow(row []string) {
	for len(row) < len(t.Columns) {
		row = append(row, "")
	}
	t.Rows = append(t.Rows, row)
}

// AddColumn appends a new column filled from values, which must be either
// empty (all cells blank) or one value per existing row.
func (t *Table) AddColumn(name string, values []string) error {
	if len(values) != 0 && len(values) != len(t.Rows) {
		return eris.Errorf("tabular: column %s has %d values for %d rows", name, len(values), len(t.Rows))
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		v := ""
		if len(values) != 0 {
			v = values[i]
		}
		t.Rows[i] = append(t.Rows[i], v)
	}
	t.reindex()
	return nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Clone returns a deep copy, so added columns never alias the source.
func (t *Table) Clone() *Table {
	out := NewTable(append([]string(nil), t.Columns...))
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// RequireColumns fails if any named column is missing.
func (t *Table) RequireColumns(names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return eris.Errorf("tabular: missing required column %q", n)
		}
	}
	return nil
}
