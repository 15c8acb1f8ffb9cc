package models

import "strings"

// Table is an in-memory CSV extract: an ordered header and string rows.
// Rows shorter than the header are treated as having empty trailing cells.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// ColumnIndex returns the index of the first header matching any of the given
// names (whitespace-trimmed, exact match), or -1.
func (t *Table) ColumnIndex(names ...string) int {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		for i, column := range t.Header {
			if strings.TrimSpace(column) == name {
				return i
			}
		}
	}
	return -1
}

// Cell returns the trimmed value at row/column, or "" when the row is short.
func (t *Table) Cell(row, column int) string {
	if row < 0 || row >= len(t.Rows) || column < 0 || column >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][column])
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Clone returns a deep copy so callers can never mutate the source extract.
func (t *Table) Clone() Table {
	header := make([]string, len(t.Header))
	copy(header, t.Header)

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]string, len(row))
		copy(rows[i], row)
	}

	return Table{Header: header, Rows: rows}
}
