package htmltable

import (
	"iter"
	"maps"
	"slices"
	"sort"
)

// Headers maps the text of each <th> cell in a table's header row to its
// zero-based position in that row.
//
// For the table
//
//	<table>
//	    <tr><th>Name</th><th>Age</th></tr>
//	    <tr><td>John</td><td>20</td></tr>
//	</table>
//
// Headers maps "Name" to 0 and "Age" to 1. When two header cells share the
// same text, the later position wins.
type Headers map[string]int

// Table is a parsed HTML table.
//
// A Table holds its own copy of every cell string, so it stays valid after
// the source document is discarded. It is immutable and safe for concurrent
// reads.
type Table struct {
	headers Headers
	data    [][]string
}

// Headers returns a copy of the table's headers.
//
// It is empty if the first row of the table had no <th> cells.
func (t *Table) Headers() Headers {
	return maps.Clone(t.headers)
}

// HeaderNames returns the header texts ordered by position.
// Positions lost to duplicate header text are skipped.
func (t *Table) HeaderNames() []string {
	names := make([]string, 0, len(t.headers))
	for name := range t.headers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return t.headers[names[i]] < t.headers[names[j]]
	})
	return names
}

// Len returns the number of data rows, excluding the header row.
func (t *Table) Len() int {
	return len(t.data)
}

// Row returns the i-th data row.
func (t *Table) Row(i int) (Row, bool) {
	if i < 0 || i >= len(t.data) {
		return Row{}, false
	}
	return t.row(i), true
}

// Rows returns an iterator over the data rows in document order.
//
// Only <td> cells are considered. If the first row of the table is a header
// row, meaning it contains at least one <th> cell, iteration starts on the
// second row; use Headers to access the header row in that case. The
// iterator can be ranged over any number of times.
func (t *Table) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for i := range t.data {
			if !yield(t.row(i)) {
				return
			}
		}
	}
}

// All returns an iterator over the data rows and their indexes.
func (t *Table) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i := range t.data {
			if !yield(i, t.row(i)) {
				return
			}
		}
	}
}

// Equal reports whether t and other have the same headers and rows.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	return maps.Equal(t.headers, other.headers) &&
		slices.EqualFunc(t.data, other.data, func(a, b []string) bool {
			return slices.Equal(a, b)
		})
}

func (t *Table) row(i int) Row {
	return Row{headers: t.headers, cells: slices.Clip(t.data[i])}
}

// Row is a view of one data row of a Table.
//
// A row consists of a number of data cells stored as strings. If the row
// contains the same number of cells as the table's header row, its cells can
// be safely accessed by header name with Get. Otherwise, the data should be
// accessed by position with Cells.
//
// A Row shares storage with its Table and is cheap to copy.
type Row struct {
	headers Headers
	cells   []string
}

// Len returns the number of cells in the row.
func (r Row) Len() int {
	return len(r.cells)
}

// IsEmpty reports whether the row contains no cells.
func (r Row) IsEmpty() bool {
	return len(r.cells) == 0
}

// Get returns the cell underneath header.
//
// The second result is false if there is no such header, or if the row has
// no cell at that header's position. The two cases are deliberately not
// distinguished.
func (r Row) Get(header string) (string, bool) {
	i, ok := r.headers[header]
	if !ok || i >= len(r.cells) {
		return "", false
	}
	return r.cells[i], true
}

// Cells returns all cells of the row in document order.
// The slice is shared with the Table and must not be modified.
func (r Row) Cells() []string {
	return r.cells
}

// All returns an iterator over the cells in document order.
func (r Row) All() iter.Seq[string] {
	return slices.Values(r.cells)
}

// Map returns the row's cells keyed by header for every header position
// the row actually has.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.headers))
	for name, i := range r.headers {
		if i < len(r.cells) {
			m[name] = r.cells[i]
		}
	}
	return m
}

// Equal reports whether r and other have equal headers and cells.
func (r Row) Equal(other Row) bool {
	return maps.Equal(r.headers, other.headers) && slices.Equal(r.cells, other.cells)
}
