// Package htmltable extracts data from HTML tables.
//
// There are three entry points, each returning nil when no table matches:
//
//   - FindFirst finds the first table.
//   - FindByID finds a table by its HTML id.
//   - FindByHeaders finds a table that has certain headers.
//
// Once you have a Table, range over Rows and read each Row by header name
// or by position:
//
//	t := htmltable.FindFirst(`
//	    <table>
//	        <tr><th>Name</th><th>Age</th></tr>
//	        <tr><td>John</td><td>20</td></tr>
//	    </table>`)
//	for row := range t.Rows() {
//	    name, _ := row.Get("Name")
//	    age, _ := row.Get("Age")
//	    fmt.Printf("%s is %s years old\n", name, age)
//	}
//
// Parse a Document once to search it several times, or pass a goquery
// selection to the ...In variants to search a subtree. Processor adds input
// limits, caching, charset decoding and batch processing on top.
package htmltable

import "github.com/PuerkitoBio/goquery"

// FindFirst finds the first table in htmlContent.
func FindFirst(htmlContent string) *Table {
	return Parse(htmlContent).FindFirst()
}

// FindByID finds the table in htmlContent with an id of id.
func FindByID(htmlContent, id string) *Table {
	return Parse(htmlContent).FindByID(id)
}

// FindByHeaders finds the table in htmlContent whose first row contains all
// of headers. The order does not matter.
//
// If headers is empty, this is the same as FindFirst.
func FindByHeaders(htmlContent string, headers ...string) *Table {
	return Parse(htmlContent).FindByHeaders(headers...)
}

// FindAll returns every table in htmlContent in document order.
func FindAll(htmlContent string) []*Table {
	return Parse(htmlContent).FindAll()
}

// FindFirstIn finds the first table in sel. The selected nodes count as
// well as their descendants, so a selected <table> is found itself.
func FindFirstIn(sel *goquery.Selection) *Table {
	return find(sel, First(), CellText)
}

// FindByIDIn finds the table in sel with an id of id.
func FindByIDIn(sel *goquery.Selection, id string) *Table {
	return find(sel, ByID(id), CellText)
}

// FindByHeadersIn finds the first table in sel whose first row contains
// all of headers.
func FindByHeadersIn(sel *goquery.Selection, headers ...string) *Table {
	return find(sel, ByHeaders(headers...), CellText)
}

// FindAllIn returns every table in sel in document order.
func FindAllIn(sel *goquery.Selection) []*Table {
	return findAll(sel, CellText)
}

// FromSelection builds a Table from the first element of sel, which is
// expected to be a <table>. It returns nil for an empty selection.
func FromSelection(sel *goquery.Selection) *Table {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	return buildTable(sel, CellText)
}

func find(root *goquery.Selection, q Query, mode CellMode) *Table {
	if root == nil {
		return nil
	}
	l := locator{mode: mode}
	var match *goquery.Selection
	switch q.kind {
	case queryByID:
		match = l.byID(root, q.id)
	case queryByHeaders:
		match = l.byHeaders(root, q.headers)
	default:
		match = l.first(root)
	}
	if match == nil {
		return nil
	}
	return buildTable(match, mode)
}

func findAll(root *goquery.Selection, mode CellMode) []*Table {
	var out []*Table
	if root == nil {
		return out
	}
	for table := range tables(root) {
		out = append(out, buildTable(table, mode))
	}
	return out
}
