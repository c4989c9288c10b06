package htmltable

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// CellMode selects how a cell element is turned into a string.
type CellMode int

const (
	// CellText uses the text content of the cell.
	CellText CellMode = iota
	// CellHTML uses the inner markup of the cell.
	CellHTML
)

// String returns the name of the mode.
func (m CellMode) String() string {
	switch m {
	case CellText:
		return "text"
	case CellHTML:
		return "html"
	default:
		return "unknown"
	}
}

var (
	matchTable = cascadia.MustCompile("table")
	matchRow   = cascadia.MustCompile("tr")
	matchTH    = cascadia.MustCompile("th")
	matchTD    = cascadia.MustCompile("td")
)

// content returns the trimmed content of the first element in s.
func (m CellMode) content(s *goquery.Selection) string {
	if m == CellHTML {
		h, err := s.Html()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(h)
	}
	return strings.TrimSpace(s.Text())
}

// cells returns the content of every element in row matching m, in
// document order.
func (m CellMode) cells(row *goquery.Selection, match cascadia.Selector) []string {
	found := row.FindMatcher(match)
	out := make([]string, 0, found.Length())
	found.Each(func(_ int, cell *goquery.Selection) {
		out = append(out, m.content(cell))
	})
	return out
}

// buildTable materializes the first element of sel as a Table.
//
// The first <tr> is the header row when it has at least one <th> cell; it is
// then excluded from the data rows. Every other row contributes its <td>
// cells, possibly none.
func buildTable(sel *goquery.Selection, mode CellMode) *Table {
	rows := sel.First().FindMatcher(matchRow)
	t := &Table{headers: Headers{}}
	if rows.Length() == 0 {
		t.data = [][]string{}
		return t
	}

	start := 0
	for i, name := range mode.cells(rows.First(), matchTH) {
		t.headers[name] = i
	}
	if len(t.headers) > 0 {
		start = 1
	}

	t.data = make([][]string, 0, rows.Length()-start)
	for i := start; i < rows.Length(); i++ {
		t.data = append(t.data, mode.cells(rows.Eq(i), matchTD))
	}
	return t
}
