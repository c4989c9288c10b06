package htmltable

import (
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// locator finds table elements within a root selection. Every method is a
// read-only query and returns nil when nothing matches.
type locator struct {
	mode CellMode
}

// matchAll returns the nodes of root that match m, together with their
// matching descendants, in document order. A selection holding a <table>
// therefore matches that table itself.
func matchAll(root *goquery.Selection, m cascadia.Selector) *goquery.Selection {
	var nodes []*html.Node
	for _, n := range root.Nodes {
		nodes = append(nodes, m.MatchAll(n)...)
	}
	return root.Slice(0, 0).AddNodes(nodes...)
}

// matchFirst is like matchAll but stops at the first match. It returns nil
// when nothing matches.
func matchFirst(root *goquery.Selection, m cascadia.Selector) *goquery.Selection {
	for _, n := range root.Nodes {
		if found := m.MatchFirst(n); found != nil {
			return root.Slice(0, 0).AddNodes(found)
		}
	}
	return nil
}

// tables yields each table in root, root included, in document order.
func tables(root *goquery.Selection) iter.Seq[*goquery.Selection] {
	return func(yield func(*goquery.Selection) bool) {
		found := matchAll(root, matchTable)
		for i := range found.Length() {
			if !yield(found.Eq(i)) {
				return
			}
		}
	}
}

func (l locator) first(root *goquery.Selection) *goquery.Selection {
	return matchFirst(root, matchTable)
}

func (l locator) byID(root *goquery.Selection, id string) *goquery.Selection {
	if id == "" {
		return nil
	}
	sel, err := cascadia.Compile("table#" + escapeIdent(id))
	if err != nil {
		return nil
	}
	return matchFirst(root, sel)
}

func (l locator) byHeaders(root *goquery.Selection, required []string) *goquery.Selection {
	if len(required) == 0 {
		return l.first(root)
	}
	for table := range tables(root) {
		if l.hasHeaders(table, required) {
			return table
		}
	}
	return nil
}

// hasHeaders reports whether the <th> cells of the table's first row
// contain every required header text.
func (l locator) hasHeaders(table *goquery.Selection, required []string) bool {
	first := table.FindMatcher(goquery.SingleMatcher(matchRow)).First()
	if first.Length() == 0 {
		return false
	}
	names := l.mode.cells(first, matchTH)
	if len(names) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	for _, h := range required {
		if _, ok := set[h]; !ok {
			return false
		}
	}
	return true
}

// escapeIdent serializes s as a CSS identifier so it can be embedded in a
// selector verbatim.
func escapeIdent(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for i, r := range s {
		switch {
		case r == 0:
			sb.WriteRune('\uFFFD')
		case r < 0x20 || r == 0x7f,
			i == 0 && r >= '0' && r <= '9',
			i == 1 && r >= '0' && r <= '9' && s[0] == '-':
			writeHexEscape(&sb, r)
		case i == 0 && r == '-' && len(s) == 1:
			sb.WriteString(`\-`)
		case r >= 0x80, r == '-', r == '_',
			r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			sb.WriteRune(r)
		default:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func writeHexEscape(sb *strings.Builder, r rune) {
	const hex = "0123456789abcdef"
	sb.WriteByte('\\')
	var buf [8]byte
	n := len(buf)
	for v := uint32(r); ; v >>= 4 {
		n--
		buf[n] = hex[v&0xf]
		if v < 0x10 {
			break
		}
	}
	sb.Write(buf[n:])
	sb.WriteByte(' ')
}
