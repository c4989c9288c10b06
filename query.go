package htmltable

import (
	"slices"
	"strings"
)

type queryKind uint8

const (
	queryFirst queryKind = iota
	queryByID
	queryByHeaders
)

// Query names the criterion used to pick one table out of a document.
// The zero value selects the first table.
type Query struct {
	kind    queryKind
	id      string
	headers []string
}

// First selects the first table in document order.
func First() Query {
	return Query{kind: queryFirst}
}

// ByID selects the table whose id attribute equals id.
func ByID(id string) Query {
	return Query{kind: queryByID, id: id}
}

// ByHeaders selects the first table whose header row contains every one of
// headers. With no headers it behaves like First.
func ByHeaders(headers ...string) Query {
	if len(headers) == 0 {
		return First()
	}
	return Query{kind: queryByHeaders, headers: slices.Clone(headers)}
}

// String returns a human readable form used in logs and error messages.
func (q Query) String() string {
	switch q.kind {
	case queryByID:
		return "id=" + q.id
	case queryByHeaders:
		return "headers=[" + strings.Join(q.headers, ",") + "]"
	default:
		return "first"
	}
}

// key returns a canonical form of q. Header order and duplicates do not
// change the result of a query, so they do not change the key either.
func (q Query) key() string {
	switch q.kind {
	case queryByID:
		return "i\x00" + q.id
	case queryByHeaders:
		h := slices.Clone(q.headers)
		slices.Sort(h)
		return "h\x00" + strings.Join(slices.Compact(h), "\x00")
	default:
		return "f"
	}
}
