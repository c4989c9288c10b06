package htmltable

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML document that can be searched for tables
// several times without parsing the markup again.
type Document struct {
	doc *goquery.Document
}

// Parse parses markup into a Document. Parsing is best effort: malformed or
// partial markup never fails, it only yields fewer elements.
func Parse(htmlContent string) *Document {
	d, err := ParseReader(strings.NewReader(htmlContent))
	if err != nil {
		// strings.Reader never fails, so this is unreachable.
		return NewDocument(&html.Node{Type: html.DocumentNode})
	}
	return d
}

// ParseReader parses markup read from r. The only errors reported are
// errors returned by r.
func ParseReader(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// NewDocument wraps an already parsed node tree.
func NewDocument(root *html.Node) *Document {
	return &Document{doc: goquery.NewDocumentFromNode(root)}
}

// Selection returns the document root as a goquery selection, for callers
// that want to narrow the search to a subtree before using the ...In
// functions.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// FindFirst finds the first table in the document.
func (d *Document) FindFirst() *Table {
	return FindFirstIn(d.doc.Selection)
}

// FindByID finds the table with an id of id.
func (d *Document) FindByID(id string) *Table {
	return FindByIDIn(d.doc.Selection, id)
}

// FindByHeaders finds the first table whose first row contains all of
// headers. The order does not matter.
func (d *Document) FindByHeaders(headers ...string) *Table {
	return FindByHeadersIn(d.doc.Selection, headers...)
}

// FindAll returns every table in the document in document order.
func (d *Document) FindAll() []*Table {
	return FindAllIn(d.doc.Selection)
}
