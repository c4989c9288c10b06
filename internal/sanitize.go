package internal

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// nonContent elements never hold cell data; their text would only leak
// script or stylesheet source into cells.
var nonContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
}

var uriAttributes = map[string]bool{
	"href":       true,
	"src":        true,
	"cite":       true,
	"action":     true,
	"data":       true,
	"formaction": true,
	"poster":     true,
	"background": true,
	"longdesc":   true,
}

// Sanitize removes script-like elements, event handler attributes and
// unsafe URIs from the tree rooted at n, in place.
func Sanitize(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		if child.Type == html.ElementNode && nonContent[child.DataAtom] {
			n.RemoveChild(child)
		} else {
			Sanitize(child)
		}
		child = next
	}
	if n.Type == html.ElementNode && len(n.Attr) > 0 {
		n.Attr = filterAttrs(n.Attr)
	}
}

func filterAttrs(attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, attr := range attrs {
		key := strings.ToLower(attr.Key)
		if strings.HasPrefix(key, "on") {
			continue
		}
		if uriAttributes[key] && !isSafeURI(attr.Val) {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

func isSafeURI(uri string) bool {
	lower := strings.ToLower(strings.TrimSpace(uri))
	for _, scheme := range []string{"javascript:", "vbscript:", "file:"} {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	if strings.HasPrefix(lower, "data:") {
		return strings.HasPrefix(lower, "data:image/")
	}
	return true
}
