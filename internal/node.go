package internal

import "golang.org/x/net/html"

// WalkNodes visits node and its descendants in document order. Returning
// false from fn skips the children of the current node.
func WalkNodes(node *html.Node, fn func(*html.Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		WalkNodes(child, fn)
	}
}

// ExceedsDepth reports whether any node lies more than limit levels below
// root. It stops at the first offending node.
func ExceedsDepth(root *html.Node, limit int) bool {
	return exceedsDepth(root, 0, limit)
}

func exceedsDepth(n *html.Node, depth, limit int) bool {
	if depth > limit {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if exceedsDepth(c, depth+1, limit) {
			return true
		}
	}
	return false
}

// CountElements returns the number of element nodes named tag below root.
func CountElements(root *html.Node, tag string) int {
	n := 0
	WalkNodes(root, func(node *html.Node) bool {
		if node.Type == html.ElementNode && node.Data == tag {
			n++
		}
		return true
	})
	return n
}
