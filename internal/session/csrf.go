package session

import (
	"io"

	"golang.org/x/net/html"
)

const csrfFieldName = "csrfmiddlewaretoken"

// extractCSRFToken finds the value of the csrfmiddlewaretoken input in
// a login page. The parser repairs malformed markup, and the search is
// depth-first in document order with the first match winning.
func extractCSRFToken(r io.Reader) (string, bool) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", false
	}
	return findCSRFInput(doc)
}

func findCSRFInput(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "input" {
		named := false
		value := ""
		for _, attr := range n.Attr {
			switch attr.Key {
			case "name":
				named = attr.Val == csrfFieldName
			case "value":
				value = attr.Val
			}
		}
		if named {
			return value, true
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if token, ok := findCSRFInput(child); ok {
			return token, ok
		}
	}
	return "", false
}
