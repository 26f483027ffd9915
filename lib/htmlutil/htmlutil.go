package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// CleanText returns the text of the first node in sel with surrounding
// whitespace (including non-breaking spaces) removed.
func CleanText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(GetText(sel.Get(0)))
}

// FirstMatch returns the first non-empty selection produced by the
// selectors, tried in order within root.
func FirstMatch(root *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, selector := range selectors {
		found := root.Find(selector)
		if found.Length() > 0 {
			return found.First()
		}
	}
	return root.Slice(0, 0)
}

// NextSiblingMatching finds the nearest following sibling element of sel
// that matches selector, skipping over siblings that do not.
func NextSiblingMatching(sel *goquery.Selection, selector string) *goquery.Selection {
	return sel.NextAllFiltered(selector).First()
}
