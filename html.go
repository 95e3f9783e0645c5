package dummyauth

import (
	"strings"

	"golang.org/x/net/html"
)

// findLink returns the href of the first <link> element in document order that
// lists rel amongst its rel values. Elements without an href are skipped.
func findLink(root *html.Node, rel string) (href string, ok bool) {
	for _, link := range searchAll(root, isLink) {
		if href = getAttr(link, "href"); href != "" && hasRel(link, rel) {
			return href, true
		}
	}

	return "", false
}

func hasRel(node *html.Node, rel string) bool {
	for _, candidate := range strings.Fields(getAttr(node, "rel")) {
		if strings.EqualFold(candidate, rel) {
			return true
		}
	}

	return false
}

func searchAll(node *html.Node, pred func(*html.Node) bool) (results []*html.Node) {
	if pred(node) {
		results = append(results, node)
		return
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		result := searchAll(child, pred)
		if len(result) > 0 {
			results = append(results, result...)
		}
	}

	return
}

func isLink(node *html.Node) bool {
	return node.Type == html.ElementNode && node.Data == "link"
}

func getAttr(node *html.Node, attrName string) string {
	for _, attr := range node.Attr {
		if attr.Key == attrName {
			return attr.Val
		}
	}

	return ""
}
