package normalize

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements that never carry job description content.
var strippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Noscript: true,
}

// Container tags and class-name fragments that mark the main content block.
var (
	containerElements = map[atom.Atom]bool{
		atom.Main:    true,
		atom.Article: true,
		atom.Div:     true,
	}
	contentClassHints = []string{"content", "main", "body", "article", "job", "description"}
)

// ExtractText parses an HTML document and returns the text of its most
// plausible content container, whitespace collapsed to single spaces.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	strip(doc)

	root := findFirst(doc, isContentContainer)
	if root == nil {
		root = findFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.DataAtom == atom.Body
		})
	}
	if root == nil {
		root = doc
	}

	var parts []string
	collectText(root, &parts)

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
}

func strip(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.ElementNode && strippedElements[child.DataAtom] {
			n.RemoveChild(child)
		} else {
			strip(child)
		}
		child = next
	}
}

func isContentContainer(n *html.Node) bool {
	if n.Type != html.ElementNode || !containerElements[n.DataAtom] {
		return false
	}

	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		class := strings.ToLower(attr.Val)
		for _, hint := range contentClassHints {
			if strings.Contains(class, hint) {
				return true
			}
		}
	}
	return false
}

// findFirst walks the tree in document order.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, match); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}
