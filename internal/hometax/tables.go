package hometax

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// grid is a parsed HTML table: header cells from thead and one entry per
// body row, in document order. Row indexes match querySelectorAll("<table> tbody tr").
type grid struct {
	Header []string
	Rows   []gridRow
}

type gridRow struct {
	Cells []string
}

// Text joins the row's cells the way innerText separates them.
func (r gridRow) Text() string {
	return strings.Join(r.Cells, " ")
}

// parseGrid parses the outerHTML of a table or of a container holding one.
func parseGrid(fragment string) (grid, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return grid{}, fmt.Errorf("failed to parse table html: %w", err)
	}

	var g grid
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Th && hasAncestor(n, atom.Thead):
				if text := nodeText(n); text != "" {
					g.Header = append(g.Header, text)
				}
			case n.DataAtom == atom.Tr && hasAncestor(n, atom.Tbody):
				g.Rows = append(g.Rows, parseRow(n))
				// Rows do not nest in the portal's grids.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return g, nil
}

func parseRow(tr *html.Node) gridRow {
	var row gridRow
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			row.Cells = append(row.Cells, nodeText(c))
		}
	}
	if len(row.Cells) == 0 {
		if text := nodeText(tr); text != "" {
			row.Cells = []string{text}
		}
	}
	return row
}

// listItems returns the text of each <li> in document order, read from its
// first anchor when it has one.
func listItems(fragment string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("failed to parse list html: %w", err)
	}
	var items []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Li {
			src := n
			if a := firstElement(n, atom.A); a != nil {
				src = a
			}
			items = append(items, nodeText(src))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return items, nil
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := firstElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func hasAncestor(n *html.Node, a atom.Atom) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == a {
			return true
		}
	}
	return false
}

// nodeText returns the whitespace-collapsed text content of n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
