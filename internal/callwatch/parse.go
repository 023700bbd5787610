package callwatch

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Columns maps the zero-based table columns of interest. The alias column
// carries the radio ID as its last whitespace-delimited token.
type Columns struct {
	Alias   int
	Group   int
	Network int
}

// DefaultColumns matches the public CallWatch table layout.
var DefaultColumns = Columns{Alias: 3, Group: 4, Network: 6}

func (c Columns) max() int {
	m := c.Alias
	if c.Group > m {
		m = c.Group
	}
	if c.Network > m {
		m = c.Network
	}
	return m
}

// parseTable extracts observed rows from the first table in an HTML document.
// The header row is skipped; rows that are too short or carry a non-numeric
// radio ID are dropped. maxRows <= 0 means unlimited.
func parseTable(r io.Reader, cols Columns, maxRows int) ([]Row, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	table := findFirst(doc, "table")
	if table == nil {
		return nil, nil
	}
	var rows []Row
	first := true
	for _, tr := range findAll(table, "tr") {
		if first {
			first = false
			continue
		}
		if maxRows > 0 && len(rows) >= maxRows {
			break
		}
		cells := findAll(tr, "td")
		if len(cells) <= cols.max() {
			continue
		}
		id, ok := extractRadioID(nodeText(cells[cols.Alias]))
		if !ok {
			continue
		}
		rows = append(rows, Row{
			RadioID: id,
			Group:   strings.TrimSpace(nodeText(cells[cols.Group])),
			Network: strings.TrimSpace(nodeText(cells[cols.Network])),
		})
	}
	return rows, nil
}

// extractRadioID pulls the numeric ID from the last token of an alias label.
func extractRadioID(alias string) (int, bool) {
	fields := strings.Fields(alias)
	if len(fields) == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, false
	}
	return id, true
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
