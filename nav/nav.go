// Package nav parses the sidebar.md and topbar.md navigation files.
package nav

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// SidebarFile is the navigation tree shown beside every page.
	SidebarFile = "sidebar.md"
	// TopbarFile holds the sectioned links of the top bar.
	TopbarFile = "topbar.md"
)

// Node is one navigation entry. The sidebar root is a synthetic node with an
// empty label.
type Node struct {
	Label    string  `json:"label"`
	Href     string  `json:"href,omitempty"`
	Target   string  `json:"target,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// IsExternal reports whether the node links outside the documentation tree.
func (n *Node) IsExternal() bool {
	return isExternal(n.Target)
}

// MarkdownPath returns the root-relative `/page.md` path of an internal page
// link, without fragment.
func (n *Node) MarkdownPath() (string, bool) {
	if n.Target == "" || n.IsExternal() || strings.HasPrefix(n.Target, "#") {
		return "", false
	}
	target, _, _ := strings.Cut(n.Target, "#")
	target, _, _ = strings.Cut(target, "?")
	lower := strings.ToLower(target)
	switch {
	case strings.HasSuffix(lower, ".md"):
	case strings.HasSuffix(lower, ".html"):
		target = target[:len(target)-len(".html")] + ".md"
	default:
		return "", false
	}
	return path.Clean("/" + strings.TrimPrefix(target, "/")), true
}

// Walk visits n and its descendants depth first, in document order.
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int), depth int) {
	fn(n, depth)
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// LoadSidebar reads and parses sidebar.md. A missing file yields an empty root.
func LoadSidebar(rootDir string) (*Node, error) {
	source, err := readOptional(filepath.Join(rootDir, SidebarFile))
	if err != nil {
		return nil, err
	}
	return ParseSidebar(source), nil
}

// LoadTopbar reads and parses topbar.md. A missing file yields no sections.
func LoadTopbar(rootDir string) ([]*Node, error) {
	source, err := readOptional(filepath.Join(rootDir, TopbarFile))
	if err != nil {
		return nil, err
	}
	return ParseTopbar(source), nil
}

func readOptional(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read navigation %s: %w", filePath, err)
	}
	return data, nil
}

var navParser = goldmark.New().Parser()

// ParseSidebar builds the navigation tree. List nesting becomes tree depth;
// indentation that skips a level is attached to the nearest open parent.
func ParseSidebar(source []byte) *Node {
	root := &Node{}
	if len(source) == 0 {
		return root
	}
	source = normalizeListIndent(source)
	doc := navParser.Parse(text.NewReader(source))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if list, ok := n.(*ast.List); ok {
			root.Children = append(root.Children, listNodes(list, source)...)
		}
	}
	return root
}

// ParseTopbar returns one section per heading with the links listed under it.
// Links before the first heading form an unlabeled section. Empty sections are
// dropped.
func ParseTopbar(source []byte) []*Node {
	if len(source) == 0 {
		return nil
	}
	source = normalizeListIndent(source)
	doc := navParser.Parse(text.NewReader(source))

	var sections []*Node
	current := &Node{}
	flush := func() {
		if len(current.Children) > 0 {
			sections = append(sections, current)
		}
	}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch block := n.(type) {
		case *ast.Heading:
			flush()
			current = &Node{Label: inlineText(block, source)}
		case *ast.List:
			current.Children = append(current.Children, listNodes(block, source)...)
		case *ast.Paragraph:
			current.Children = append(current.Children, paragraphLinks(block, source)...)
		}
	}
	flush()
	return sections
}

// normalizeListIndent rewrites list items to two columns per nesting level.
// An item indented further than one level below its parent would otherwise
// parse as paragraph text or an indented code block; here it becomes a child
// of the nearest shallower item.
func normalizeListIndent(source []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(source))
	var open []int // indent columns of the enclosing items
	for _, line := range strings.SplitAfter(string(source), "\n") {
		body := strings.TrimLeft(line, " \t")
		column := indentColumns(line[:len(line)-len(body)])
		rest, isItem := listItemText(body)
		switch {
		case strings.TrimSpace(body) == "":
			out.WriteString(line)
		case isItem:
			for len(open) > 0 && open[len(open)-1] >= column {
				open = open[:len(open)-1]
			}
			out.WriteString(strings.Repeat("  ", len(open)))
			out.WriteString("- ")
			out.WriteString(rest)
			open = append(open, column)
		case column == 0:
			open = open[:0]
			out.WriteString(line)
		default:
			// continuation text stays with the innermost item
			out.WriteString(strings.Repeat("  ", len(open)))
			out.WriteString(body)
		}
	}
	return out.Bytes()
}

// indentColumns measures leading whitespace with tab stops of four.
func indentColumns(indent string) int {
	column := 0
	for _, r := range indent {
		if r == '\t' {
			column += 4 - column%4
		} else {
			column++
		}
	}
	return column
}

// listItemText returns the text after a bullet or ordered list marker.
func listItemText(body string) (string, bool) {
	marker := 0
	switch {
	case body == "":
		return "", false
	case strings.ContainsRune("-*+", rune(body[0])):
		if isThematicBreak(body) {
			return "", false
		}
		marker = 1
	default:
		for marker < len(body) && marker < 9 && body[marker] >= '0' && body[marker] <= '9' {
			marker++
		}
		if marker == 0 || marker == len(body) || (body[marker] != '.' && body[marker] != ')') {
			return "", false
		}
		marker++
	}
	rest := body[marker:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '\n' && rest[0] != '\r' {
		return "", false
	}
	return strings.TrimLeft(rest, " \t"), true
}

func isThematicBreak(body string) bool {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) < 3 {
		return false
	}
	c := trimmed[0]
	count := 0
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case c:
			count++
		case ' ', '\t':
		default:
			return false
		}
	}
	return count >= 3
}

func listNodes(list *ast.List, source []byte) []*Node {
	var nodes []*Node
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		node := &Node{}
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			switch block := child.(type) {
			case *ast.List:
				node.Children = append(node.Children, listNodes(block, source)...)
			case *ast.TextBlock, *ast.Paragraph:
				if node.Label != "" || node.Target != "" {
					continue
				}
				if link := firstLink(block); link != nil {
					node.Label = inlineText(link, source)
					node.Target = string(link.Destination)
				} else {
					node.Label = inlineText(block, source)
				}
			}
		}
		node.Href = Href(node.Target)
		// an item with only a nested list is folded into its parent
		if node.Label == "" && node.Target == "" {
			nodes = append(nodes, node.Children...)
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func paragraphLinks(p ast.Node, source []byte) []*Node {
	var nodes []*Node
	_ = ast.Walk(p, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok {
			target := string(link.Destination)
			nodes = append(nodes, &Node{Label: inlineText(link, source), Target: target, Href: Href(target)})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return nodes
}

func firstLink(n ast.Node) *ast.Link {
	var found *ast.Link
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if link, ok := c.(*ast.Link); ok && entering {
			found = link
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(source))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}

// Href converts a link target into a browser route: markdown pages map to
// their root-relative .html route, everything else is returned unchanged.
func Href(target string) string {
	if target == "" || isExternal(target) || strings.HasPrefix(target, "#") {
		return target
	}
	page, fragment, hasFragment := strings.Cut(target, "#")
	if strings.HasSuffix(strings.ToLower(page), ".md") {
		page = page[:len(page)-len(".md")] + ".html"
	}
	href := path.Clean("/" + strings.TrimPrefix(page, "/"))
	if hasFragment {
		href += "#" + fragment
	}
	return href
}

func isExternal(target string) bool {
	if strings.HasPrefix(target, "//") {
		return true
	}
	u, err := url.Parse(target)
	return err == nil && (u.Scheme != "" || u.Host != "")
}
