package markdown

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindPermalink is the NodeKind of Permalink.
var KindPermalink = ast.NewNodeKind("Permalink")

// Permalink is the anchor appended to a heading that links to the heading itself.
type Permalink struct {
	ast.BaseInline
	AnchorID []byte
	Symbol   []byte
}

// Kind implements ast.Node.
func (n *Permalink) Kind() ast.NodeKind { return KindPermalink }

// Dump implements ast.Node.
func (n *Permalink) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"AnchorID": string(n.AnchorID)}, nil)
}

type permalinkTransformer struct {
	symbol []byte
}

func (t permalinkTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	uniqueHeadingIDs(doc, reader.Source())
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		id, ok := headingID(heading)
		if ok {
			heading.AppendChild(heading, &Permalink{AnchorID: id, Symbol: t.symbol})
		}
		return ast.WalkSkipChildren, nil
	})
}

// uniqueHeadingIDs renames repeated heading ids. Explicit `{#id}` ids keep
// their value; a generated or repeated id gets the first free -N suffix.
func uniqueHeadingIDs(doc *ast.Document, source []byte) {
	var headings []*ast.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if heading, ok := n.(*ast.Heading); ok && entering {
			headings = append(headings, heading)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	taken := make(map[string]bool, len(headings))
	existing := make(map[string]bool, len(headings))
	kept := make(map[*ast.Heading]bool)
	for _, heading := range headings {
		id, ok := headingID(heading)
		if !ok {
			continue
		}
		existing[string(id)] = true
		if explicitID(heading, source, id) && !taken[string(id)] {
			taken[string(id)] = true
			kept[heading] = true
		}
	}

	for _, heading := range headings {
		id, ok := headingID(heading)
		if !ok || kept[heading] {
			continue
		}
		if !taken[string(id)] {
			taken[string(id)] = true
			continue
		}
		for i := 1; ; i++ {
			candidate := string(id) + "-" + strconv.Itoa(i)
			if !taken[candidate] && !existing[candidate] {
				taken[candidate] = true
				heading.SetAttributeString("id", []byte(candidate))
				break
			}
		}
	}
}

// explicitID reports whether id was written as a `{#id}` attribute on the
// heading line. The attribute block follows the last text segment.
func explicitID(heading *ast.Heading, source []byte, id []byte) bool {
	lines := heading.Lines()
	if lines.Len() == 0 {
		return false
	}
	rest := source[lines.At(lines.Len()-1).Stop:]
	if end := bytes.IndexByte(rest, '\n'); end >= 0 {
		rest = rest[:end]
	}
	open := bytes.IndexByte(rest, '{')
	if open < 0 {
		return false
	}
	attrs := rest[open:]
	i := bytes.Index(attrs, append([]byte("#"), id...))
	if i < 0 {
		return false
	}
	after := attrs[i+1+len(id):]
	return len(after) > 0 && (after[0] == ' ' || after[0] == '\t' || after[0] == '}')
}

func headingID(heading *ast.Heading) ([]byte, bool) {
	value, ok := heading.AttributeString("id")
	if !ok {
		return nil, false
	}
	id, ok := value.([]byte)
	if !ok || len(id) == 0 {
		return nil, false
	}
	return id, true
}

type permalinkHTMLRenderer struct{}

func (permalinkHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindPermalink, renderPermalink)
}

func renderPermalink(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Permalink)
	_, _ = w.WriteString(`<a class="headerlink" href="#`)
	_, _ = w.Write(util.EscapeHTML(n.AnchorID))
	_, _ = w.WriteString(`" title="Permanent link">`)
	_, _ = w.Write(util.EscapeHTML(n.Symbol))
	_, _ = w.WriteString("</a>")
	return ast.WalkContinue, nil
}

// pageLinkTransformer points relative links at markdown pages to their
// rendered .html route.
type pageLinkTransformer struct{}

func (pageLinkTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok {
			link.Destination = RewritePageLink(link.Destination)
		}
		return ast.WalkContinue, nil
	})
}

// RewritePageLink turns `guide.md#setup` into `guide.html#setup`. Absolute
// URLs, anchors and non-markdown targets are returned unchanged.
func RewritePageLink(destination []byte) []byte {
	target := string(destination)
	if target == "" || strings.HasPrefix(target, "#") || strings.HasPrefix(target, "//") {
		return destination
	}
	if u, err := url.Parse(target); err != nil || u.Scheme != "" || u.Host != "" {
		return destination
	}

	pagePart, fragment, hasFragment := strings.Cut(target, "#")
	pagePart, query, hasQuery := strings.Cut(pagePart, "?")
	if !strings.HasSuffix(strings.ToLower(pagePart), ".md") {
		return destination
	}

	var out bytes.Buffer
	out.WriteString(pagePart[:len(pagePart)-len(".md")])
	out.WriteString(".html")
	if hasQuery {
		out.WriteByte('?')
		out.WriteString(query)
	}
	if hasFragment {
		out.WriteByte('#')
		out.WriteString(fragment)
	}
	return out.Bytes()
}
