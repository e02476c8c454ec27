package markdown

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	// DefaultPermalinkSymbol is appended to every heading as its permalink text.
	DefaultPermalinkSymbol = "🔗"
	// DefaultHighlightStyle is the chroma style used for fenced code.
	DefaultHighlightStyle = "github"
	// DefaultTOCDepth keeps every heading level in the table of contents.
	DefaultTOCDepth = 6
)

// Options configures a Renderer.
type Options struct {
	// HighlightStyle names the chroma style for code blocks.
	HighlightStyle string
	// TOCDepth is the deepest heading level kept in Page.TOC (1-6).
	TOCDepth int
	// PermalinkSymbol is the text of the permalink anchor added to headings.
	PermalinkSymbol string
	// Fences maps fence identifiers to transforms. Nil means DefaultFences().
	Fences FenceRegistry
}

// Page is the result of rendering one markdown source.
type Page struct {
	HTML        string
	TOC         []TocItem
	Title       string
	Description string
	Meta        FrontMatter
}

// Renderer converts markdown into HTML. A Renderer is safe for concurrent use:
// goldmark keeps no per-document state on the engine.
type Renderer struct {
	engine   goldmark.Markdown
	tocDepth int
}

// NewRenderer builds the goldmark engine with the fixed transform pipeline.
func NewRenderer(opts Options) *Renderer {
	if opts.HighlightStyle == "" {
		opts.HighlightStyle = DefaultHighlightStyle
	}
	if opts.TOCDepth <= 0 || opts.TOCDepth > 6 {
		opts.TOCDepth = DefaultTOCDepth
	}
	if opts.PermalinkSymbol == "" {
		opts.PermalinkSymbol = DefaultPermalinkSymbol
	}
	if opts.Fences == nil {
		opts.Fences = DefaultFences()
	}

	return &Renderer{
		engine:   newEngine(opts),
		tocDepth: opts.TOCDepth,
	}
}

func newEngine(opts Options) goldmark.Markdown {
	codeRenderer := newFencedCodeRenderer(opts.Fences,
		highlighting.NewHTMLRenderer(
			highlighting.WithStyle(opts.HighlightStyle),
			highlighting.WithFormatOptions(
				chromahtml.WithClasses(false),
				chromahtml.TabWidth(4),
			),
		),
	)

	return goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Linkify,
			extension.TaskList,
			extension.DefinitionList,
			extension.Footnote,
			Abbreviations,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
			parser.WithASTTransformers(
				util.Prioritized(pageLinkTransformer{}, 800),
				util.Prioritized(permalinkTransformer{symbol: []byte(opts.PermalinkSymbol)}, 900),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(
				util.Prioritized(codeRenderer, 100),
				util.Prioritized(permalinkHTMLRenderer{}, 500),
			),
		),
	)
}

// Render converts source into a Page. sourcePath only feeds the title fallback.
// Unrecognized syntax renders as literal text; the only error source is the
// output writer.
func (r *Renderer) Render(source []byte, sourcePath string) (*Page, error) {
	meta, body := ParseFrontMatter(source)

	doc := r.engine.Parser().Parse(text.NewReader(body))

	var buf bytes.Buffer
	if err := r.engine.Renderer().Render(&buf, body, doc); err != nil {
		return nil, fmt.Errorf("markdown render %s: %w", sourcePath, err)
	}

	heading, paragraph := firstHeadingAndParagraph(doc, body)
	rendered := buf.String()

	return &Page{
		HTML:        rendered,
		TOC:         ExtractTOC(rendered, r.tocDepth),
		Title:       pickTitle(meta.Title, heading, sourcePath),
		Description: firstNonEmpty(meta.Description, paragraph),
		Meta:        meta,
	}, nil
}
