package markdown

import (
	"regexp"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindAbbreviation is the NodeKind of Abbreviation.
var KindAbbreviation = ast.NewNodeKind("Abbreviation")

// Abbreviation is an inline node wrapping a term that has an `*[TERM]: title`
// definition somewhere in the document.
type Abbreviation struct {
	ast.BaseInline
	Title []byte
}

// Kind implements ast.Node.
func (n *Abbreviation) Kind() ast.NodeKind { return KindAbbreviation }

// Dump implements ast.Node.
func (n *Abbreviation) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Title": string(n.Title)}, nil)
}

// Abbreviations is the goldmark extension implementing abbreviation definitions.
var Abbreviations goldmark.Extender = abbreviationExtension{}

type abbreviationExtension struct{}

func (abbreviationExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithParagraphTransformers(util.Prioritized(abbrParagraphTransformer{}, 150)),
		parser.WithASTTransformers(util.Prioritized(abbrASTTransformer{}, 150)),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(util.Prioritized(abbrHTMLRenderer{}, 500)))
}

var (
	abbrContextKey = parser.NewContextKey()
	abbrDefinition = regexp.MustCompile(`^\*\[([^\]]+)\]:[ \t]*(.*?)\s*$`)
)

type abbreviation struct {
	term  []byte
	title []byte
}

// abbrParagraphTransformer lifts definition lines out of paragraphs before
// inline parsing; a paragraph made only of definitions disappears.
type abbrParagraphTransformer struct{}

func (abbrParagraphTransformer) Transform(node *ast.Paragraph, reader text.Reader, pc parser.Context) {
	lines := node.Lines()
	if lines.Len() == 0 {
		return
	}
	source := reader.Source()

	kept := text.NewSegments()
	var defs []abbreviation
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		if m := abbrDefinition.FindSubmatch(segment.Value(source)); m != nil {
			defs = append(defs, abbreviation{term: m[1], title: m[2]})
			continue
		}
		kept.Append(segment)
	}
	if len(defs) == 0 {
		return
	}

	existing, _ := pc.Get(abbrContextKey).([]abbreviation)
	pc.Set(abbrContextKey, append(existing, defs...))

	if kept.Len() == 0 {
		node.Parent().RemoveChild(node.Parent(), node)
		return
	}
	node.SetLines(kept)
}

// abbrASTTransformer splits text nodes around defined terms.
type abbrASTTransformer struct{}

func (abbrASTTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	defs, _ := pc.Get(abbrContextKey).([]abbreviation)
	if len(defs) == 0 {
		return
	}
	// longest term wins when one term prefixes another
	sort.SliceStable(defs, func(i, j int) bool { return len(defs[i].term) > len(defs[j].term) })

	var texts []*ast.Text
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindCodeSpan, ast.KindCodeBlock, ast.KindFencedCodeBlock,
			ast.KindLink, ast.KindAutoLink, ast.KindHTMLBlock, ast.KindRawHTML, KindAbbreviation:
			return ast.WalkSkipChildren, nil
		}
		if t, ok := n.(*ast.Text); ok {
			texts = append(texts, t)
		}
		return ast.WalkContinue, nil
	})

	source := reader.Source()
	for _, t := range texts {
		splitAbbreviations(t, source, defs)
	}
}

func splitAbbreviations(t *ast.Text, source []byte, defs []abbreviation) {
	parent := t.Parent()
	segment := t.Segment
	if parent == nil || t.IsRaw() || segment.Padding != 0 {
		return
	}
	value := segment.Value(source)

	var pieces []ast.Node
	start := 0
	for pos := 0; pos < len(value); {
		def, ok := matchAbbreviation(value, pos, defs)
		if !ok {
			pos++
			continue
		}
		if pos > start {
			pieces = append(pieces, ast.NewTextSegment(text.NewSegment(segment.Start+start, segment.Start+pos)))
		}
		abbr := &Abbreviation{Title: def.title}
		abbr.AppendChild(abbr, ast.NewTextSegment(text.NewSegment(segment.Start+pos, segment.Start+pos+len(def.term))))
		pieces = append(pieces, abbr)
		pos += len(def.term)
		start = pos
	}
	if len(pieces) == 0 {
		return
	}

	tail := ast.NewTextSegment(text.NewSegment(segment.Start+start, segment.Stop))
	tail.SetSoftLineBreak(t.SoftLineBreak())
	tail.SetHardLineBreak(t.HardLineBreak())
	pieces = append(pieces, tail)

	for _, piece := range pieces {
		parent.InsertBefore(parent, t, piece)
	}
	parent.RemoveChild(parent, t)
}

func matchAbbreviation(value []byte, pos int, defs []abbreviation) (abbreviation, bool) {
	if pos > 0 && isWordByte(value[pos-1]) {
		return abbreviation{}, false
	}
	for _, def := range defs {
		end := pos + len(def.term)
		if end > len(value) || string(value[pos:end]) != string(def.term) {
			continue
		}
		if end < len(value) && isWordByte(value[end]) {
			continue
		}
		return def, true
	}
	return abbreviation{}, false
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 0x80 ||
		('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

type abbrHTMLRenderer struct{}

func (abbrHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAbbreviation, renderAbbreviation)
}

func renderAbbreviation(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</abbr>")
		return ast.WalkContinue, nil
	}
	n := node.(*Abbreviation)
	_, _ = w.WriteString(`<abbr title="`)
	_, _ = w.Write(util.EscapeHTML(n.Title))
	_, _ = w.WriteString(`">`)
	return ast.WalkContinue, nil
}
