package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// FenceTransform renders the body of a fenced block whose info string names it.
type FenceTransform interface {
	Name() string
	Render(w util.BufWriter, body []byte)
}

// FenceRegistry maps fence identifiers (the info string language) to transforms.
type FenceRegistry map[string]FenceTransform

// Register binds a transform to one or more fence identifiers.
func (r FenceRegistry) Register(t FenceTransform, identifiers ...string) {
	for _, id := range identifiers {
		r[strings.ToLower(id)] = t
	}
}

// Lookup returns the transform bound to a fence identifier.
func (r FenceRegistry) Lookup(identifier string) (FenceTransform, bool) {
	t, ok := r[strings.ToLower(identifier)]
	return t, ok
}

// DefaultFences registers the diagram transform for mermaid and diagram fences.
func DefaultFences() FenceRegistry {
	registry := FenceRegistry{}
	registry.Register(DiagramFence{Class: "mermaid"}, "mermaid", "diagram")
	return registry
}

// DiagramFence wraps the fence body in a diagram container. The body is passed
// through verbatim so client-side diagram libraries see the original source.
type DiagramFence struct {
	Class string
}

// Name implements FenceTransform.
func (d DiagramFence) Name() string { return "diagram" }

// Render implements FenceTransform.
func (d DiagramFence) Render(w util.BufWriter, body []byte) {
	_, _ = w.WriteString(`<div class="`)
	_, _ = w.Write(util.EscapeHTML([]byte(d.Class)))
	_, _ = w.WriteString(`">`)
	_, _ = w.Write(body)
	_, _ = w.WriteString("</div>\n")
}

// fencedCodeRenderer dispatches fenced blocks to a registered transform and
// falls back to the syntax highlighter for everything else.
type fencedCodeRenderer struct {
	fences   FenceRegistry
	fallback renderer.NodeRendererFunc
}

func newFencedCodeRenderer(fences FenceRegistry, highlighter renderer.NodeRenderer) *fencedCodeRenderer {
	capture := &funcCapture{kind: ast.KindFencedCodeBlock}
	highlighter.RegisterFuncs(capture)
	return &fencedCodeRenderer{fences: fences, fallback: capture.fn}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *fencedCodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
	reg.Register(ast.KindCodeBlock, r.renderIndentedCode)
}

func (r *fencedCodeRenderer) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.FencedCodeBlock)
	if transform, ok := r.fences.Lookup(string(n.Language(source))); ok {
		if entering {
			transform.Render(w, blockBody(n, source))
		}
		return ast.WalkSkipChildren, nil
	}
	return r.renderHighlighted(w, source, n, entering)
}

// renderIndentedCode highlights an indented block as a fence without a
// language. The highlighter only accepts fenced blocks.
func (r *fencedCodeRenderer) renderIndentedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	fenced := ast.NewFencedCodeBlock(nil)
	fenced.SetLines(node.Lines())
	return r.renderHighlighted(w, source, fenced, entering)
}

func (r *fencedCodeRenderer) renderHighlighted(w util.BufWriter, source []byte, n *ast.FencedCodeBlock, entering bool) (ast.WalkStatus, error) {
	if r.fallback == nil {
		if entering {
			_, _ = w.WriteString(`<div class="highlight"><pre><code>`)
			_, _ = w.Write(util.EscapeHTML(blockBody(n, source)))
			_, _ = w.WriteString("</code></pre></div>\n")
		}
		return ast.WalkSkipChildren, nil
	}

	// highlighted blocks sit in the container the stylesheet targets
	if entering {
		_, _ = w.WriteString(`<div class="highlight">`)
		return r.fallback(w, source, n, entering)
	}
	status, err := r.fallback(w, source, n, entering)
	_, _ = w.WriteString("</div>\n")
	return status, err
}

func blockBody(n ast.Node, source []byte) []byte {
	var body bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		body.Write(segment.Value(source))
	}
	return body.Bytes()
}

// funcCapture records the render func another NodeRenderer registers for kind.
type funcCapture struct {
	kind ast.NodeKind
	fn   renderer.NodeRendererFunc
}

func (c *funcCapture) Register(kind ast.NodeKind, fn renderer.NodeRendererFunc) {
	if kind == c.kind {
		c.fn = fn
	}
}
