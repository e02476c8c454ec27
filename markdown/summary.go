package markdown

import (
	"bytes"
	"path"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FrontMatter holds the YAML or TOML header of a page.
type FrontMatter struct {
	Title       string   `yaml:"title" toml:"title" json:"title,omitempty"`
	Description string   `yaml:"description" toml:"description" json:"description,omitempty"`
	Tags        []string `yaml:"tags" toml:"tags" json:"tags,omitempty"`
}

// Summary is the title and description of a page, computed without rendering.
type Summary struct {
	Title       string
	Description string
}

// ParseFrontMatter splits a leading front matter block from the body. A
// malformed header is treated as ordinary content.
func ParseFrontMatter(source []byte) (FrontMatter, []byte) {
	var meta FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return FrontMatter{}, source
	}
	return meta, body
}

// Summarize returns a page title and description from markdown source. It
// applies the same fallback chain as Render.
func (r *Renderer) Summarize(source []byte, sourcePath string) Summary {
	meta, body := ParseFrontMatter(source)
	doc := r.engine.Parser().Parse(text.NewReader(body))
	heading, paragraph := firstHeadingAndParagraph(doc, body)
	return Summary{
		Title:       pickTitle(meta.Title, heading, sourcePath),
		Description: firstNonEmpty(meta.Description, paragraph),
	}
}

// firstHeadingAndParagraph returns the text of the first level-1 heading and
// of the first top-level paragraph.
func firstHeadingAndParagraph(doc ast.Node, source []byte) (string, string) {
	var heading, paragraph string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if heading == "" && node.Level == 1 {
				heading = plainText(node, source)
			}
		case *ast.Paragraph:
			if paragraph == "" {
				paragraph = plainText(node, source)
			}
		}
		if heading != "" && paragraph != "" {
			break
		}
	}
	return heading, paragraph
}

func plainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := c.(type) {
		case *Permalink:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}

func pickTitle(metaTitle, heading, sourcePath string) string {
	if t := strings.TrimSpace(metaTitle); t != "" {
		return t
	}
	if heading != "" {
		return heading
	}
	return TitleFromPath(sourcePath)
}

// TitleFromPath derives a title from a file name: `getting_started.md`
// becomes "Getting Started".
func TitleFromPath(sourcePath string) string {
	stem := strings.TrimSuffix(path.Base(strings.ReplaceAll(sourcePath, "\\", "/")), path.Ext(sourcePath))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")
	if stem == "" || stem == "." || stem == "/" {
		return ""
	}
	// cases.Caser is stateful and not safe for concurrent use
	return cases.Title(language.English).String(stem)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
