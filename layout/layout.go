// Package layout wraps rendered page bodies in the site chrome.
package layout

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/lexandro/servemd/markdown"
	"github.com/lexandro/servemd/nav"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PageData is everything the page template needs.
type PageData struct {
	Title       string
	SiteName    string
	Body        template.HTML
	CurrentPath string // request route, e.g. /guide.html
	Navigation  *nav.Node
	Topbar      []*nav.Node
	TOC         []markdown.TocItem
}

// navLevel is the data of one recursive sidebar list.
type navLevel struct {
	Nodes   []*nav.Node
	Current string
}

// Layout renders PageData into a complete HTML document.
type Layout struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Layout, error) {
	tmpl, err := template.New("page.html.tmpl").Funcs(template.FuncMap{
		"active":   isActive,
		"dict":     func(nodes []*nav.Node, current string) navLevel { return navLevel{Nodes: nodes, Current: current} },
		"tocClass": func(level int) string { return fmt.Sprintf("toc-h%d", level) },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing layout templates: %w", err)
	}
	return &Layout{tmpl: tmpl}, nil
}

// Render executes the page template.
func (l *Layout) Render(data PageData) (string, error) {
	var buf bytes.Buffer
	if err := l.tmpl.ExecuteTemplate(&buf, "page.html.tmpl", data); err != nil {
		return "", fmt.Errorf("executing layout for %s: %w", data.CurrentPath, err)
	}
	return buf.String(), nil
}

func isActive(href, current string) bool {
	if href == "" {
		return false
	}
	page, _, _ := strings.Cut(href, "#")
	return page == "/"+strings.TrimPrefix(current, "/")
}
