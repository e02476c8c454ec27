// Package digest builds the llms.txt and llms-full.txt documents.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/lexandro/servemd/markdown"
	"github.com/lexandro/servemd/nav"
	"github.com/lexandro/servemd/resolve"
)

const (
	// SummaryFile is both the curated source name and the cache key of the summary.
	SummaryFile = "llms.txt"
	// FullFile is the cache key of the expanded digest.
	FullFile = "llms-full.txt"
	// IndexPage supplies the synthesized summary title and description.
	IndexPage = "index.md"

	defaultReadConcurrency = 8
)

// ErrGenerationFailure wraps unexpected failures while building a digest.
var ErrGenerationFailure = zerr.New("digest generation failed")

// Summarizer extracts a page title and description from markdown source.
type Summarizer interface {
	Summarize(source []byte, sourcePath string) markdown.Summary
}

// Generator builds digests from the content root.
type Generator struct {
	resolver        *resolve.Resolver
	summarizer      Summarizer
	fallbackTitle   string
	readConcurrency int
	logger          *slog.Logger
}

// NewGenerator creates a Generator. fallbackTitle heads a synthesized summary
// when the tree has no index page.
func NewGenerator(resolver *resolve.Resolver, summarizer Summarizer, fallbackTitle string, logger *slog.Logger) *Generator {
	return &Generator{
		resolver:        resolver,
		summarizer:      summarizer,
		fallbackTitle:   fallbackTitle,
		readConcurrency: defaultReadConcurrency,
		logger:          logger,
	}
}

// BuildSummary returns the curated llms.txt verbatim, or synthesizes one from
// the index page and the sidebar.
func (g *Generator) BuildSummary(baseURL string) (string, error) {
	_, curated, err := g.resolver.ReadText(SummaryFile)
	if err == nil {
		return curated, nil
	}
	if !errors.Is(err, resolve.ErrNotFound) {
		return "", generationError("reading curated summary", err)
	}

	title, description, err := g.indexSummary()
	if err != nil {
		return "", err
	}
	sidebar, err := nav.LoadSidebar(g.resolver.Root())
	if err != nil {
		return "", generationError("loading sidebar", err)
	}
	return Synthesize(title, description, sidebar, baseURL), nil
}

// BuildFullSummary appends the raw text of every page linked from the summary.
// Unresolvable links are logged and skipped.
func (g *Generator) BuildFullSummary(ctx context.Context, baseURL string) (string, error) {
	summary, err := g.BuildSummary(baseURL)
	if err != nil {
		return "", err
	}

	links := ExtractLinks(summary, baseURL)
	contents := make([]string, len(links))
	found := make([]bool, len(links))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(g.readConcurrency)
	for i, link := range links {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, content, err := g.resolver.ReadText(link.Path)
			if err != nil {
				g.logger.Warn("skipping digest link", "url", link.URL, "path", link.Path, "error", err)
				return nil
			}
			contents[i] = content
			found[i] = true
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", generationError("expanding links", err)
	}

	var b strings.Builder
	b.WriteString(summary)
	b.WriteString("\n\n")
	pages := 0
	for i, link := range links {
		if !found[i] {
			continue
		}
		fmt.Fprintf(&b, "\n<url>%s</url>\n<content>\n%s\n</content>\n", link.URL, contents[i])
		pages++
	}
	g.logger.Debug("built full digest", "links", len(links), "pages", pages)
	return b.String(), nil
}

func (g *Generator) indexSummary() (string, string, error) {
	file, source, err := g.resolver.ReadText(IndexPage)
	if errors.Is(err, resolve.ErrNotFound) {
		return g.fallbackTitle, "", nil
	}
	if err != nil {
		return "", "", generationError("reading index page", err)
	}
	summary := g.summarizer.Summarize([]byte(source), file.RelativePath)
	return summary.Title, summary.Description, nil
}

// Synthesize renders a summary document from a title, an optional description
// and the sidebar tree. Levels below the second are flattened into it.
func Synthesize(title, description string, sidebar *nav.Node, baseURL string) string {
	base := strings.TrimRight(baseURL, "/")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	if description != "" {
		fmt.Fprintf(&b, "\n> %s\n", description)
	}
	if sidebar == nil || len(sidebar.Children) == 0 {
		return b.String()
	}

	b.WriteString("\n")
	sidebar.Walk(func(node *nav.Node, depth int) {
		if depth == 0 {
			return
		}
		indent := ""
		if depth > 1 {
			indent = "  "
		}
		b.WriteString(indent)
		b.WriteString("- ")
		b.WriteString(bullet(node, base))
		b.WriteString("\n")
	})
	return b.String()
}

func bullet(node *nav.Node, base string) string {
	label := labelEscaper.Replace(node.Label)
	switch {
	case node.Target == "":
		return label
	case node.IsExternal():
		return fmt.Sprintf("[%s](%s)", label, node.Target)
	}
	if mdPath, ok := node.MarkdownPath(); ok {
		return fmt.Sprintf("[%s](%s%s)", label, base, mdPath)
	}
	return fmt.Sprintf("[%s](%s%s)", label, base, node.Href)
}

// labelEscaper keeps brackets in labels from ending the link text early.
var labelEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)

func generationError(action string, err error) error {
	return zerr.With(zerr.Wrap(errors.Join(ErrGenerationFailure, err), action), "component", "digest")
}
