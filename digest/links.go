package digest

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/lexandro/servemd/resolve"
)

// Link is a markdown page link found in digest text.
type Link struct {
	Text string
	URL  string // target exactly as written
	Path string // normalized content-root relative path
}

var markdownLink = regexp.MustCompile(`\[((?:\\.|[^\]\\])+)\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)

var labelUnescaper = strings.NewReplacer(`\\`, `\`, `\[`, `[`, `\]`, `]`)

// ExtractLinks scans text for markdown links to `.md` pages that live under
// baseURL or are relative to it. The fragment is ignored when matching, links
// to other hosts are skipped and repeated targets keep their first occurrence.
func ExtractLinks(text, baseURL string) []Link {
	base := strings.TrimRight(baseURL, "/")
	seen := make(map[string]bool)

	var links []Link
	for _, m := range markdownLink.FindAllStringSubmatch(text, -1) {
		target := m[2]
		relativePath, ok := pagePath(target, base)
		if !ok || seen[relativePath] {
			continue
		}
		seen[relativePath] = true
		links = append(links, Link{Text: labelUnescaper.Replace(m[1]), URL: target, Path: relativePath})
	}
	return links
}

func pagePath(target, base string) (string, bool) {
	page, _, _ := strings.Cut(target, "#")
	if !strings.HasSuffix(strings.ToLower(page), ".md") {
		return "", false
	}

	u, err := url.Parse(page)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" {
		rest, ok := underBase(page, base)
		if !ok {
			return "", false
		}
		page = rest
	}
	return resolve.Clean(page)
}

// underBase strips base from an absolute link. Scheme and host compare
// case-insensitively.
func underBase(link, base string) (string, bool) {
	if base == "" {
		return "", false
	}
	if len(link) <= len(base) || !strings.EqualFold(link[:len(base)], base) {
		return "", false
	}
	rest := link[len(base):]
	if !strings.HasPrefix(rest, "/") {
		return "", false
	}
	return rest, true
}
