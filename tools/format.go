package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/servemd/index"
)

// FormatHits renders search hits grouped by page.
func FormatHits(hits []index.Hit) string {
	if len(hits) == 0 {
		return "No matches found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d pages:\n", len(hits))
	for _, hit := range hits {
		fmt.Fprintf(&b, "\n── %s", hit.RelativePath)
		if hit.Title != "" {
			fmt.Fprintf(&b, " (%s)", hit.Title)
		}
		b.WriteString(" ──\n")
		for _, m := range hit.Matches {
			fmt.Fprintf(&b, "  %d: %s\n", m.LineNumber, m.LineText)
		}
	}
	return b.String()
}

// FormatPages lists pages with title, size and browser route.
func FormatPages(pages []*index.IndexedPage) string {
	if len(pages) == 0 {
		return "No pages matched."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d pages:\n\n", len(pages))
	for _, p := range pages {
		fmt.Fprintf(&b, "  %s  %q (%s, %d lines) %s\n", p.RelativePath, p.Title, formatFileSize(p.SizeBytes), p.LineCount, p.Route())
	}
	return b.String()
}

// FormatPage numbers the lines of a page. offset is 1-based; limit <= 0 means
// through the end.
func FormatPage(pagePath, content string, offset, limit int) string {
	lines := strings.Split(content, "\n")
	total := len(lines)

	if offset < 1 {
		offset = 1
	}
	end := total
	if limit > 0 && offset-1+limit < total {
		end = offset - 1 + limit
	}

	var b strings.Builder
	if offset > total {
		fmt.Fprintf(&b, "── %s (%d lines, offset %d past end) ──\n", pagePath, total, offset)
		return b.String()
	}
	if offset == 1 && end == total {
		fmt.Fprintf(&b, "── %s (%d lines) ──\n", pagePath, total)
	} else {
		fmt.Fprintf(&b, "── %s (lines %d-%d of %d) ──\n", pagePath, offset, end, total)
	}

	width := len(fmt.Sprintf("%d", end))
	for i := offset - 1; i < end; i++ {
		fmt.Fprintf(&b, "%*d│ %s\n", width, i+1, lines[i])
	}
	return b.String()
}

func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	minutes, seconds := totalSeconds/60, totalSeconds%60
	if minutes < 60 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh%dm", minutes/60, minutes%60)
}
