package markdown

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TocItem is one heading of a rendered page.
type TocItem struct {
	Level    int    `json:"level"`
	Text     string `json:"text"`
	AnchorID string `json:"anchor_id"`
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// ExtractTOC scans rendered HTML for headings carrying an id, in document
// order, keeping levels up to maxLevel. Permalink anchors are not part of the
// heading text.
func ExtractTOC(rendered string, maxLevel int) []TocItem {
	var items []TocItem

	z := html.NewTokenizer(strings.NewReader(rendered))
	var (
		current   *TocItem
		headerTag atom.Atom
		text      strings.Builder
		skipDepth int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return items

		case html.StartTagToken:
			tok := z.Token()
			if current == nil {
				level, ok := headingLevels[tok.DataAtom]
				if !ok || level > maxLevel {
					continue
				}
				id := attr(tok, "id")
				if id == "" {
					continue
				}
				current = &TocItem{Level: level, AnchorID: id}
				headerTag = tok.DataAtom
				text.Reset()
				continue
			}
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			if tok.DataAtom == atom.A && hasClass(tok, "headerlink") {
				skipDepth = 1
			}

		case html.EndTagToken:
			if current == nil {
				continue
			}
			tok := z.Token()
			if skipDepth > 0 {
				skipDepth--
				continue
			}
			if tok.DataAtom == headerTag {
				current.Text = strings.Join(strings.Fields(text.String()), " ")
				items = append(items, *current)
				current = nil
			}

		case html.TextToken:
			if current != nil && skipDepth == 0 {
				text.Write(z.Text())
			}
		}
	}
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(tok html.Token, class string) bool {
	for _, c := range strings.Fields(attr(tok, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
