package nav

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_ParseSidebar_NestedTree(t *testing.T) {
	source := "- [Home](index.md)\n- [Guide](guide.md)\n  - [Install](guide/install.md#linux)\n  - [External](https://example.com)\n- Section\n  - [Deep](a/b.md)\n"

	root := ParseSidebar([]byte(source))

	if len(root.Children) != 3 {
		t.Fatalf("expected 3 top-level nodes, got %d", len(root.Children))
	}
	home := root.Children[0]
	if home.Label != "Home" || home.Href != "/index.html" || home.Target != "index.md" {
		t.Errorf("unexpected home node: %+v", home)
	}
	guide := root.Children[1]
	if len(guide.Children) != 2 {
		t.Fatalf("expected 2 guide children, got %d", len(guide.Children))
	}
	if guide.Children[0].Href != "/guide/install.html#linux" {
		t.Errorf("unexpected href: %s", guide.Children[0].Href)
	}
	if guide.Children[1].Href != "https://example.com" || !guide.Children[1].IsExternal() {
		t.Errorf("external link must be unchanged: %+v", guide.Children[1])
	}
	section := root.Children[2]
	if section.Label != "Section" || section.Href != "" {
		t.Errorf("unexpected plain section node: %+v", section)
	}
	if len(section.Children) != 1 || section.Children[0].Label != "Deep" {
		t.Errorf("unexpected section children: %+v", section.Children)
	}
}

func Test_ParseSidebar_SkippedIndent(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"deep child of first item", "- [A](a.md)\n        - [B](b.md)\n", "A(B)"},
		{"deep grandchild then sibling", "- [A](a.md)\n  - [B](b.md)\n          - [C](c.md)\n- [D](d.md)\n", "A(B(C)) D"},
		{"tab indentation", "* [A]\n\t* [B]\n\t\t\t* [C]", "A(B(C))"},
		{"ordered markers", "1. [A](a.md)\n      1. [B](b.md)\n2. [C](c.md)\n", "A(B) C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := ParseSidebar([]byte(tt.source))
			if got := treeShape(root.Children); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func Test_ParseSidebar_SkippedIndentKeepsTargets(t *testing.T) {
	root := ParseSidebar([]byte("- [A](a.md)\n        - [B](b.md)\n"))

	if len(root.Children) != 1 || len(root.Children[0].Children) != 1 {
		t.Fatalf("unexpected tree: %s", treeShape(root.Children))
	}
	if child := root.Children[0].Children[0]; child.Href != "/b.html" || child.Target != "b.md" {
		t.Errorf("unexpected child node: %+v", child)
	}
}

func Test_normalizeListIndent_LeavesOtherLines(t *testing.T) {
	source := "# Title\n\nIntro text.\n\n---\n"
	if got := string(normalizeListIndent([]byte(source))); got != source {
		t.Errorf("expected unchanged source, got %q", got)
	}
}

// treeShape renders labels as "A(B C) D" with reference brackets removed.
func treeShape(nodes []*Node) string {
	parts := make([]string, 0, len(nodes))
	for _, node := range nodes {
		part := strings.Trim(node.Label, "[]")
		if len(node.Children) > 0 {
			part += "(" + treeShape(node.Children) + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}

func Test_ParseSidebar_EmptySource(t *testing.T) {
	root := ParseSidebar(nil)
	if root == nil || len(root.Children) != 0 {
		t.Errorf("expected empty root, got %+v", root)
	}
}

func Test_ParseSidebar_IgnoresNonListContent(t *testing.T) {
	root := ParseSidebar([]byte("# Navigation\n\nSome intro.\n\n- [A](a.md)\n"))

	if len(root.Children) != 1 || root.Children[0].Label != "A" {
		t.Errorf("unexpected tree: %+v", root.Children)
	}
}

func Test_ParseTopbar_Sections(t *testing.T) {
	source := "- [Top](top.md)\n\n## Left\n\n- [Docs](index.md)\n- [Blog](https://blog.example.com)\n\n## Empty\n\n## Right\n\n[GitHub](https://github.com/x)\n"

	sections := ParseTopbar([]byte(source))

	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d: %+v", len(sections), sections)
	}
	if sections[0].Label != "" || sections[0].Children[0].Href != "/top.html" {
		t.Errorf("unexpected unlabeled section: %+v", sections[0])
	}
	if sections[1].Label != "Left" || len(sections[1].Children) != 2 {
		t.Errorf("unexpected left section: %+v", sections[1])
	}
	if sections[2].Label != "Right" || sections[2].Children[0].Label != "GitHub" {
		t.Errorf("unexpected right section: %+v", sections[2])
	}
}

func Test_LoadSidebar_MissingFile(t *testing.T) {
	root, err := LoadSidebar(t.TempDir())
	if err != nil {
		t.Fatalf("LoadSidebar failed: %v", err)
	}
	if len(root.Children) != 0 {
		t.Errorf("expected empty tree, got %+v", root.Children)
	}
}

func Test_LoadTopbar_MissingFile(t *testing.T) {
	sections, err := LoadTopbar(t.TempDir())
	if err != nil {
		t.Fatalf("LoadTopbar failed: %v", err)
	}
	if sections != nil {
		t.Errorf("expected no sections, got %+v", sections)
	}
}

func Test_LoadSidebar_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SidebarFile), []byte("- [Guide](guide.md)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := LoadSidebar(dir)
	if err != nil {
		t.Fatalf("LoadSidebar failed: %v", err)
	}
	if len(root.Children) != 1 || root.Children[0].Href != "/guide.html" {
		t.Errorf("unexpected tree: %+v", root.Children)
	}
}

func Test_Node_MarkdownPath(t *testing.T) {
	tests := []struct {
		target string
		want   string
		ok     bool
	}{
		{"guide.md", "/guide.md", true},
		{"/sub/page.md#x", "/sub/page.md", true},
		{"page.html", "/page.md", true},
		{"https://example.com/a.md", "", false},
		{"#anchor", "", false},
		{"image.png", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := (&Node{Target: tt.target}).MarkdownPath()
		if got != tt.want || ok != tt.ok {
			t.Errorf("MarkdownPath(%q) = %q, %v; want %q, %v", tt.target, got, ok, tt.want, tt.ok)
		}
	}
}

func Test_Node_Walk(t *testing.T) {
	root := ParseSidebar([]byte("- [A](a.md)\n  - [B](b.md)\n- [C](c.md)\n"))

	var labels []string
	var depths []int
	root.Walk(func(n *Node, depth int) {
		if n == root {
			return
		}
		labels = append(labels, n.Label)
		depths = append(depths, depth)
	})
	if len(labels) != 3 || labels[0] != "A" || labels[1] != "B" || labels[2] != "C" {
		t.Errorf("unexpected order: %v", labels)
	}
	if depths[0] != 1 || depths[1] != 2 || depths[2] != 1 {
		t.Errorf("unexpected depths: %v", depths)
	}
}
