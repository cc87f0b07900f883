package site

import (
	"fmt"
	"html"
	"path"
	"sort"
	"strings"
)

// FileTree is a node of the navigation built from rendered documents.
type FileTree struct {
	Name     string
	Title    string // Display name, the document's first heading for files.
	Path     string // Slash-separated relative path.
	IsDir    bool
	Children []*FileTree
}

// BuildTree constructs a FileTree from relative document paths. titles
// maps a path to its display title.
func BuildTree(paths []string, titles map[string]string) *FileTree {
	root := &FileTree{Name: "", IsDir: true}

	for _, p := range paths {
		parts := strings.Split(p, "/")
		current := root
		for i, part := range parts {
			isLast := i == len(parts)-1
			child := current.child(part, !isLast)
			if child == nil {
				child = &FileTree{Name: part, IsDir: !isLast}
				if isLast {
					child.Path = p
					child.Title = titles[p]
				} else {
					child.Path = strings.Join(parts[:i+1], "/")
					child.Title = formatDirName(part)
				}
				current.Children = append(current.Children, child)
			}
			current = child
		}
	}

	sortTree(root)
	return root
}

func (t *FileTree) child(name string, dir bool) *FileTree {
	for _, c := range t.Children {
		if c.Name == name && c.IsDir == dir {
			return c
		}
	}
	return nil
}

// sortTree orders children with directories first, then by name.
func sortTree(node *FileTree) {
	sort.Slice(node.Children, func(i, j int) bool {
		if node.Children[i].IsDir != node.Children[j].IsDir {
			return node.Children[i].IsDir
		}
		return node.Children[i].Name < node.Children[j].Name
	})
	for _, child := range node.Children {
		if child.IsDir {
			sortTree(child)
		}
	}
}

// Count returns the number of documents under t.
func (t *FileTree) Count() int {
	if !t.IsDir {
		return 1
	}
	n := 0
	for _, c := range t.Children {
		n += c.Count()
	}
	return n
}

// ToHTML renders the tree as nested lists with links relative to the page
// at activePath.
func (t *FileTree) ToHTML(activePath string) string {
	base := strings.Repeat("../", strings.Count(activePath, "/"))

	var b strings.Builder
	active := ""
	if activePath == IndexFile {
		active = ` class="active"`
	}
	fmt.Fprintf(&b, `<ul><li class="file home-link"><a href="%s%s"%s>Index</a></li></ul>`+"\n", base, IndexFile, active)
	renderChildren(&b, t, activePath, base)
	return b.String()
}

func renderChildren(b *strings.Builder, node *FileTree, activePath, base string) {
	if len(node.Children) == 0 {
		return
	}
	b.WriteString("<ul>\n")
	for _, child := range node.Children {
		if child.IsDir {
			fmt.Fprintf(b, `<li class="dir"><span class="dir-toggle">%s</span>`+"\n", html.EscapeString(child.Title))
			renderChildren(b, child, activePath, base)
			b.WriteString("</li>\n")
			continue
		}
		name := child.Title
		if name == "" {
			name = strings.TrimSuffix(child.Name, path.Ext(child.Name))
		}
		class := ""
		if child.Path == activePath {
			class = ` class="active"`
		}
		fmt.Fprintf(b, `<li class="file"><a href="%s%s"%s>%s</a></li>`+"\n",
			base, html.EscapeString(HTMLPath(child.Path)), class, html.EscapeString(name))
	}
	b.WriteString("</ul>\n")
}

// HTMLPath converts a Markdown path to the page it is rendered to.
func HTMLPath(p string) string {
	if ext := path.Ext(p); ext == ".md" || ext == ".markdown" {
		return strings.TrimSuffix(p, ext) + ".html"
	}
	return p + ".html"
}

// formatDirName title-cases a directory slug.
func formatDirName(name string) string {
	words := strings.FieldsFunc(name, func(c rune) bool {
		return c == '-' || c == '_'
	})
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
