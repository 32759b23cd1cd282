// Package pathtree maintains an in-memory hierarchical mirror of the
// collection directory. It performs no I/O; it is rebuilt or patched from
// scan results and keeps every node addressable by its relative path.
package pathtree

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/disiqueira/gotree/v3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/storage"
)

// Kind tags a node as a directory or one of the supported document types.
type Kind int

const (
	KindDirectory Kind = iota
	KindMarkdown
	KindImage
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindMarkdown:
		return "markdown"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// KindForFile classifies a file name by extension. The second return is
// false for file types the collection does not track.
func KindForFile(name string) (Kind, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".md"):
		return KindMarkdown, true
	case strings.HasSuffix(lower, ".png"),
		strings.HasSuffix(lower, ".jpg"),
		strings.HasSuffix(lower, ".jpeg"),
		strings.HasSuffix(lower, ".gif"):
		return KindImage, true
	default:
		return 0, false
	}
}

// Node is one entry in the mirrored hierarchy. Directories carry an ordered
// child list (directories first, then lexical); documents are leaves.
type Node struct {
	Name     string
	Path     string // slash-separated, relative to the collection root
	Kind     Kind
	Children []*Node
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Kind == KindDirectory
}

// Tree is the path index: a root node plus a flat path→node map.
type Tree struct {
	root  *Node
	nodes map[string]*Node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		root:  &Node{Kind: KindDirectory},
		nodes: make(map[string]*Node),
	}
}

// Build replaces the entire index from a flat scan result. Entries may
// arrive in any order; missing intermediate directories are materialized
// lazily. Files of untracked types are ignored. The new index is assembled
// aside and swapped in whole, so no reader observes a partial build.
func (t *Tree) Build(entries []storage.Entry) {
	fresh := New()
	for _, e := range entries {
		fresh.Insert(e.Path, e.IsDir)
	}
	t.root = fresh.root
	t.nodes = fresh.nodes
}

// Insert adds a single node, creating missing ancestor directories.
// It reports whether the path is now present in the index (false only for
// untracked file types). Inserting an existing path is a no-op.
func (t *Tree) Insert(p string, isDir bool) bool {
	p = path.Clean(p)
	if p == "." || p == "/" || p == "" {
		return false
	}
	if _, ok := t.nodes[p]; ok {
		return true
	}
	kind := KindDirectory
	if !isDir {
		k, tracked := KindForFile(path.Base(p))
		if !tracked {
			return false
		}
		kind = k
	}
	parent := t.ensureDir(parentOf(p))
	n := &Node{Name: path.Base(p), Path: p, Kind: kind}
	attachChild(parent, n)
	t.nodes[p] = n
	return true
}

// ensureDir returns the directory node at p, materializing it and any
// missing ancestors.
func (t *Tree) ensureDir(p string) *Node {
	if p == "" {
		return t.root
	}
	if n, ok := t.nodes[p]; ok {
		return n
	}
	parent := t.ensureDir(parentOf(p))
	n := &Node{Name: path.Base(p), Path: p, Kind: KindDirectory}
	attachChild(parent, n)
	t.nodes[p] = n
	return n
}

// Remove deletes a node and, for directories, its entire subtree.
// It reports whether anything was removed.
func (t *Tree) Remove(p string) bool {
	n, ok := t.nodes[p]
	if !ok {
		return false
	}
	parent := t.parentNode(p)
	detachChild(parent, n)
	t.forget(n)
	return true
}

// forget drops n and all its descendants from the path map.
func (t *Tree) forget(n *Node) {
	delete(t.nodes, n.Path)
	for _, c := range n.Children {
		t.forget(c)
	}
}

// RenamePrefix re-keys the node at oldPath and its whole subtree under
// newPath. Renaming a path onto itself is a no-op. The rewrite is prepared
// against the live structure and applied in one step, so no lookup ever
// sees a half-renamed subtree.
func (t *Tree) RenamePrefix(oldPath, newPath string) error {
	if oldPath == newPath {
		return nil
	}
	n, ok := t.nodes[oldPath]
	if !ok {
		return fmt.Errorf("pathtree: rename %s: %w", oldPath, apperr.ErrNotFound)
	}
	if _, exists := t.nodes[newPath]; exists {
		return fmt.Errorf("pathtree: rename to %s: %w", newPath, apperr.ErrAlreadyExists)
	}
	if underPrefix(newPath, oldPath) {
		return fmt.Errorf("pathtree: rename %s into own subtree %s: %w", oldPath, newPath, apperr.ErrInvalidMove)
	}

	detachChild(t.parentNode(oldPath), n)
	t.forget(n)

	rekeySubtree(n, newPath)
	parent := t.ensureDir(parentOf(newPath))
	attachChild(parent, n)
	t.remember(n)
	return nil
}

// rekeySubtree rewrites Path and Name for n and every descendant.
func rekeySubtree(n *Node, newPath string) {
	n.Path = newPath
	n.Name = path.Base(newPath)
	for _, c := range n.Children {
		rekeySubtree(c, newPath+"/"+c.Name)
	}
}

// remember registers n and all its descendants in the path map.
func (t *Tree) remember(n *Node) {
	t.nodes[n.Path] = n
	for _, c := range n.Children {
		t.remember(c)
	}
}

// Find returns the node at p, if present.
func (t *Tree) Find(p string) (*Node, bool) {
	n, ok := t.nodes[p]
	return n, ok
}

// Root returns the synthetic root directory node.
func (t *Tree) Root() *Node {
	return t.root
}

// Len returns the number of indexed nodes, excluding the root.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Paths returns every indexed path in sorted order.
func (t *Tree) Paths() []string {
	out := make([]string, 0, len(t.nodes))
	for p := range t.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DocumentPaths returns the paths of all document (non-directory) nodes,
// sorted.
func (t *Tree) DocumentPaths() []string {
	var out []string
	for p, n := range t.nodes {
		if !n.IsDir() {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Render returns an ASCII drawing of the tree. rootLabel names the root
// line; decorate, if non-nil, may prefix each node label (e.g. a dirty
// marker).
func (t *Tree) Render(rootLabel string, decorate func(*Node) string) string {
	g := gotree.New(rootLabel)
	var add func(parent gotree.Tree, n *Node)
	add = func(parent gotree.Tree, n *Node) {
		label := n.Name
		if decorate != nil {
			label = decorate(n) + label
		}
		branch := parent.Add(label)
		for _, c := range n.Children {
			add(branch, c)
		}
	}
	for _, c := range t.root.Children {
		add(g, c)
	}
	return g.Print()
}

// parentNode returns the parent directory node for path p.
func (t *Tree) parentNode(p string) *Node {
	pp := parentOf(p)
	if pp == "" {
		return t.root
	}
	return t.nodes[pp]
}

// parentOf returns the parent path of p, "" for top-level entries.
func parentOf(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// underPrefix reports whether p equals prefix or lives below it.
func underPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// attachChild inserts c into parent keeping directories first, then
// lexical order.
func attachChild(parent, c *Node) {
	idx := sort.Search(len(parent.Children), func(i int) bool {
		return childLess(c, parent.Children[i])
	})
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[idx+1:], parent.Children[idx:])
	parent.Children[idx] = c
}

func detachChild(parent, c *Node) {
	for i, ch := range parent.Children {
		if ch == c {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}

func childLess(a, b *Node) bool {
	if a.IsDir() != b.IsDir() {
		return a.IsDir()
	}
	return a.Name < b.Name
}
