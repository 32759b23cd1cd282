// Package collection implements the controller that keeps the path index,
// document cache, navigation history, and current selection synchronized
// with the on-disk collection. Every mutating operation is one logical
// transaction: validate, delegate the physical change to storage, then
// update the in-memory structures in a fixed order and notify the view
// once.
//
// The controller is single-actor: callers must serialize all invocations
// onto one logical sequence. It holds no locks of its own.
package collection

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/doccache"
	"github.com/starford/raido/internal/navhist"
	"github.com/starford/raido/internal/pathtree"
	"github.com/starford/raido/internal/storage"
)

// Indexer receives persisted document changes so a search index can stay
// aligned with the collection. All methods are best-effort from the
// controller's point of view: failures are logged, never fatal.
type Indexer interface {
	IndexDocument(path string, data []byte) error
	RemovePath(path string) error
	RemovePrefix(prefix string) error
	RenamePrefix(oldPath, newPath string) error
	Rebuild(store storage.Provider) error
}

const welcomeDocument = `# Welcome

This collection was just created.

- Documents are plain Markdown files; directories group them.
- Create, rename, move, and delete entries freely: open documents follow
  their files around, unsaved edits included.
- Images (png, jpg, jpeg, gif) live alongside documents and show up in the
  tree.
`

// Controller owns the live collection state. The zero state is Empty: no
// root open, every query fails with ErrNoCollection until Open succeeds.
type Controller struct {
	logger *slog.Logger
	view   View
	prefs  *Prefs  // optional
	idx    Indexer // optional

	// Live state, valid only between a successful Open and the next
	// Open/Close.
	store   storage.Provider
	root    string
	tree    *pathtree.Tree
	cache   *doccache.Cache
	hist    *navhist.History
	current string // "" = no selection
}

// New creates a controller in the Empty state. view, prefs, and idx may be
// nil; a nil view discards notifications.
func New(view View, prefs *Prefs, idx Indexer, logger *slog.Logger) *Controller {
	if view == nil {
		view = NopView{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{logger: logger, view: view, prefs: prefs, idx: idx}
}

// IsOpen reports whether a collection is loaded.
func (c *Controller) IsOpen() bool {
	return c.store != nil
}

// Root returns the absolute path of the open collection, "" when Empty.
func (c *Controller) Root() string {
	return c.root
}

// Open loads the collection rooted at rootPath, tearing down all state
// from any previously open collection first. A path that does not exist
// yet is scaffolded with a starter document. On failure the controller is
// left Empty.
//
// Discarding unsaved changes is the caller's responsibility: check
// DirtyPaths before opening a different collection.
func (c *Controller) Open(rootPath string) error {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return fmt.Errorf("collection: resolve root: %w", err)
	}

	// No cross-collection leakage: previous state goes away regardless of
	// whether the open below succeeds.
	c.teardown()

	scaffolded := false
	if _, statErr := os.Stat(abs); errors.Is(statErr, os.ErrNotExist) {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return fmt.Errorf("collection: create root: %w", err)
		}
		scaffolded = true
	}

	store, err := storage.NewFS(abs)
	if err != nil {
		return err
	}
	if scaffolded {
		if err := store.CreateFile("welcome.md", []byte(welcomeDocument)); err != nil {
			return err
		}
	}

	entries, err := store.ListTree()
	if err != nil {
		return err
	}

	tree := pathtree.New()
	tree.Build(entries)

	c.store = store
	c.root = abs
	c.tree = tree
	c.cache = doccache.New()
	c.hist = navhist.New()
	c.current = ""

	if c.prefs != nil {
		if err := c.prefs.SaveLastCollection(abs); err != nil {
			c.logger.Warn("collection: save preference failed", slog.String("error", err.Error()))
		}
	}
	if c.idx != nil {
		if err := c.idx.Rebuild(store); err != nil {
			c.logger.Warn("collection: index rebuild failed", slog.String("error", err.Error()))
		}
	}

	c.logger.Info("collection: opened",
		slog.String("root", abs),
		slog.Int("nodes", tree.Len()))

	c.view.StructureChanged([]string{""})
	c.view.SelectionChanged("")
	c.view.NavigationAvailability(false, false)
	return nil
}

// Close tears the collection down, returning to the Empty state.
func (c *Controller) Close() {
	if !c.IsOpen() {
		return
	}
	c.teardown()
	c.view.StructureChanged([]string{""})
	c.view.SelectionChanged("")
	c.view.NavigationAvailability(false, false)
}

func (c *Controller) teardown() {
	c.store = nil
	c.root = ""
	c.tree = nil
	if c.cache != nil {
		c.cache.Reset()
	}
	c.cache = nil
	if c.hist != nil {
		c.hist.Reset()
	}
	c.hist = nil
	c.current = ""
}

// Tree returns the live path index. Callers must not mutate it.
func (c *Controller) Tree() (*pathtree.Tree, error) {
	if !c.IsOpen() {
		return nil, apperr.ErrNoCollection
	}
	return c.tree, nil
}

// RenderTree returns an ASCII drawing of the collection, marking dirty
// documents with an asterisk.
func (c *Controller) RenderTree() (string, error) {
	if !c.IsOpen() {
		return "", apperr.ErrNoCollection
	}
	label := filepath.Base(c.root)
	return c.tree.Render(label, func(n *pathtree.Node) string {
		if !n.IsDir() && c.cache.IsDirty(n.Path) {
			return "* "
		}
		return ""
	}), nil
}

// Selection returns the current document path, "" for none.
func (c *Controller) Selection() string {
	return c.current
}

// DirtyPaths returns the open documents with unsaved changes.
func (c *Controller) DirtyPaths() []string {
	if !c.IsOpen() {
		return nil
	}
	return c.cache.DirtyPaths()
}

// CanGoBack reports back-navigation availability.
func (c *Controller) CanGoBack() bool {
	return c.IsOpen() && c.hist.CanGoBack()
}

// CanGoForward reports forward-navigation availability.
func (c *Controller) CanGoForward() bool {
	return c.IsOpen() && c.hist.CanGoForward()
}

// CreateDocument creates a new markdown document named name under dir
// (which may be ""), seeds it with a heading template, and returns its
// path. The ".md" suffix is appended when missing.
func (c *Controller) CreateDocument(dir, name string) (string, error) {
	if !c.IsOpen() {
		return "", apperr.ErrNoCollection
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("collection: document name is empty: %w", apperr.ErrNotFound)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".md") {
		name += ".md"
	}
	p, err := c.cleanPath(path.Join(dir, name))
	if err != nil {
		return "", err
	}
	if _, exists := c.tree.Find(p); exists || c.store.Exists(p) {
		return "", fmt.Errorf("collection: create %s: %w", p, apperr.ErrAlreadyExists)
	}

	template := []byte("# " + strings.TrimSuffix(path.Base(p), ".md") + "\n")
	if err := c.store.CreateFile(p, template); err != nil {
		return "", err
	}

	c.tree.Insert(p, false)
	c.indexUpsert(p, template)
	c.view.StructureChanged([]string{p})
	return p, nil
}

// CreateDirectory creates a directory at p.
func (c *Controller) CreateDirectory(p string) error {
	if !c.IsOpen() {
		return apperr.ErrNoCollection
	}
	p, err := c.cleanPath(p)
	if err != nil {
		return err
	}
	if _, exists := c.tree.Find(p); exists || c.store.Exists(p) {
		return fmt.Errorf("collection: create directory %s: %w", p, apperr.ErrAlreadyExists)
	}
	if err := c.store.CreateDir(p); err != nil {
		return err
	}
	c.tree.Insert(p, true)
	c.view.StructureChanged([]string{p})
	return nil
}

// ImportImage stores image data as a new file named name under dir and
// returns its path. Only tracked image extensions are accepted.
func (c *Controller) ImportImage(dir, name string, data []byte) (string, error) {
	if !c.IsOpen() {
		return "", apperr.ErrNoCollection
	}
	kind, tracked := pathtree.KindForFile(name)
	if !tracked || kind != pathtree.KindImage {
		return "", fmt.Errorf("collection: %s is not a supported image: %w", name, apperr.ErrNotFound)
	}
	p, err := c.cleanPath(path.Join(dir, name))
	if err != nil {
		return "", err
	}
	if _, exists := c.tree.Find(p); exists || c.store.Exists(p) {
		return "", fmt.Errorf("collection: import %s: %w", p, apperr.ErrAlreadyExists)
	}
	if err := c.store.CreateFile(p, data); err != nil {
		return "", err
	}
	c.tree.Insert(p, false)
	c.view.StructureChanged([]string{p})
	return p, nil
}

// OpenDocument makes p the current document, loading its state into the
// cache on first open and recording the visit in navigation history. A
// read failure opens an empty document and is logged, not returned.
// Image documents select and enter history but carry no editing state;
// for them the returned state is nil.
func (c *Controller) OpenDocument(p string) (*doccache.DocumentState, error) {
	if !c.IsOpen() {
		return nil, apperr.ErrNoCollection
	}
	p, err := c.cleanPath(p)
	if err != nil {
		return nil, err
	}
	return c.open(p, true)
}

// open is the shared path for OpenDocument and history navigation; record
// controls whether the visit is pushed onto the history.
func (c *Controller) open(p string, record bool) (*doccache.DocumentState, error) {
	n, ok := c.tree.Find(p)
	if !ok || n.IsDir() {
		return nil, fmt.Errorf("collection: open %s: %w", p, apperr.ErrNotFound)
	}

	if record {
		c.hist.Visit(p)
	}

	// Images never enter the cache: there is no text snapshot to edit and
	// nothing may ever be written back over the binary.
	var st *doccache.DocumentState
	if n.Kind == pathtree.KindMarkdown {
		var warn error
		st, warn = c.cache.GetOrCreate(p, c.store.Read)
		if warn != nil {
			c.logger.Warn("collection: document load failed, opened empty",
				slog.String("path", p),
				slog.String("error", warn.Error()))
		}
	}

	if c.current != p {
		c.current = p
		c.view.SelectionChanged(p)
	}
	c.view.NavigationAvailability(c.hist.CanGoBack(), c.hist.CanGoForward())
	return st, nil
}

// Document returns the cached state for p without opening it.
func (c *Controller) Document(p string) (*doccache.DocumentState, error) {
	if !c.IsOpen() {
		return nil, apperr.ErrNoCollection
	}
	st, ok := c.cache.Get(p)
	if !ok {
		return nil, fmt.Errorf("collection: document %s not open: %w", p, apperr.ErrNotFound)
	}
	return st, nil
}

// Content returns the current content of the document at p: the cached
// (possibly dirty) snapshot when open, the on-disk bytes otherwise.
func (c *Controller) Content(p string) ([]byte, error) {
	if !c.IsOpen() {
		return nil, apperr.ErrNoCollection
	}
	p, err := c.cleanPath(p)
	if err != nil {
		return nil, err
	}
	if st, ok := c.cache.Get(p); ok {
		return st.Content, nil
	}
	n, ok := c.tree.Find(p)
	if !ok || n.IsDir() {
		return nil, fmt.Errorf("collection: content %s: %w", p, apperr.ErrNotFound)
	}
	return c.store.Read(p)
}

// UpdateContent replaces the in-memory content of an open document and
// marks it dirty. The document must have been opened first.
func (c *Controller) UpdateContent(p string, content []byte) error {
	if !c.IsOpen() {
		return apperr.ErrNoCollection
	}
	st, ok := c.cache.Get(p)
	if !ok {
		return fmt.Errorf("collection: update %s: %w", p, apperr.ErrNotFound)
	}
	st.Content = content
	if c.cache.MarkDirty(p, true) {
		c.view.DirtyChanged(p, true)
	}
	return nil
}

// SaveDocument persists the in-memory content of an open document and
// clears its dirty flag.
func (c *Controller) SaveDocument(p string) error {
	if !c.IsOpen() {
		return apperr.ErrNoCollection
	}
	st, ok := c.cache.Get(p)
	if !ok {
		return fmt.Errorf("collection: save %s: %w", p, apperr.ErrNotFound)
	}
	if err := c.store.Write(p, st.Content); err != nil {
		return err
	}
	if c.cache.MarkDirty(p, false) {
		c.view.DirtyChanged(p, false)
	}
	c.indexUpsert(p, st.Content)
	return nil
}

// Rename gives the node at p a new basename within the same directory and
// returns the new path. Markdown documents keep their ".md" suffix.
func (c *Controller) Rename(p, newName string) (string, error) {
	if !c.IsOpen() {
		return "", apperr.ErrNoCollection
	}
	p, err := c.cleanPath(p)
	if err != nil {
		return "", err
	}
	n, ok := c.tree.Find(p)
	if !ok {
		return "", fmt.Errorf("collection: rename %s: %w", p, apperr.ErrNotFound)
	}
	newName = strings.TrimSpace(newName)
	if newName == "" || strings.Contains(newName, "/") {
		return "", fmt.Errorf("collection: invalid name %q: %w", newName, apperr.ErrInvalidMove)
	}
	if n.Kind == pathtree.KindMarkdown && !strings.HasSuffix(strings.ToLower(newName), ".md") {
		newName += ".md"
	}
	if n.Kind == pathtree.KindImage {
		// Keep the image extension: an extension-less path would be
		// untracked and vanish on the next rescan.
		if k, tracked := pathtree.KindForFile(newName); !tracked || k != pathtree.KindImage {
			newName += strings.ToLower(path.Ext(p))
		}
	}
	newPath := newName
	if parent := parentOf(p); parent != "" {
		newPath = parent + "/" + newName
	}
	if err := c.applyMove(p, newPath); err != nil && !errors.Is(err, apperr.ErrRekeyConflict) {
		return "", err
	} else if err != nil {
		return newPath, err
	}
	return newPath, nil
}

// Move relocates the node at src into directory dstDir, keeping its
// basename, and returns the new path.
func (c *Controller) Move(src, dstDir string) (string, error) {
	if !c.IsOpen() {
		return "", apperr.ErrNoCollection
	}
	src, err := c.cleanPath(src)
	if err != nil {
		return "", err
	}
	if _, ok := c.tree.Find(src); !ok {
		return "", fmt.Errorf("collection: move %s: %w", src, apperr.ErrNotFound)
	}
	dst := path.Base(src)
	if dstDir != "" {
		cleanDst, err := c.cleanPath(dstDir)
		if err != nil {
			return "", err
		}
		dstDir = cleanDst
		dst = dstDir + "/" + path.Base(src)
	}
	if err := c.applyMove(src, dst); err != nil && !errors.Is(err, apperr.ErrRekeyConflict) {
		return "", err
	} else if err != nil {
		return dst, err
	}
	return dst, nil
}

// applyMove performs the full move transaction: validate, physical move,
// then path index, document cache, navigation history, and selection, in
// that order, followed by a single view notification.
//
// If the cache rekey reports a conflict after the physical move succeeded,
// the filesystem is left authoritative: the conflicting cached entries
// under the old prefix are evicted, every other structure completes its
// update, and the conflict is returned as a warning.
func (c *Controller) applyMove(oldPath, newPath string) error {
	if oldPath == newPath {
		return fmt.Errorf("collection: move %s onto itself: %w", oldPath, apperr.ErrInvalidMove)
	}
	if underPrefix(newPath, oldPath) {
		return fmt.Errorf("collection: move %s into its own subtree %s: %w", oldPath, newPath, apperr.ErrInvalidMove)
	}
	if _, exists := c.tree.Find(newPath); exists || c.store.Exists(newPath) {
		return fmt.Errorf("collection: target %s: %w", newPath, apperr.ErrAlreadyExists)
	}

	if err := c.store.Move(oldPath, newPath); err != nil {
		return err
	}

	if err := c.tree.RenamePrefix(oldPath, newPath); err != nil {
		// Preconditions were validated above; a failure here means the
		// index and disk already disagreed.
		return err
	}

	var warn error
	if err := c.cache.RekeyPrefix(oldPath, newPath); err != nil {
		evicted := c.cache.RemovePrefix(oldPath)
		c.logger.Warn("collection: rekey conflict, evicted stale entries",
			slog.String("old", oldPath),
			slog.String("new", newPath),
			slog.Int("evicted", len(evicted)))
		warn = err
	}

	c.hist.SubstitutePrefix(oldPath, newPath)

	if underPrefix(c.current, oldPath) {
		if warn != nil {
			// The cached state for the selection was just evicted; a
			// selection must never point at a path without live state.
			c.current = ""
			c.view.SelectionChanged("")
		} else {
			c.current = newPath + strings.TrimPrefix(c.current, oldPath)
			c.view.SelectionChanged(c.current)
		}
	}

	c.indexRename(oldPath, newPath)

	c.view.StructureChanged([]string{oldPath, newPath})
	c.view.NavigationAvailability(c.hist.CanGoBack(), c.hist.CanGoForward())
	return warn
}

// Delete removes the node at p (recursively for directories) and drops
// every dependent structure entry. If the current document was inside the
// deleted subtree the selection clears.
func (c *Controller) Delete(p string) error {
	if !c.IsOpen() {
		return apperr.ErrNoCollection
	}
	p, err := c.cleanPath(p)
	if err != nil {
		return err
	}
	n, ok := c.tree.Find(p)
	if !ok {
		return fmt.Errorf("collection: delete %s: %w", p, apperr.ErrNotFound)
	}

	if err := c.store.Delete(p); err != nil {
		return err
	}

	c.tree.Remove(p)
	if n.IsDir() {
		c.cache.RemovePrefix(p)
		c.hist.DropPrefix(p)
		c.indexRemovePrefix(p)
	} else {
		c.cache.Remove(p)
		c.hist.DropPath(p)
		c.indexRemovePath(p)
	}

	if underPrefix(c.current, p) {
		c.current = ""
		c.view.SelectionChanged("")
	}

	c.view.StructureChanged([]string{p})
	c.view.NavigationAvailability(c.hist.CanGoBack(), c.hist.CanGoForward())
	return nil
}

// Back navigates to the previous history entry and opens it without
// recording a new visit. ok is false at the start of history.
func (c *Controller) Back() (string, bool, error) {
	if !c.IsOpen() {
		return "", false, apperr.ErrNoCollection
	}
	p, ok := c.hist.Back()
	if !ok {
		return "", false, nil
	}
	if _, err := c.open(p, false); err != nil {
		return "", false, err
	}
	return p, true, nil
}

// Forward navigates to the next history entry and opens it without
// recording a new visit. ok is false at the end of history.
func (c *Controller) Forward() (string, bool, error) {
	if !c.IsOpen() {
		return "", false, apperr.ErrNoCollection
	}
	p, ok := c.hist.Forward()
	if !ok {
		return "", false, nil
	}
	if _, err := c.open(p, false); err != nil {
		return "", false, err
	}
	return p, true, nil
}

// cleanPath normalizes a caller-supplied collection path.
func (c *Controller) cleanPath(p string) (string, error) {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("collection: empty path: %w", apperr.ErrNotFound)
	}
	return p, nil
}

// Search-index plumbing. Index failures never fail the operation that
// triggered them.

func (c *Controller) indexUpsert(p string, data []byte) {
	if c.idx == nil || !strings.HasSuffix(p, ".md") {
		return
	}
	if err := c.idx.IndexDocument(p, data); err != nil {
		c.logger.Warn("collection: index update failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}

func (c *Controller) indexRemovePath(p string) {
	if c.idx == nil {
		return
	}
	if err := c.idx.RemovePath(p); err != nil {
		c.logger.Warn("collection: index delete failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}

func (c *Controller) indexRemovePrefix(p string) {
	if c.idx == nil {
		return
	}
	if err := c.idx.RemovePrefix(p); err != nil {
		c.logger.Warn("collection: index prefix delete failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}

func (c *Controller) indexRename(oldPath, newPath string) {
	if c.idx == nil {
		return
	}
	if err := c.idx.RenamePrefix(oldPath, newPath); err != nil {
		c.logger.Warn("collection: index rename failed",
			slog.String("old", oldPath),
			slog.String("new", newPath),
			slog.String("error", err.Error()))
	}
}

// parentOf returns the parent path of p, "" for top-level entries.
func parentOf(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// underPrefix reports whether p equals prefix or lives below it. An empty
// p never matches.
func underPrefix(p, prefix string) bool {
	if p == "" {
		return false
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
