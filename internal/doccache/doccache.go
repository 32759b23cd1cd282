// Package doccache holds per-document editing state keyed by collection
// path. Entries survive renames by being re-keyed, never recreated, so an
// open editor keeps its content, dirty flag, and handle across any
// reorganization of the tree.
package doccache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/raido/internal/apperr"
)

// DocumentState is the cached editing state of one open document. Content
// and Handle are opaque to the engine: Content is whatever snapshot the
// host supplied, Handle belongs exclusively to the view side.
type DocumentState struct {
	Path    string
	Content []byte
	Dirty   bool
	Handle  any
}

// Cache owns the path→DocumentState map. Exactly one state exists per open
// path.
type Cache struct {
	states map[string]*DocumentState
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{states: make(map[string]*DocumentState)}
}

// GetOrCreate returns the state for path, constructing it via load on first
// open. A load failure is downgraded: the document opens with empty content
// and the error is returned as a warning alongside the usable state.
func (c *Cache) GetOrCreate(path string, load func(string) ([]byte, error)) (*DocumentState, error) {
	if st, ok := c.states[path]; ok {
		return st, nil
	}
	var warn error
	content, err := load(path)
	if err != nil {
		content = nil
		warn = fmt.Errorf("doccache: load %s: %w", path, err)
	}
	st := &DocumentState{Path: path, Content: content}
	c.states[path] = st
	return st, warn
}

// Get returns the state for path, if open.
func (c *Cache) Get(path string) (*DocumentState, bool) {
	st, ok := c.states[path]
	return st, ok
}

// Remove evicts one entry; no-op if absent.
func (c *Cache) Remove(path string) {
	delete(c.states, path)
}

// RemovePrefix evicts every entry at or below prefix and returns the
// evicted paths.
func (c *Cache) RemovePrefix(prefix string) []string {
	var removed []string
	for p := range c.states {
		if underPrefix(p, prefix) {
			removed = append(removed, p)
			delete(c.states, p)
		}
	}
	sort.Strings(removed)
	return removed
}

// RekeyPrefix moves every entry keyed at or below oldPath to the
// corresponding key under newPath. The operation is all-or-nothing: if any
// new key would collide with an entry that is not itself being moved, no
// entry is touched and the conflict is reported.
func (c *Cache) RekeyPrefix(oldPath, newPath string) error {
	if oldPath == newPath {
		return nil
	}

	moves := make(map[string]string)
	for p := range c.states {
		if underPrefix(p, oldPath) {
			moves[p] = newPath + strings.TrimPrefix(p, oldPath)
		}
	}
	if len(moves) == 0 {
		return nil
	}

	for from, to := range moves {
		if _, exists := c.states[to]; exists {
			if _, moving := moves[to]; !moving {
				return fmt.Errorf("doccache: rekey %s to %s: %w", from, to, apperr.ErrRekeyConflict)
			}
		}
	}

	// Detach every moved entry first, then reinsert: two keys in a move
	// set may otherwise overwrite each other mid-pass.
	moved := make(map[string]*DocumentState, len(moves))
	for from, to := range moves {
		moved[to] = c.states[from]
		delete(c.states, from)
	}
	for to, st := range moved {
		st.Path = to
		c.states[to] = st
	}
	return nil
}

// MarkDirty sets the dirty flag and reports whether it changed.
func (c *Cache) MarkDirty(path string, dirty bool) bool {
	st, ok := c.states[path]
	if !ok || st.Dirty == dirty {
		return false
	}
	st.Dirty = dirty
	return true
}

// IsDirty reports the dirty flag for path; false for unopened paths.
func (c *Cache) IsDirty(path string) bool {
	st, ok := c.states[path]
	return ok && st.Dirty
}

// DirtyPaths returns every open path whose content diverges from disk,
// sorted.
func (c *Cache) DirtyPaths() []string {
	var out []string
	for p, st := range c.states {
		if st.Dirty {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Paths returns every open path, sorted.
func (c *Cache) Paths() []string {
	out := make([]string, 0, len(c.states))
	for p := range c.states {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of open documents.
func (c *Cache) Len() int {
	return len(c.states)
}

// Reset drops every entry. Used when switching collections.
func (c *Cache) Reset() {
	c.states = make(map[string]*DocumentState)
}

// underPrefix reports whether p equals prefix or lives below it.
func underPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
