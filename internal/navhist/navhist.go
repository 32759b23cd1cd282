// Package navhist implements bounded back/forward navigation history over
// visited document paths, with browser semantics: visiting truncates any
// forward entries, and consecutive duplicates collapse.
package navhist

import "strings"

// DefaultLimit bounds the history length; the oldest entry is dropped once
// the limit is reached.
const DefaultLimit = 100

// History is a linear list of visited paths with a cursor. A cursor of -1
// means the empty state.
type History struct {
	entries []string
	cursor  int
	limit   int
}

// New returns an empty history with the default bound.
func New() *History {
	return NewWithLimit(DefaultLimit)
}

// NewWithLimit returns an empty history bounded to limit entries.
func NewWithLimit(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{cursor: -1, limit: limit}
}

// Visit appends path as the new current entry, discarding forward history.
// Visiting the path already at the cursor is a no-op.
func (h *History) Visit(path string) {
	if cur, ok := h.Current(); ok && cur == path {
		return
	}
	h.entries = append(h.entries[:h.cursor+1], path)
	if len(h.entries) > h.limit {
		h.entries = h.entries[1:]
	}
	h.cursor = len(h.entries) - 1
}

// Current returns the path at the cursor.
func (h *History) Current() (string, bool) {
	if h.cursor < 0 || h.cursor >= len(h.entries) {
		return "", false
	}
	return h.entries[h.cursor], true
}

// CanGoBack reports whether a back step is available.
func (h *History) CanGoBack() bool {
	return h.cursor > 0
}

// CanGoForward reports whether a forward step is available.
func (h *History) CanGoForward() bool {
	return h.cursor < len(h.entries)-1
}

// Back steps the cursor back and returns the path there.
func (h *History) Back() (string, bool) {
	if !h.CanGoBack() {
		return "", false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Forward steps the cursor forward and returns the path there.
func (h *History) Forward() (string, bool) {
	if !h.CanGoForward() {
		return "", false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// SubstitutePrefix rewrites every entry at or below oldPath to the
// corresponding path under newPath. Entries are rewritten, not dropped, to
// preserve back/forward positions.
func (h *History) SubstitutePrefix(oldPath, newPath string) {
	if oldPath == newPath {
		return
	}
	for i, p := range h.entries {
		if underPrefix(p, oldPath) {
			h.entries[i] = newPath + strings.TrimPrefix(p, oldPath)
		}
	}
	h.collapse()
}

// DropPath removes every entry equal to path, clamping the cursor.
func (h *History) DropPath(path string) {
	h.drop(func(p string) bool { return p == path })
}

// DropPrefix removes every entry at or below prefix, clamping the cursor.
func (h *History) DropPrefix(prefix string) {
	h.drop(func(p string) bool { return underPrefix(p, prefix) })
}

// drop removes entries matching the predicate. If the cursor entry is
// removed it clamps to the nearest surviving entry, preferring the previous
// one, then the next, then the empty state.
func (h *History) drop(match func(string) bool) {
	kept := h.entries[:0:0]
	newCursor := -1
	keptBefore := 0
	cursorSurvived := false

	for i, p := range h.entries {
		if match(p) {
			continue
		}
		kept = append(kept, p)
		if i < h.cursor {
			keptBefore++
		}
		if i == h.cursor {
			cursorSurvived = true
			newCursor = len(kept) - 1
		}
	}

	h.entries = kept
	switch {
	case cursorSurvived:
		h.cursor = newCursor
	case keptBefore > 0:
		h.cursor = keptBefore - 1
	case len(kept) > 0:
		h.cursor = 0
	default:
		h.cursor = -1
	}
	h.collapse()
}

// collapse squashes runs of identical consecutive entries, which rewrites
// and removals can create.
func (h *History) collapse() {
	if len(h.entries) < 2 {
		return
	}
	out := h.entries[:1]
	cursor := h.cursor
	for i := 1; i < len(h.entries); i++ {
		if h.entries[i] == out[len(out)-1] {
			if i <= h.cursor {
				cursor--
			}
			continue
		}
		out = append(out, h.entries[i])
	}
	h.entries = out
	if cursor >= len(out) {
		cursor = len(out) - 1
	}
	h.cursor = cursor
}

// Reset clears all entries. Used when switching collections.
func (h *History) Reset() {
	h.entries = nil
	h.cursor = -1
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the history list, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// underPrefix reports whether p equals prefix or lives below it.
func underPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
