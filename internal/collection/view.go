package collection

// View receives notifications after the engine finishes a state change.
// Implementations render the tree, editor, and navigation controls; the
// engine owns no rendering logic. Every callback fires after all internal
// structures are consistent.
type View interface {
	// StructureChanged reports the paths affected by a tree mutation.
	// An empty path ("") means the whole collection should reload.
	StructureChanged(paths []string)
	// SelectionChanged reports the new current document, "" for none.
	SelectionChanged(path string)
	// DirtyChanged reports a dirty-flag transition for an open document.
	DirtyChanged(path string, dirty bool)
	// NavigationAvailability reports back/forward control state.
	NavigationAvailability(canBack, canForward bool)
}

// NopView discards all notifications. Used for tests and headless runs.
type NopView struct{}

func (NopView) StructureChanged([]string)         {}
func (NopView) SelectionChanged(string)           {}
func (NopView) DirtyChanged(string, bool)         {}
func (NopView) NavigationAvailability(bool, bool) {}
