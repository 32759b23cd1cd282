package sse

// ViewPublisher adapts the broker to the engine's view interface: every
// state-change notification becomes an SSE event.
type ViewPublisher struct {
	broker *Broker
}

// NewViewPublisher wraps broker as a view notification sink.
func NewViewPublisher(broker *Broker) *ViewPublisher {
	return &ViewPublisher{broker: broker}
}

// StructureChanged broadcasts the affected paths of a tree mutation.
func (v *ViewPublisher) StructureChanged(paths []string) {
	v.broker.Publish(Event{Type: "structure.changed", Data: map[string]any{"paths": paths}})
}

// SelectionChanged broadcasts the new current document ("" for none).
func (v *ViewPublisher) SelectionChanged(path string) {
	v.broker.Publish(Event{Type: "selection.changed", Data: map[string]any{"path": path}})
}

// DirtyChanged broadcasts a dirty-flag transition.
func (v *ViewPublisher) DirtyChanged(path string, dirty bool) {
	v.broker.Publish(Event{Type: "dirty.changed", Data: map[string]any{"path": path, "dirty": dirty}})
}

// NavigationAvailability broadcasts back/forward control state.
func (v *ViewPublisher) NavigationAvailability(canBack, canForward bool) {
	v.broker.Publish(Event{Type: "navigation.changed", Data: map[string]any{
		"can_back":    canBack,
		"can_forward": canForward,
	}})
}

// PublishIndexEvent broadcasts a watcher-driven search index change.
func (v *ViewPublisher) PublishIndexEvent(kind, path string) {
	v.broker.Publish(Event{Type: "index." + kind, Data: map[string]any{"path": path}})
}
