// internal/widget/registry.go
//
// Widget registry and visibility helpers.
//
// Context
// -------
// The Registry is the single source of truth for which widgets exist and
// which of those a given viewer may see.  It is constructed once by the
// composition root (cmd/web), filled by the bootstrap step in
// internal/widgets, and then shared by reference with every consumer.
// There is no package-level instance; tests build a fresh Registry each.
//
// Lookup order is insertion order so catalogs display stably.  Callers
// must not depend on it for correctness.
//
// Notes
// -----
//   - Registering an existing ID replaces the entry in place.
//   - No method panics or returns an error for an unknown ID.
//   - Reads take an RLock, so lookups are safe from any request goroutine
//     even if a late registration races them.
package widget

import (
	"errors"
	"sync"
)

// ErrMissingID is returned by Register when Config.ID is empty.
var ErrMissingID = errors.New("widget: config id is required")

// Registry maps Config.ID → Widget.  Zero value is not usable; call
// NewRegistry.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Widget
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Widget)}
}

// Register inserts w or replaces the entry with the same ID.
func (r *Registry) Register(w Widget) error {
	if w.Config.ID == "" {
		return ErrMissingID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[w.Config.ID]; !exists {
		r.order = append(r.order, w.Config.ID)
	}
	r.byID[w.Config.ID] = w
	return nil
}

// Unregister removes id.  Unknown IDs are a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the widget and true, or the zero Widget and false.
func (r *Registry) Get(id string) (Widget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byID[id]
	return w, ok
}

// Len reports the number of registered widgets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// All returns a copy of every entry in insertion order.
func (r *Registry) All() []Widget {
	return r.filter(func(Widget) bool { return true })
}

// ByCategory returns entries whose category matches exactly.
func (r *Registry) ByCategory(c Category) []Widget {
	return r.filter(func(w Widget) bool { return w.Config.Category == c })
}

// AvailableFor returns the widgets v is permitted to see.  Anonymous
// viewers only ever see widgets with RequiresAuth and AdminOnly unset.
func (r *Registry) AvailableFor(v *Viewer) []Widget {
	return r.filter(func(w Widget) bool { return Visible(w.Config, v) })
}

// Enabled intersects AvailableFor(v) with ids.  Availability is the
// authoritative gate: an enabled ID the viewer may not see is dropped.
// Results follow registry order, not the order of ids.
func (r *Registry) Enabled(ids []string, v *Viewer) []Widget {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return r.filter(func(w Widget) bool {
		if _, ok := want[w.Config.ID]; !ok {
			return false
		}
		return Visible(w.Config, v)
	})
}

// Defaults returns the IDs of available widgets flagged DefaultEnabled.
// Used for viewers who never customised their widget set.
func (r *Registry) Defaults(v *Viewer) []string {
	var ids []string
	for _, w := range r.AvailableFor(v) {
		if w.Config.DefaultEnabled {
			ids = append(ids, w.Config.ID)
		}
	}
	return ids
}

// Visible applies the per-widget gate.
func Visible(c Config, v *Viewer) bool {
	if c.RequiresAuth && v == nil {
		return false
	}
	if c.AdminOnly && !v.IsAdmin() {
		return false
	}
	return true
}

func (r *Registry) filter(keep func(Widget) bool) []Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Widget, 0, len(r.order))
	for _, id := range r.order {
		w := r.byID[id]
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}
