package canvas

import "sync"

// Registry holds the live app instances of one canvas, in instantiation
// order. It is append-only during bootstrap and owned exclusively by its
// canvas.
type Registry struct {
	mu      sync.Mutex
	entries []registryEntry
}

type registryEntry struct {
	id  string
	app App
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends an instance under its app id.
func (r *Registry) Add(id string, app App) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, registryEntry{id: id, app: app})
}

// Get returns the instance registered under id.
func (r *Registry) Get(id string) (App, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.id == id {
			return e.app, true
		}
	}
	return nil, false
}

// Apps returns the instances in instantiation order.
func (r *Registry) Apps() []App {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]App, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.app)
	}
	return out
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Destroy tears one instance down. A nil app is a no-op; partially
// constructed entries may hand one in.
func (r *Registry) Destroy(app App) {
	if app == nil {
		return
	}
	app.Destroy()
}

// Teardown destroys every instance in order and clears the registry.
func (r *Registry) Teardown() {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.mu.Unlock()

	for _, e := range entries {
		r.Destroy(e.app)
	}
}
