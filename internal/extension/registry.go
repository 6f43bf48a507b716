package extension

import "github.com/google/uuid"

// New creates an empty Extension with a stable registry id, the same
// google/uuid stamping internal/eventloop uses for timer/immediate debug
// ids (spec.md's DOMAIN STACK wires google/uuid across both).
func New(name string) *Extension {
	return &Extension{ID: uuid.NewString(), Name: name, state: make(map[string]any)}
}

// Registry holds every Extension registered with a runtime before first
// eval (spec.md §4.7 "Registration").
type Registry struct {
	extensions []*Extension
	byName     map[string]*Extension
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Extension)}
}

// Register adds ext to the registry, keyed by its name.
func (r *Registry) Register(ext *Extension) {
	r.extensions = append(r.extensions, ext)
	r.byName[ext.Name] = ext
}

// Extensions returns every registered extension in registration order.
func (r *Registry) Extensions() []*Extension { return r.extensions }

// Lookup finds a previously registered extension by name.
func (r *Registry) Lookup(name string) (*Extension, bool) {
	ext, ok := r.byName[name]
	return ext, ok
}
