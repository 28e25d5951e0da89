package window

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned when a label is not registered.
	ErrNotFound = errors.New("window not found")
	// ErrDuplicateLabel is returned when a label is already registered.
	ErrDuplicateLabel = errors.New("duplicate window label")
)

// Registry is the process-wide table of window records keyed by label.
//
// The mutex only guards the container. Flag reads and writes go straight to
// the record atomics, so toggles never wait on unrelated inserts or removals.
type Registry struct {
	mu      sync.Mutex
	order   []string
	records map[string]*Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Add inserts a record. It fails when the label is already present.
func (r *Registry) Add(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	if rec.Label == "" {
		return fmt.Errorf("record label is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.Label]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateLabel, rec.Label)
	}
	r.records[rec.Label] = rec
	r.order = append(r.order, rec.Label)
	return nil
}

// Remove deletes a record and hands it back for cleanup.
func (r *Registry) Remove(label string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
	}
	delete(r.records, label)
	for i, l := range r.order {
		if l == label {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return rec, nil
}

// Lookup returns the live record for atomic field access.
func (r *Registry) Lookup(label string) (*Record, error) {
	r.mu.Lock()
	rec, ok := r.records[label]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
	}
	return rec, nil
}

// Get returns a value snapshot of the record's flags.
func (r *Registry) Get(label string) (Status, bool) {
	rec, err := r.Lookup(label)
	if err != nil {
		return Status{}, false
	}
	return rec.Status(), true
}

// Has reports whether label is registered.
func (r *Registry) Has(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[label]
	return ok
}

// Len returns the number of registered records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Labels returns the registered labels in insertion order.
func (r *Registry) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Snapshot returns a point-in-time copy of every record in insertion order.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	recs := make([]*Record, 0, len(r.order))
	for _, label := range r.order {
		recs = append(recs, r.records[label])
	}
	r.mu.Unlock()

	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Entry())
	}
	return out
}
