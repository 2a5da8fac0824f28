package handler

import (
	"sync"
	"time"

	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

// History is the append-and-update store of the latest fluent a handler
// has published per distinct key set, bounded by pruneAfter. It is safe
// for concurrent use; every access is guarded by its mutex.
type History struct {
	mu         sync.Mutex
	byKeys     map[string]fluent.Fluent
	order      []string
	pruneAfter int
}

// NewHistory constructs an empty History that retains at most pruneAfter
// entries; pruneAfter <= 0 means unbounded.
func NewHistory(pruneAfter int) *History {
	return &History{byKeys: make(map[string]fluent.Fluent), pruneAfter: pruneAfter}
}

// Advance updates (or creates) the history entry for keys, producing the
// new published fluent. If an entry already exists it is updated via
// Fluent.Update (preserving LastChange semantics); otherwise a new fluent
// is created with name/keys/timestamp/value and LastChange==timestamp.
func (h *History) Advance(name string, keys fluent.Keys, timestamp time.Time, value fluent.Value) (fluent.Fluent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := keys.String()
	existing, ok := h.byKeys[key]
	if !ok {
		f := fluent.New(name, keys, timestamp, value)
		h.byKeys[key] = f
		h.order = append(h.order, key)
		h.prune()
		return f, nil
	}

	updated, err := existing.Update(timestamp, value)
	if err != nil {
		return fluent.Fluent{}, err
	}
	h.byKeys[key] = updated
	return updated, nil
}

// Get returns the current history entry for keys, if any.
func (h *History) Get(keys fluent.Keys) (fluent.Fluent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.byKeys[keys.String()]
	return f, ok
}

// prune discards the oldest entries beyond pruneAfter. Must be called
// with h.mu held.
func (h *History) prune() {
	if h.pruneAfter <= 0 || len(h.order) <= h.pruneAfter {
		return
	}
	drop := len(h.order) - h.pruneAfter
	for _, key := range h.order[:drop] {
		delete(h.byKeys, key)
	}
	h.order = h.order[drop:]
}

// Len reports the number of distinct key sets currently retained.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}
