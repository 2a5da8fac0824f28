package handler

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

// Buffer holds, per key set, the most recent fluent observed for each
// dependency name. It is the Go analogue of the original implementation's
// BTreeMap<Vec<Key>, Vec<Fluent>>: deterministic iteration order matters
// for dependency_sets' key-set matching, which go-ordered-map provides
// without re-sorting on every access.
//
// A Buffer is owned by a single handler goroutine and is not safe for
// concurrent use.
type Buffer struct {
	entries *orderedmap.OrderedMap[string, bufferEntry]
}

type bufferEntry struct {
	keys    fluent.Keys
	fluents []fluent.Fluent
}

// NewBuffer constructs an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{entries: orderedmap.New[string, bufferEntry]()}
}

// Ingest records f under its key set: if a fluent of the same name is
// already buffered there, it is updated in place; otherwise f is appended.
// It mirrors the original run loop's buffer-maintenance step.
func (b *Buffer) Ingest(f fluent.Fluent) {
	key := f.Keys().String()
	entry, ok := b.entries.Get(key)
	if !ok {
		b.entries.Set(key, bufferEntry{keys: f.Keys(), fluents: []fluent.Fluent{f}})
		return
	}

	for i, existing := range entry.fluents {
		if existing.Name() == f.Name() {
			updated, err := existing.Update(f.Timestamp(), f.ValueOf())
			if err != nil {
				// a non-monotonic update for the same name+keys is
				// dropped rather than propagated: a slower producer
				// re-delivering a stale observation must not disturb an
				// already-advanced buffer entry.
				return
			}
			entry.fluents[i] = updated
			b.entries.Set(key, entry)
			return
		}
	}
	entry.fluents = append(entry.fluents, f)
	b.entries.Set(key, entry)
}

// Get returns the fluents buffered under keys, if any.
func (b *Buffer) Get(keys fluent.Keys) ([]fluent.Fluent, bool) {
	entry, ok := b.entries.Get(keys.String())
	if !ok {
		return nil, false
	}
	return entry.fluents, true
}

// KeySets returns every key set currently present in the buffer, in
// insertion order.
func (b *Buffer) KeySets() []fluent.Keys {
	out := make([]fluent.Keys, 0, b.entries.Len())
	for pair := b.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.keys)
	}
	return out
}

// Prune discards every buffered fluent older than horizon relative to t,
// i.e. with Timestamp() before t.Add(-horizon); a key set left with no
// fluents is removed entirely. horizon <= 0 means unbounded: Prune is a
// no-op. This is the buffer-side half of a handler's join window: called
// before alignment, it guarantees no dependency set handed to Evaluate
// can pair fluents more than horizon apart.
func (b *Buffer) Prune(t time.Time, horizon time.Duration) {
	if horizon <= 0 {
		return
	}
	cutoff := t.Add(-horizon)

	for _, keys := range b.KeySets() {
		key := keys.String()
		entry, ok := b.entries.Get(key)
		if !ok {
			continue
		}

		kept := entry.fluents[:0]
		for _, f := range entry.fluents {
			if !f.Timestamp().Before(cutoff) {
				kept = append(kept, f)
			}
		}

		if len(kept) == 0 {
			b.entries.Delete(key)
			continue
		}
		entry.fluents = kept
		b.entries.Set(key, entry)
	}
}

// Consume removes the buffer entry at keys entirely. Concurrent-mode
// handlers consume a key set's entries once they have been used to
// satisfy an evaluation, so a later, unrelated arrival under the same
// keys starts a fresh dependency set rather than immediately re-matching
// stale fluents.
func (b *Buffer) Consume(keys fluent.Keys) {
	b.entries.Delete(keys.String())
}

// Len reports the number of distinct key sets currently buffered.
func (b *Buffer) Len() int {
	return b.entries.Len()
}
