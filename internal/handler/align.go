package handler

import (
	"sort"

	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

// haveOverlap reports whether lhs and rhs share at least one key.
func haveOverlap(lhs, rhs fluent.Keys) bool {
	return lhs.Overlap(rhs)
}

// mergeKeys merges two key lists into their sorted, deduplicated union.
func mergeKeys(lhs, rhs fluent.Keys) fluent.Keys {
	return lhs.Union(rhs)
}

// mergeIfOverlap merges lhs and rhs if they share a key, otherwise reports
// ok=false.
func mergeIfOverlap(lhs, rhs fluent.Keys) (fluent.Keys, bool) {
	if !haveOverlap(lhs, rhs) {
		return nil, false
	}
	return mergeKeys(lhs, rhs), true
}

// keyMatches finds, among keySets, the longest key sets that overlap with
// keys, merges each with keys, and returns the distinct merges of maximum
// length. A handler's dependency buffer is keyed by exactly these sets.
func keyMatches(keySets []fluent.Keys, keys fluent.Keys) []fluent.Keys {
	seen := make(map[string]fluent.Keys)
	maxLen := 0
	for _, ks := range keySets {
		merged, ok := mergeIfOverlap(ks, keys)
		if !ok {
			continue
		}
		if len(merged) > maxLen {
			maxLen = len(merged)
		}
		seen[merged.String()] = merged
	}

	out := make([]fluent.Keys, 0, len(seen))
	for _, m := range seen {
		if len(m) == maxLen {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// sameTimestamps reports whether every fluent in fluents shares the same
// timestamp.
func sameTimestamps(fluents []fluent.Fluent) bool {
	for i := 1; i < len(fluents); i++ {
		if !fluents[i].Timestamp().Equal(fluents[i-1].Timestamp()) {
			return false
		}
	}
	return true
}

// fluentNames returns the distinct set of names present in fluents.
func fluentNames(fluents []fluent.Fluent) []string {
	seen := make(map[string]struct{}, len(fluents))
	var out []string
	for _, f := range fluents {
		if _, ok := seen[f.Name()]; ok {
			continue
		}
		seen[f.Name()] = struct{}{}
		out = append(out, f.Name())
	}
	return out
}

// fluentKeys returns the sorted, deduplicated union of keys across fluents.
func fluentKeys(fluents []fluent.Fluent) fluent.Keys {
	var out fluent.Keys
	for _, f := range fluents {
		out = out.Union(f.Keys())
	}
	return out
}

// namesEqual reports whether lhs and rhs contain the same names,
// irrespective of order.
func namesEqual(lhs, rhs []string) bool {
	if len(lhs) != len(rhs) {
		return false
	}
	rset := make(map[string]struct{}, len(rhs))
	for _, n := range rhs {
		rset[n] = struct{}{}
	}
	for _, n := range lhs {
		if _, ok := rset[n]; !ok {
			return false
		}
	}
	return true
}

// sortByGivenOrder orders fluents according to the position of their name
// in order. Names not present in order sort last, stably.
func sortByGivenOrder(fluents []fluent.Fluent, order []string) {
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	sort.SliceStable(fluents, func(i, j int) bool {
		pi, oki := pos[fluents[i].Name()]
		pj, okj := pos[fluents[j].Name()]
		if !oki {
			pi = len(order)
		}
		if !okj {
			pj = len(order)
		}
		return pi < pj
	})
}

// dependencySet pairs a merged key set with the fluents aligned under it.
type dependencySet struct {
	keys    fluent.Keys
	fluents []fluent.Fluent
}

// dependencySets computes the dependency sets ready for evaluation given
// the current state of buffer (keyed by key-set string), the keys just
// updated, the handler's declared dependency names and its KeyDependency
// mode.
//
// Concurrent mode requires an exact match of dependency names at a single
// timestamp across the merged key set, and is evaluated once per matching
// key set (callers remove the consumed buffer entries; see buffer.go).
// NonConcurrent mode pairs the buffer entry at keys against every other
// entry still present in the buffer, producing the union of both key
// sets and both fluent collections; buffer entries are retained. Entries
// older than the mode's Timeout are expected to already be gone by the
// time this runs (see Buffer.Prune), so no further age check happens
// here.
// Static mode takes the buffer entry at exactly keys (the fluent just
// ingested plus any other dependency fluents buffered under the same keys)
// as a single dependency set, without checking dependency names or
// timestamps; it relies on the evaluation context's database query rather
// than on aligned stream dependencies.
func dependencySets(buffer *Buffer, keys fluent.Keys, dependencies []string, mode KeyDependencyMode) []dependencySet {
	switch mode.Kind {
	case KeyDependencyStatic:
		entry, ok := buffer.Get(keys)
		if !ok {
			return nil
		}
		return []dependencySet{{keys: keys, fluents: append([]fluent.Fluent{}, entry...)}}

	case KeyDependencyConcurrent:
		var sets []dependencySet
		for _, match := range keyMatches(buffer.KeySets(), keys) {
			var keyDeps []fluent.Fluent
			for _, ks := range buffer.KeySets() {
				fluents, _ := buffer.Get(ks)
				if haveOverlap(ks, match) && sameTimestamps(fluents) {
					keyDeps = append(keyDeps, fluents...)
				}
			}
			if namesEqual(fluentNames(keyDeps), dependencies) {
				sortByGivenOrder(keyDeps, dependencies)
				sets = append(sets, dependencySet{keys: fluentKeys(keyDeps), fluents: keyDeps})
			}
		}
		return sets

	case KeyDependencyNonConcurrent:
		base, ok := buffer.Get(keys)
		if !ok {
			return nil
		}
		var sets []dependencySet
		for _, rhsKeys := range buffer.KeySets() {
			if rhsKeys.Equal(keys) {
				continue
			}
			rhs, _ := buffer.Get(rhsKeys)
			sets = append(sets, dependencySet{
				keys:    mergeKeys(keys, rhsKeys),
				fluents: append(append([]fluent.Fluent{}, base...), rhs...),
			})
		}
		return sets

	default:
		return nil
	}
}
