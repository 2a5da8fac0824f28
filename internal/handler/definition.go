package handler

import (
	"context"
	"time"

	"github.com/cdbrkfxrpt/magritte/internal/evalctx"
	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

// KeyDependencyKind selects how a handler aligns its dependency fluents
// before evaluation.
type KeyDependencyKind int

const (
	// KeyDependencyConcurrent requires every declared dependency to be
	// present, at the same timestamp, under an overlapping key set. Once
	// matched the contributing buffer entries are consumed.
	KeyDependencyConcurrent KeyDependencyKind = iota

	// KeyDependencyNonConcurrent pairs the buffer entry at the triggering
	// key set against every other entry in the buffer within Timeout of
	// each other, regardless of timestamp alignment. Buffer entries are
	// retained, not consumed.
	KeyDependencyNonConcurrent

	// KeyDependencyStatic evaluates the buffer entry under the ingested
	// fluent's keys as it stands, without checking dependency names or
	// timestamps; typically paired with a DatabaseQuery that supplies the
	// remaining context.
	KeyDependencyStatic
)

// KeyDependencyMode configures a handler's alignment policy. Timeout is
// only meaningful for KeyDependencyNonConcurrent: it is both the pairing
// window (buffer entries older than Timeout relative to the triggering
// fluent are not paired) and the horizon the Prune step passes to
// Buffer.Prune before alignment runs, so a stale entry is evicted from
// the buffer rather than merely skipped at the pairing step.
type KeyDependencyMode struct {
	Kind    KeyDependencyKind
	Timeout time.Duration
}

// Concurrent builds a KeyDependencyMode of kind KeyDependencyConcurrent.
func Concurrent() KeyDependencyMode {
	return KeyDependencyMode{Kind: KeyDependencyConcurrent}
}

// NonConcurrent builds a KeyDependencyMode of kind
// KeyDependencyNonConcurrent with the given pairing timeout.
func NonConcurrent(timeout time.Duration) KeyDependencyMode {
	return KeyDependencyMode{Kind: KeyDependencyNonConcurrent, Timeout: timeout}
}

// Static builds a KeyDependencyMode of kind KeyDependencyStatic.
func Static() KeyDependencyMode {
	return KeyDependencyMode{Kind: KeyDependencyStatic}
}

// EvalFunc computes a handler's output value from its aligned dependency
// fluents and the evaluation context. It returns ok=false to indicate "no
// output this round" (e.g. a threshold not crossed, or a required database
// lookup that came back empty) rather than publishing a fluent.
type EvalFunc func(ctx context.Context, deps []fluent.Fluent, ec *evalctx.Context) (fluent.Value, bool)

// Definition declares a handler: the fluent it publishes, the fluents it
// depends on, how it aligns them, the query (if any) backing its
// evaluation context, and how many key sets its history retains.
type Definition struct {
	// FluentName is the name this handler publishes.
	FluentName string

	// Dependencies are the fluent names this handler subscribes to. Order
	// matters: it is the order in which aligned dependencies are passed to
	// EvalFunc.
	Dependencies []string

	// KeyDependency selects the alignment policy.
	KeyDependency KeyDependencyMode

	// DatabaseQuery, if non-empty, is a parameterized scalar query made
	// available to EvalFunc through the evaluation context.
	DatabaseQuery string

	// EvalFunc computes this handler's output.
	EvalFunc EvalFunc

	// PruneAfter bounds how many key sets this handler's history retains
	// (one fluent each); beyond it the earliest-created entries are
	// discarded. Zero or negative means unbounded.
	PruneAfter int
}
