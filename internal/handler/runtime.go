package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cdbrkfxrpt/magritte/internal/evalctx"
	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

// ErrNotInitialised is returned by Run when Initialize has not been called
// with an input and output channel.
var ErrNotInitialised = errors.New("handler: not initialised, call Initialize before Run")

// Handler is a running node: it subscribes to its Definition's
// dependencies, buffers and aligns them, evaluates its function once a
// dependency set is ready, and publishes the resulting fluent.
type Handler struct {
	def     Definition
	ctx     *evalctx.Context
	buffer  *Buffer
	history *History

	in  <-chan fluent.Fluent
	out chan<- fluent.Fluent
}

// New constructs a Handler from def and the evaluation context it should
// use for its database query, if any.
func New(def Definition, ec *evalctx.Context) *Handler {
	return &Handler{
		def:     def,
		ctx:     ec,
		buffer:  NewBuffer(),
		history: NewHistory(def.PruneAfter),
	}
}

// Publishes returns the name of the fluent this handler produces.
func (h *Handler) Publishes() string { return h.def.FluentName }

// SubscribesTo returns the dependency names this handler consumes.
func (h *Handler) SubscribesTo() []string { return h.def.Dependencies }

// Initialize wires the handler's input and output channels. It must be
// called once, before Run.
func (h *Handler) Initialize(in <-chan fluent.Fluent, out chan<- fluent.Fluent) {
	h.in = in
	h.out = out
}

// Run drives the handler's Ingest -> Prune -> Align -> Evaluate -> Publish
// loop until in is closed or ctx is cancelled. It is the Go translation of
// the original implementation's FluentHandler::run.
func (h *Handler) Run(ctx context.Context) error {
	if h.in == nil || h.out == nil {
		return fmt.Errorf("%w: %s", ErrNotInitialised, h.def.FluentName)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-h.in:
			if !ok {
				return nil
			}
			if err := h.handle(ctx, in); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) handle(ctx context.Context, in fluent.Fluent) error {
	// Static mode's evaluator only ever runs once per key set: once history
	// holds an entry for in.Keys(), later arrivals advance its timestamp
	// and publish without re-querying the external store.
	if h.def.KeyDependency.Kind == KeyDependencyStatic {
		if existing, ok := h.history.Get(in.Keys()); ok {
			return h.publish(ctx, in.Keys(), in.Timestamp(), existing.ValueOf())
		}
	}

	// Ingest: fold the arriving fluent into the dependency buffer.
	h.buffer.Ingest(in)

	// Prune: drop buffer entries that have fallen outside this handler's
	// join window (KeyDependency.Timeout) before attempting alignment.
	h.buffer.Prune(in.Timestamp(), h.def.KeyDependency.Timeout)

	// Align: compute every dependency set now ready for evaluation given
	// this handler's key-dependency mode.
	sets := dependencySets(h.buffer, in.Keys(), h.def.Dependencies, h.def.KeyDependency)

	for _, set := range sets {
		// Evaluate.
		value, ok := h.def.EvalFunc(ctx, set.fluents, h.ctx)
		if !ok {
			continue
		}

		// Concurrent mode's matched entries are single-use: once they
		// have produced an evaluation they are removed, so a later
		// arrival under the same keys starts a fresh alignment instead
		// of immediately re-triggering on stale buffered fluents.
		if h.def.KeyDependency.Kind == KeyDependencyConcurrent {
			h.buffer.Consume(set.keys)
		}

		// Publish: advance this handler's own history and emit the
		// result.
		if err := h.publish(ctx, set.keys, in.Timestamp(), value); err != nil {
			return err
		}
	}

	return nil
}

// publish advances this handler's history for keys/timestamp/value and
// emits the resulting fluent. A non-monotonic advance (two dependency
// sets for the same keys resolving out of order, or a Static-mode replay
// racing a concurrent evaluation) is skipped rather than treated as an
// error.
func (h *Handler) publish(ctx context.Context, keys fluent.Keys, timestamp time.Time, value fluent.Value) error {
	out, err := h.history.Advance(h.def.FluentName, keys, timestamp, value)
	if err != nil {
		return nil
	}

	select {
	case h.out <- out:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
