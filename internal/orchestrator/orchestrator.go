// Package orchestrator wires a Source, a set of fluent Handlers and one
// or more Sinks together through a Broker and runs them concurrently,
// the way Flow.runWithStreaming runs a chain of handlers connected by
// pipes: every component gets its own goroutine, a buffered error
// channel collects the first failure, and a done channel signals that
// every goroutine has returned cleanly.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cdbrkfxrpt/magritte/internal/broker"
	"github.com/cdbrkfxrpt/magritte/internal/fluent"
	"github.com/cdbrkfxrpt/magritte/internal/handler"
)

// runner is anything the orchestrator can drive to completion: the
// broker, the source, each handler and each sink all look like this
// once wrapped.
type runner interface {
	Run(ctx context.Context) error
}

// Source is the subset of *source.Source the orchestrator depends on,
// factored out so tests can drive the wiring without a real database.
type Source interface {
	PublishedFluents() []string
	Run(ctx context.Context, out chan<- fluent.Fluent) error
}

// Sink is the subset of *sink.Sink the orchestrator depends on, factored
// out so tests can drive the wiring without a real database.
type Sink interface {
	Publishes() []string
	SubscribesTo() []string
	Initialize(in <-chan fluent.Fluent, out chan<- fluent.Fluent)
	Run(ctx context.Context) error
}

// Orchestrator owns the broker and every component registered against
// it, and drives them all to completion as one unit.
type Orchestrator struct {
	broker *broker.Broker
	runID  string

	srcNode  *sourceNode
	handlers []*handler.Handler
	sinks    []Sink
}

// New constructs an Orchestrator around a fresh Broker with the given
// per-subscriber channel capacity (0 uses broker.DefaultCapacity), and
// assigns it a fresh run ID that ties together every log line and span
// a single Run produces.
func New(brokerCapacity int) *Orchestrator {
	return &Orchestrator{
		broker: broker.New(brokerCapacity),
		runID:  uuid.NewString(),
	}
}

// RunID returns the identifier generated for this orchestrator instance,
// stable across its whole lifetime and suitable for correlating logs
// and traces emitted by one Run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// RegisterSource wires src into the broker.
func (o *Orchestrator) RegisterSource(src Source) error {
	node := &sourceNode{src: src}
	if err := o.broker.Register("source", node); err != nil {
		return err
	}
	o.srcNode = node
	return nil
}

// RegisterHandler wires h into the broker under its own fluent name.
func (o *Orchestrator) RegisterHandler(h *handler.Handler) error {
	node := &handlerNode{h: h}
	if err := o.broker.Register(h.Publishes(), node); err != nil {
		return err
	}
	o.handlers = append(o.handlers, h)
	return nil
}

// RegisterSink wires sk into the broker under label.
func (o *Orchestrator) RegisterSink(label string, sk Sink) error {
	if err := o.broker.Register(label, sk); err != nil {
		return err
	}
	o.sinks = append(o.sinks, sk)
	return nil
}

// Lag reports the broker's subscriber-lag counter for name, surfaced so
// callers can export it as a metric.
func (o *Orchestrator) Lag(name string) int {
	return o.broker.Lag(name)
}

// Run starts the broker's fan-in/fan-out plumbing and every registered
// component, and blocks until ctx is cancelled or one of them returns a
// non-nil error, in which case that error is returned after every
// goroutine has wound down. A component returning nil (e.g. the source
// exhausting DatapointsToRun) does not by itself stop the others; Run
// only returns once either an error occurs or every component has
// returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runners := make([]runner, 0, len(o.handlers)+len(o.sinks)+2)
	runners = append(runners, brokerRunner{o.broker})
	if o.srcNode != nil {
		runners = append(runners, o.srcNode)
	}
	for _, h := range o.handlers {
		runners = append(runners, h)
	}
	for _, sk := range o.sinks {
		runners = append(runners, sk)
	}

	errCh := make(chan error, len(runners)+1)

	var wg sync.WaitGroup
	for _, r := range runners {
		wg.Add(1)
		go func(r runner) {
			defer wg.Done()
			if err := r.Run(ctx); err != nil && err != context.Canceled {
				select {
				case errCh <- err:
				default:
				}
			}
		}(r)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-errCh:
		runErr = err
		cancel()
	case <-done:
	}

	<-done
	if runErr != nil {
		return fmt.Errorf("orchestrator: run %s: %w", o.runID, runErr)
	}
	return nil
}

// brokerRunner adapts Broker.Run (which has no error return, unlike
// every other component) to the runner interface.
type brokerRunner struct{ b *broker.Broker }

func (r brokerRunner) Run(ctx context.Context) error {
	r.b.Run(ctx)
	return nil
}

// sourceNode adapts Source, whose Run takes an explicit output channel
// rather than reading one stashed by Initialize, to broker.Node.
type sourceNode struct {
	src Source
	out chan<- fluent.Fluent
}

func (n *sourceNode) Publishes() []string    { return n.src.PublishedFluents() }
func (n *sourceNode) SubscribesTo() []string { return nil }
func (n *sourceNode) Initialize(_ <-chan fluent.Fluent, out chan<- fluent.Fluent) {
	n.out = out
}
func (n *sourceNode) Run(ctx context.Context) error {
	return n.src.Run(ctx, n.out)
}

// handlerNode adapts Handler, whose Publishes returns the single fluent
// name it produces, to broker.Node's slice-returning signature.
type handlerNode struct {
	h *handler.Handler
}

func (n *handlerNode) Publishes() []string    { return []string{n.h.Publishes()} }
func (n *handlerNode) SubscribesTo() []string { return n.h.SubscribesTo() }
func (n *handlerNode) Initialize(in <-chan fluent.Fluent, out chan<- fluent.Fluent) {
	n.h.Initialize(in, out)
}
