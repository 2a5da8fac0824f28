// Package broker implements the fan-out pub/sub layer that decouples
// fluent handlers, the source and the sinks from one another: every
// fluent name is its own topic, and a node subscribes to the topics of
// its dependency names while publishing to the topics of the names it
// produces.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

// DefaultCapacity is the per-subscriber channel capacity used when a
// Broker is constructed with New without an explicit capacity.
const DefaultCapacity = 256

// ErrAlreadyPublished is returned by Register when a fluent name is
// claimed by more than one publishing node (spec design note: the broker
// refuses to register two handlers publishing the same name).
var ErrAlreadyPublished = errors.New("broker: fluent name already claimed by another publisher")

// Node is anything the Broker can wire up: it publishes zero or more
// fluent names and subscribes to zero or more others.
type Node interface {
	Publishes() []string
	SubscribesTo() []string
	Initialize(in <-chan fluent.Fluent, out chan<- fluent.Fluent)
}

// Broker owns one topic per known fluent name and wires nodes together
// through them.
type Broker struct {
	mu        sync.Mutex
	capacity  int
	topics    map[string]*topic
	owners    map[string]string
	forwarder []func(ctx context.Context)
}

// New constructs a Broker whose topics buffer up to capacity fluents per
// subscriber before lagging. capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Broker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Broker{
		capacity: capacity,
		topics:   make(map[string]*topic),
		owners:   make(map[string]string),
	}
}

func (b *Broker) topicFor(name string) *topic {
	t, ok := b.topics[name]
	if !ok {
		t = newTopic(b.capacity)
		b.topics[name] = t
	}
	return t
}

// Register wires node into the broker: it creates topics for every name
// node publishes or subscribes to (if not already present), merges the
// subscribed topics into a single input channel, and arranges for
// whatever node sends on its output channel to be fanned out to the
// topic matching its fluent name.
//
// label identifies node in error messages (e.g. its fluent name) and as
// the owner of the names it publishes: a name already published under a
// different label is rejected with ErrAlreadyPublished, while registering
// it again under the same label is allowed.
func (b *Broker) Register(label string, node Node) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, name := range node.Publishes() {
		if owner, ok := b.owners[name]; ok && owner != label {
			return fmt.Errorf("%w: %q already published by %q, rejecting %q",
				ErrAlreadyPublished, name, owner, label)
		}
		b.owners[name] = label
		b.topicFor(name)
	}
	for _, name := range node.SubscribesTo() {
		b.topicFor(name)
	}

	in := make(chan fluent.Fluent, b.capacity)
	out := make(chan fluent.Fluent, b.capacity)
	node.Initialize(in, out)

	subs := make([]*subscriber, 0, len(node.SubscribesTo()))
	for _, name := range node.SubscribesTo() {
		subs = append(subs, b.topics[name].subscribe())
	}

	b.forwarder = append(b.forwarder, func(ctx context.Context) {
		runFanIn(ctx, subs, in)
	})
	b.forwarder = append(b.forwarder, func(ctx context.Context) {
		runFanOut(ctx, b, out)
	})

	return nil
}

// runFanIn merges every subscriber channel in subs into a single in
// channel, until ctx is cancelled.
func runFanIn(ctx context.Context, subs []*subscriber, in chan<- fluent.Fluent) {
	if len(subs) == 0 {
		<-ctx.Done()
		return
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *subscriber) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case f, ok := <-sub.ch:
					if !ok {
						return
					}
					select {
					case in <- f:
					case <-ctx.Done():
						return
					}
				}
			}
		}(sub)
	}
	wg.Wait()
}

// runFanOut publishes every fluent a node sends to the topic matching its
// name, until out is closed or ctx is cancelled.
func runFanOut(ctx context.Context, b *Broker, out <-chan fluent.Fluent) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-out:
			if !ok {
				return
			}
			b.mu.Lock()
			t, known := b.topics[f.Name()]
			b.mu.Unlock()
			if known {
				t.publish(f)
			}
		}
	}
}

// Run starts the fan-in/fan-out goroutines for every node registered so
// far, blocking until ctx is cancelled.
func (b *Broker) Run(ctx context.Context) {
	b.mu.Lock()
	forwarders := append([]func(ctx context.Context){}, b.forwarder...)
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, fn := range forwarders {
		wg.Add(1)
		go func(fn func(ctx context.Context)) {
			defer wg.Done()
			fn(ctx)
		}(fn)
	}
	wg.Wait()
}

// Lag reports the total number of fluents dropped across all subscribers
// of name due to a full subscriber channel.
func (b *Broker) Lag(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[name]
	if !ok {
		return 0
	}
	total := 0
	for _, sub := range t.subscribers {
		total += sub.lag
	}
	return total
}
