package broker

import "github.com/cdbrkfxrpt/magritte/internal/fluent"

// topic is a hand-rolled broadcast channel: every subscribe call gets its
// own bounded output channel, and publish fans a value out to all of them.
// The Go standard library has no broadcast-channel primitive equivalent to
// tokio::sync::broadcast, and no dependency in the example pack provides
// one either, so this is built directly on a subscriber list plus
// non-blocking sends. topic has no lock of its own: subscribe runs while
// the owning Broker holds its mutex, and publish runs without it.
//
// A slow subscriber does not block the topic or other subscribers: a send
// that would block instead drops the value and increments lag, mirroring
// tokio::sync::broadcast's lagged-receiver semantics (the original
// implementation surfaces this as a Lagged stream error; here it is a
// counter a caller can inspect via Lag).
type topic struct {
	capacity    int
	subscribers []*subscriber
}

type subscriber struct {
	ch  chan fluent.Fluent
	lag int
}

func newTopic(capacity int) *topic {
	return &topic{capacity: capacity}
}

// subscribe registers a new receiver and returns its channel.
func (t *topic) subscribe() *subscriber {
	sub := &subscriber{ch: make(chan fluent.Fluent, t.capacity)}
	t.subscribers = append(t.subscribers, sub)
	return sub
}

// publish fans f out to every current subscriber, dropping it for any
// subscriber whose channel is full rather than blocking.
func (t *topic) publish(f fluent.Fluent) {
	for _, sub := range t.subscribers {
		select {
		case sub.ch <- f:
		default:
			sub.lag++
		}
	}
}
