// Package sink writes selected fluents back out to PostgreSQL.
package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

const insertStatement = `
insert into magritte.fluent_output (name, keys, timestamp, value, last_change)
values ($1, $2, $3, $4, $5)
`

// Sink subscribes to a configured set of fluent names and writes every
// fluent it receives to PostgreSQL. The original implementation wrote
// only Boolean-valued fluents; OnlyBoolean generalizes that into an
// explicit, overridable setting rather than a hardcoded filter.
type Sink struct {
	pool         *pgxpool.Pool
	subscribesTo []string
	onlyBoolean  bool

	in <-chan fluent.Fluent
}

// Config configures a Sink.
type Config struct {
	SubscribesTo []string
	// OnlyBoolean restricts writes to Boolean-valued fluents, matching
	// the original implementation's hardcoded behavior. Defaults to
	// false: by default every subscribed fluent is persisted.
	OnlyBoolean bool
}

// New constructs a Sink writing through pool.
func New(pool *pgxpool.Pool, cfg Config) *Sink {
	return &Sink{pool: pool, subscribesTo: cfg.SubscribesTo, onlyBoolean: cfg.OnlyBoolean}
}

// Publishes reports the fluent names this Sink produces: none, it only
// consumes.
func (s *Sink) Publishes() []string { return nil }

// SubscribesTo reports the fluent names this Sink consumes.
func (s *Sink) SubscribesTo() []string { return s.subscribesTo }

// Initialize wires the Sink's input channel. The output channel is
// unused since a Sink never publishes.
func (s *Sink) Initialize(in <-chan fluent.Fluent, _ chan<- fluent.Fluent) {
	s.in = in
}

// Run writes every fluent received on the Sink's input channel to
// PostgreSQL, until the channel is closed or ctx is cancelled. A failed
// write ends Run with that error; writes have no timeout beyond ctx.
func (s *Sink) Run(ctx context.Context) error {
	if s.in == nil {
		return fmt.Errorf("sink: not initialised, call Initialize before Run")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-s.in:
			if !ok {
				return nil
			}
			if s.onlyBoolean && f.ValueOf().Kind() != fluent.KindBoolean {
				continue
			}
			if err := s.write(ctx, f); err != nil {
				return fmt.Errorf("sink: write failed: %w", err)
			}
		}
	}
}

func (s *Sink) write(ctx context.Context, f fluent.Fluent) error {
	keys := make([]int64, len(f.Keys()))
	for i, k := range f.Keys() {
		keys[i] = int64(k)
	}
	_, err := s.pool.Exec(ctx, insertStatement,
		f.Name(), keys, f.Timestamp().Unix(), fmt.Sprint(f.ValueOf().Boxed()), f.LastChange().Unix())
	return err
}
