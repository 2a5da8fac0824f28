// Package source polls an external PostgreSQL table for new rows and
// turns each named column into a fluent published onto the broker.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

// QueryParams describes the table this Source polls and how to map its
// columns onto fluents.
type QueryParams struct {
	// KeyName is the column holding the entity key (e.g. a vessel MMSI).
	KeyName string
	// TimestampName is the column holding the observation timestamp, in
	// Unix seconds.
	TimestampName string
	// FluentNames lists the columns to publish as fluents, one per name.
	FluentNames []string
	// FromTable is the source table, schema-qualified if needed.
	FromTable string
	// OrderBy is the column rows are ordered by when polling.
	OrderBy string
	// RowsToFetch bounds how many rows a single poll retrieves.
	RowsToFetch int
}

// RunParams controls the Source's polling cadence.
type RunParams struct {
	// MillisPerCycle is the delay between successive polls.
	MillisPerCycle int
	// DatapointsToRun caps the number of rows the Source will ever emit;
	// zero means unbounded.
	DatapointsToRun int
}

// Source polls FromTable on an interval, emitting one fluent per
// FluentNames column per row whose timestamp has not yet been seen.
type Source struct {
	pool    *pgxpool.Pool
	run     RunParams
	query   QueryParams
	emitted int
}

// New constructs a Source reading from pool.
func New(pool *pgxpool.Pool, run RunParams, query QueryParams) *Source {
	return &Source{pool: pool, run: run, query: query}
}

// PublishedFluents returns the fluent names this Source produces.
func (s *Source) PublishedFluents() []string {
	return s.query.FluentNames
}

// statement builds the parameterized poll query for the configured
// table and columns.
func (s *Source) statement() string {
	cols := fmt.Sprintf("%s, %s", s.query.KeyName, s.query.TimestampName)
	for _, name := range s.query.FluentNames {
		cols += ", " + name
	}
	return fmt.Sprintf(
		"select %s from %s where %s > $1 order by %s limit %d",
		cols, s.query.FromTable, s.query.TimestampName, s.query.OrderBy, s.query.RowsToFetch,
	)
}

// Run polls the database on the configured cadence, sending one fluent
// per row per configured column to out, until ctx is cancelled or
// DatapointsToRun is reached.
func (s *Source) Run(ctx context.Context, out chan<- fluent.Fluent) error {
	stmt := s.statement()
	interval := time.Duration(s.run.MillisPerCycle) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastTimestamp int64

	for {
		if s.run.DatapointsToRun > 0 && s.emitted >= s.run.DatapointsToRun {
			return nil
		}

		if err := s.poll(ctx, stmt, lastTimestamp, out, &lastTimestamp); err != nil {
			return fmt.Errorf("source: poll failed: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Source) poll(ctx context.Context, stmt string, since int64, out chan<- fluent.Fluent, lastTimestamp *int64) error {
	rows, err := s.pool.Query(ctx, stmt, since)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if s.run.DatapointsToRun > 0 && s.emitted >= s.run.DatapointsToRun {
			return nil
		}
		var key int64
		var timestamp int64
		values := make([]float64, len(s.query.FluentNames))

		dest := make([]any, 0, 2+len(values))
		dest = append(dest, &key, &timestamp)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}

		ts := time.Unix(timestamp, 0).UTC()
		for i, name := range s.query.FluentNames {
			f := fluent.New(name, fluent.Keys{fluent.Key(key)}, ts, fluent.NewFloatPt(values[i]))
			select {
			case out <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		s.emitted++
		if timestamp > *lastTimestamp {
			*lastTimestamp = timestamp
		}
	}
	return rows.Err()
}
