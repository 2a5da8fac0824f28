//go:build integration

package source

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

func setupContainer(ctx context.Context) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "magritte",
			"POSTGRES_PASSWORD": "magritte",
			"POSTGRES_DB":       "magritte",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, "", err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return nil, "", err
	}
	return container, fmt.Sprintf("postgres://magritte:magritte@%s:%s/magritte?sslmode=disable", host, port.Port()), nil
}

func TestSourcePollsAndEmitsOnePerColumn(t *testing.T) {
	ctx := context.Background()
	container, connStr, err := setupContainer(ctx)
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	defer container.Terminate(ctx)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `
		create table the_matrix (id int, ts bigint, lon double precision, lat double precision)
	`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		insert into the_matrix (id, ts, lon, lat) values (42, 1000, 10.0, 20.0)
	`); err != nil {
		t.Fatalf("failed to seed table: %v", err)
	}

	s := New(pool, RunParams{MillisPerCycle: 50, DatapointsToRun: 1}, QueryParams{
		KeyName:       "id",
		TimestampName: "ts",
		FluentNames:   []string{"lon", "lat"},
		FromTable:     "the_matrix",
		OrderBy:       "ts",
		RowsToFetch:   32,
	})

	out := make(chan fluent.Fluent, 4)
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Run(runCtx, out); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	close(out)
	var got []fluent.Fluent
	for f := range out {
		got = append(got, f)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fluents (lon, lat), got %d", len(got))
	}
}
