// Command magritte runs the concurrent stream-reasoning engine: a
// database-backed source feeds raw observations through the vessel
// handler graph, the broker fans results out, and a sink persists
// whatever the configuration subscribes it to.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/cdbrkfxrpt/magritte/examples/vessel"
	"github.com/cdbrkfxrpt/magritte/internal/config"
	"github.com/cdbrkfxrpt/magritte/internal/obslog"
	"github.com/cdbrkfxrpt/magritte/internal/obsmetrics"
	"github.com/cdbrkfxrpt/magritte/internal/obstrace"
	"github.com/cdbrkfxrpt/magritte/internal/orchestrator"
	"github.com/cdbrkfxrpt/magritte/internal/sink"
	"github.com/cdbrkfxrpt/magritte/internal/source"
)

func main() {
	args, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		os.Exit(1)
	}

	logger := obslog.New(cfg.Observability.LogLevel, true)
	logger.Info("starting magritte", obslog.F("config", args.ConfigPath))

	if err := run(cfg, logger); err != nil {
		logger.Error("magritte exited with error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger obslog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics := obsmetrics.New()

	var tracer *obstrace.Provider
	if cfg.Observability.TracingEnabled {
		tcfg := obstrace.DefaultConfig("magritte", cfg.Observability.OTLPEndpoint)
		tracer, err = obstrace.New(tcfg)
		if err != nil {
			logger.Error("failed to initialize tracing, continuing without it", err)
			tracer = nil
		} else {
			defer tracer.Shutdown(ctx)
		}
	}

	httpServer := startObservabilityServer(cfg.Observability.MetricsAddr, metrics, logger)
	defer httpServer.Shutdown(ctx)

	orch := orchestrator.New(0)
	logger = logger.With(obslog.F("run_id", orch.RunID()))
	logger.Info("assembled orchestrator")

	if tracer != nil {
		var span trace.Span
		ctx, span = tracer.StartRun(ctx, orch.RunID())
		defer span.End()
	}

	src := source.New(pool, source.RunParams{
		MillisPerCycle:  cfg.Source.RunParams.MillisPerCycle,
		DatapointsToRun: cfg.Source.RunParams.DatapointsToRun,
	}, source.QueryParams{
		KeyName:       cfg.Source.QueryParams.KeyName,
		TimestampName: cfg.Source.QueryParams.TimestampName,
		FluentNames:   cfg.Source.QueryParams.FluentNames,
		FromTable:     cfg.Source.QueryParams.FromTable,
		OrderBy:       cfg.Source.QueryParams.OrderBy,
		RowsToFetch:   cfg.Source.QueryParams.RowsToFetch,
	})
	if err := orch.RegisterSource(src); err != nil {
		return err
	}

	for _, h := range vessel.NewHandlers(pool) {
		if err := orch.RegisterHandler(h); err != nil {
			return err
		}
	}

	sk := sink.New(pool, sink.Config{
		SubscribesTo: cfg.Sink.SubscribesTo,
		OnlyBoolean:  cfg.Sink.OnlyBoolean,
	})
	if err := orch.RegisterSink("sink", sk); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	return orch.Run(ctx)
}

// startObservabilityServer serves Prometheus scrapes and a liveness probe
// on a background HTTP server, the way the teacher's observability
// middleware exposes /metrics.
func startObservabilityServer(addr string, metrics *obsmetrics.Metrics, logger obslog.Logger) *http.Server {
	if addr == "" {
		addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("observability server failed", err)
		}
	}()

	return server
}
