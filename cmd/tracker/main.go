package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"community-token-tracker/internal/config"
	"community-token-tracker/internal/feed"
	"community-token-tracker/internal/ingestion"
	"community-token-tracker/internal/logging"
	"community-token-tracker/internal/observability"
	"community-token-tracker/internal/resolver"
	"community-token-tracker/internal/storage"
	chstore "community-token-tracker/internal/storage/clickhouse"
	"community-token-tracker/internal/storage/memory"
	pgstore "community-token-tracker/internal/storage/postgres"
	"community-token-tracker/internal/xapi"
)

func main() {
	// Parse flags
	configFile := flag.String("config", "", "Path to YAML config file")
	envPath := flag.String("env-path", ".", "Directory holding .env files")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for pool snapshots (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config, \"-\" disables)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	cfg, err := config.Load(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Database.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Database.ClickhouseDSN = *clickhouseDSN
	}
	switch *metricsAddr {
	case "":
	case "-":
		cfg.MetricsAddr = ""
	default:
		cfg.MetricsAddr = *metricsAddr
	}

	logger, err := logging.New(logging.Config{Debug: cfg.Debug || *debug, Name: "tracker"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(observability.DefaultNamespace, reg)

	// Start metrics server if enabled
	if cfg.MetricsAddr != "" {
		go serveMetrics(logger, cfg.MetricsAddr, reg)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, cfg, *useMemory, metrics)

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("tracker stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func serveMetrics(logger *zap.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(reg))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	logger.Info("starting metrics server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server error", zap.Error(err))
	}
}

// run wires the stores, resolver and feed and blocks until the feed ends.
func run(ctx context.Context, logger *zap.Logger, cfg *config.Config, useMemory bool, metrics *observability.Metrics) error {
	// Require a postgres DSN unless --use-memory is explicitly set
	if !useMemory && cfg.Database.PostgresDSN == "" {
		return fmt.Errorf("postgres dsn is required (use --use-memory for in-memory storage)")
	}

	var tokens storage.TokenStore = memory.NewTokenStore()
	var snapshots storage.SnapshotStore

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := pool.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		tokens = pgstore.NewTokenStore(pool)
	}

	if cfg.Database.ClickhouseDSN != "" {
		conn, err := chstore.OpenMigrated(ctx, cfg.Database.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()
		snapshots = chstore.NewSnapshotStore(conn)
		logger.Info("pool snapshots enabled", zap.String("database", conn.Database()))
	} else if useMemory {
		snapshots = memory.NewSnapshotStore()
	}

	var api resolver.AdminLookup
	if cfg.XAPI.HasXCredentials() {
		api = xapi.NewClient(xapi.Credentials{
			BearerToken: cfg.XAPI.BearerToken,
			CSRFToken:   cfg.XAPI.CSRFToken,
			Cookie:      cfg.XAPI.Cookie,
		},
			xapi.WithBaseURL(cfg.XAPI.BaseURL),
			xapi.WithEndpoint(cfg.XAPI.Endpoint),
			xapi.WithTimeout(cfg.XAPI.Timeout),
		)
	} else {
		logger.Warn("X API credentials missing, admins resolve from the store only")
	}

	res, err := resolver.New(tokens, api, resolver.Options{
		MemoSize: cfg.Resolver.MemoSize,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("create resolver: %w", err)
	}

	processor, err := ingestion.NewProcessor(ingestion.ProcessorOptions{
		Tokens:    tokens,
		Snapshots: snapshots,
		Resolver:  res,
		StartTime: time.Now().Unix(),
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create processor: %w", err)
	}

	feedCfg := feed.DefaultClientConfig()
	feedCfg.PingInterval = cfg.Feed.PingInterval
	feedCfg.ReadTimeout = cfg.Feed.ReadTimeout
	feedCfg.Logger = logger

	client, err := feed.NewClient(ctx, cfg.Feed.URL, &feedCfg)
	if err != nil {
		return fmt.Errorf("connect to feed: %w", err)
	}
	defer client.Close()

	if err := client.Subscribe(cfg.Feed.Chain); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	logger.Info("subscribed to flash pool feed",
		zap.String("url", cfg.Feed.URL),
		zap.String("chain", cfg.Feed.Chain),
	)

	runner, err := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:    client,
		Processor: processor,
		Workers:   cfg.Worker.PoolSize,
		QueueSize: cfg.Worker.QueueSize,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}

	return runner.Run(ctx)
}
