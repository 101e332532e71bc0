package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pump-agent/internal/config"
	"pump-agent/internal/dispatch"
	"pump-agent/internal/eligibility"
	"pump-agent/internal/holders"
	"pump-agent/internal/observability"
	"pump-agent/internal/pumpfun"
	"pump-agent/internal/solana"
	"pump-agent/internal/storage"
	"pump-agent/internal/storage/memory"
	"pump-agent/internal/storage/migrations"
	pgstore "pump-agent/internal/storage/postgres"
	"pump-agent/internal/stream"
	"pump-agent/internal/trading"
	"pump-agent/internal/watch"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory verdict journal instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config, empty to use config)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[agent] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	// Start metrics server if enabled
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
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
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, cfg, logger)

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// run wires the agent together and consumes the stream until cancelled.
func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	// Verdict journal
	var verdicts storage.VerdictStore = memory.NewVerdictStore()
	if !cfg.Storage.UseMemory {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		verdicts = pgstore.NewVerdictStore(pool)
	}

	// Ledger RPC client
	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL, solana.WithTimeout(cfg.Solana.Timeout))

	// Holder resolver
	resolver := holders.NewResolver(rpc, &holders.Config{
		MaxAttempts:    cfg.Screening.ResolveAttempts,
		Delay:          cfg.Screening.ResolveDelay,
		RequestTimeout: cfg.Screening.RequestTimeout,
	}, logger)

	// Platform API client
	platform := pumpfun.NewClient(cfg.Platform.APIURL, pumpfun.WithTimeout(cfg.Platform.Timeout))

	// Trade executor
	executor := trading.NewExecutor(cfg.Trading.Endpoint, cfg.Trading.APIKey,
		trading.WithTimeout(cfg.Trading.Timeout),
		trading.WithLogger(logger),
	)

	// Peak watch registry
	registry := watch.NewRegistry(platform, executor, watch.Config{
		PollInterval: cfg.Watch.PollInterval,
	}, logger)
	defer registry.Close()

	// Screening dispatcher
	dispatcher, err := dispatch.NewDispatcher(dispatch.Options{
		Resolver:    resolver,
		Evaluator:   eligibility.NewEvaluator(),
		Metadata:    platform,
		Trader:      executor,
		Watcher:     registry,
		Verdicts:    verdicts,
		BuyQuantity: cfg.Trading.BuyQuantity,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	// Token creation stream
	streamCfg := stream.DefaultConfig()
	streamCfg.Buffer = cfg.Stream.Buffer
	client, err := stream.NewClient(ctx, cfg.Stream.Endpoint, &streamCfg, logger)
	if err != nil {
		return fmt.Errorf("connect to stream: %w", err)
	}
	defer client.Close()

	logger.Printf("Listening for token creations on %s", cfg.Stream.Endpoint)
	dispatcher.Run(ctx, client.Events())

	return ctx.Err()
}
