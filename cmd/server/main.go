package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/aigoflow/scoring-service/internal/catalog"
	"github.com/aigoflow/scoring-service/internal/config"
	"github.com/aigoflow/scoring-service/internal/emitter"
	"github.com/aigoflow/scoring-service/internal/logging"
	"github.com/aigoflow/scoring-service/internal/metrics"
	"github.com/aigoflow/scoring-service/internal/repository"
	"github.com/aigoflow/scoring-service/internal/services"
	"github.com/aigoflow/scoring-service/internal/store"
	"github.com/aigoflow/scoring-service/internal/wrapper"
	"github.com/aigoflow/scoring-service/pkg/server"
)

func main() {
	var envFile = flag.String("env", "", "Optional .env file to load")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize database
	if cfg.DBDriver == store.DriverSQLite {
		_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	}
	db, err := store.Open(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err, "driver", cfg.DBDriver)
		os.Exit(1)
	}
	defer db.Close()

	db.Event("info", "startup", "Server starting", map[string]interface{}{
		"http_addr":  cfg.HTTPAddr,
		"db_driver":  cfg.DBDriver,
		"emit_sinks": cfg.EmitSinks,
	})

	repo := repository.NewSQLRepository(db)

	conn, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		db.Event("error", "nats.failed", "NATS connection failed", map[string]interface{}{
			"nats_url": cfg.NatsURL,
			"error":    err.Error(),
		})
		slog.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Assemble emission sinks
	var (
		sinks    emitter.Multi
		registry *metrics.Registry
	)
	if cfg.HasSink(config.SinkDB) {
		sinks = append(sinks, emitter.NewRepositoryEmitter(repo))
	}
	if cfg.HasSink(config.SinkNATS) {
		sinks = append(sinks, emitter.NewNATSEmitter(conn, cfg.EmitSubjectPrefix))
	}
	if cfg.HasSink(config.SinkMetrics) {
		registry = metrics.NewRegistry()
		sinks = append(sinks, registry)
	}

	instrument := wrapper.NewInstrument(emitter.NewPipeline(sinks), logging.NewGate(logger))

	cat := catalog.New()
	catalog.RegisterBuiltins(cat, instrument)

	rules := config.NewRuleStore(nil)
	if cfg.RulesFile != "" {
		loaded, err := config.LoadRules(cfg.RulesFile)
		if err != nil {
			slog.Error("Failed to load rules file", "path", cfg.RulesFile, "error", err)
			os.Exit(1)
		}
		rules.Replace(loaded)
		slog.Info("Default rules loaded", "path", cfg.RulesFile, "models", rules.Models())
	}

	scoringService := services.NewScoringService(cat, rules, repo)
	healthService := services.NewHealthService(conn, cfg, scoringService)

	natsService, err := services.NewNATSService(cfg, conn, scoringService, healthService)
	if err != nil {
		slog.Error("Failed to create NATS service", "error", err)
		os.Exit(1)
	}

	httpServer := server.NewServer(cfg.HTTPAddr, scoringService, registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db.Event("info", "server.ready", "Server ready to accept requests", map[string]interface{}{
		"http_addr": cfg.HTTPAddr,
		"nats_url":  cfg.NatsURL,
		"models":    cat.Names(),
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.Start(ctx); err != nil {
			db.Event("error", "http.failed", "HTTP server failed", map[string]interface{}{"error": err.Error()})
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := natsService.Start(ctx); err != nil {
			db.Event("error", "nats.failed", "NATS service failed", map[string]interface{}{"error": err.Error()})
			return err
		}
		return nil
	})
	g.Go(func() error {
		return healthService.Start(ctx)
	})
	if cfg.RulesFile != "" {
		g.Go(func() error {
			return config.WatchRules(ctx, cfg.RulesFile, rules)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutting down server")
}
