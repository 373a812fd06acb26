// Command breakoutd sets up the breakout evaluation engine: it loads
// configuration, opens persistence, wires signal sinks, builds the
// engine, starts the optional read-only dashboard and housekeeping, and
// waits until asked to shut down. It admits no plans and reads no ticks
// itself: nothing in this command calls AddPlan or EvaluateTick.
//
// Architecture:
//
//	main.go                     — entry point: loads config, wires dependencies, waits for SIGINT/SIGTERM
//	internal/engine             — orchestrator (C9): per-tick ingest → metrics → evaluate → apply → emit
//	internal/ingest             — tick validation and store commit (C2)
//	internal/store              — per-instrument rolling bar/volume/book store (C3)
//	internal/metrics            — ATR/NATR/RVOL/pinbar/order-book metrics (C4)
//	internal/planstate          — plan runtime state builders and the transition applier (C5, C7)
//	internal/evaluator          — the pure breakout rule evaluator (C6)
//	internal/signal             — signal formatting, dedup, sinks, emission (C8)
//	internal/persistence        — durable SQLite signal store and cross-session idempotency
//	internal/stats              — runtime counters exposed to the dashboard
//	internal/api                — read-only dashboard HTTP/WebSocket server
package main

import (
	"fmt"
	"log/slog"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"breakoutengine/internal/api"
	"breakoutengine/internal/config"
	"breakoutengine/internal/engine"
	"breakoutengine/internal/persistence"
	"breakoutengine/internal/signal"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("BRK_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	store, err := persistence.Open(cfg.Persistence.DSN)
	if err != nil {
		logger.Error("failed to open signal store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sinks := buildSinks(*cfg, logger)
	var deadLetter *signal.DeadLetterWriter
	if cfg.Sinks.DeadLetterPath != "" {
		deadLetter = signal.NewDeadLetterWriter(cfg.Sinks.DeadLetterPath)
	}
	emitter := signal.NewEmitter(store, sinks, deadLetter, 3, 500*time.Millisecond, logger)

	eng := engine.New(*cfg, emitter, logger, "1m", cfg.Dashboard.Enabled)

	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(cfg.Dashboard, eng, eng, *cfg, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	stopHousekeeping := make(chan struct{})
	if cfg.Housekeeping.Enabled {
		go runHousekeeping(store, cfg.Housekeeping.Interval, cfg.Housekeeping.RetentionDays, logger, stopHousekeeping)
	}

	logger.Info("breakout evaluation engine started",
		"atr_period", cfg.ATR.Period,
		"rvol_period", cfg.Volume.RVOLPeriod,
		"dashboard_enabled", cfg.Dashboard.Enabled,
		"housekeeping_enabled", cfg.Housekeeping.Enabled,
	)

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	close(stopHousekeeping)

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}
}

func buildSinks(cfg config.Config, logger *slog.Logger) []signal.Sink {
	var sinks []signal.Sink
	if cfg.Sinks.HTTP.Enabled {
		sinks = append(sinks, signal.NewHTTPSink(cfg.Sinks.HTTP.URL, cfg.Sinks.HTTP.Timeout, logger))
	}
	if cfg.Sinks.File.Enabled {
		sinks = append(sinks, signal.NewFileSink(cfg.Sinks.File.Path, cfg.Sinks.File.Format, cfg.Sinks.File.RotateBytes, logger))
	}
	if cfg.Sinks.Stdout.Enabled {
		sinks = append(sinks, signal.NewStdoutSink(os.Stdout, logger))
	}
	return sinks
}

func runHousekeeping(store *persistence.Store, interval time.Duration, retentionDays int, logger *slog.Logger, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := store.CleanupOlderThan(retentionDays)
			if err != nil {
				logger.Error("housekeeping cleanup failed", "error", err)
				continue
			}
			logger.Info("housekeeping cleanup complete", "rows_removed", n, "retention_days", retentionDays)
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
