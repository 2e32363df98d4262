// Package main is the entry point for the whale copy-trading dashboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/whalewatch/dashboard/internal/config"
	"github.com/whalewatch/dashboard/internal/dispatch"
	"github.com/whalewatch/dashboard/internal/engine"
	"github.com/whalewatch/dashboard/internal/ingest"
	"github.com/whalewatch/dashboard/internal/metrics"
	"github.com/whalewatch/dashboard/internal/signals"
	"github.com/whalewatch/dashboard/internal/ui"
	"github.com/whalewatch/dashboard/internal/viewmodel"
)

// shutdownTimeout bounds the wait for an in-flight cycle on exit.
const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file while it runs.
	output := "stdout"
	if cfg.EnableTUI {
		output = cfg.LogFile
	}
	logger, err := setupLogger(cfg.LogLevel, output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("dashboard starting", zap.String("version", "1.0.0"))
	logger.Info("config_loaded",
		zap.String("backend_url", cfg.MaskedBackendURL()),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.String("change_feed_url", cfg.MaskedChangeFeedURL()),
		zap.Int("min_whales", cfg.MinWhales),
		zap.Int("min_sources", cfg.MinSources),
		zap.Float64("reference_capital_usd", cfg.ReferenceCapitalUSD),
		zap.String("market_url_base", cfg.MarketURLBase),
		zap.Bool("enable_tui", cfg.EnableTUI),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	client := ingest.NewClient(logger.Named("client"), cfg.BackendURL, cfg.RequestTimeout)
	fetcher := ingest.NewFetcher(logger.Named("fetcher"), client)
	filter := signals.NewStore(signals.Thresholds{MinWhales: cfg.MinWhales, MinSources: cfg.MinSources})
	tracker := metrics.NewMetricsTracker()

	opts := viewmodel.Options{
		ReferenceCapital: decimal.NewFromFloat(cfg.ReferenceCapitalUSD),
		MarketURLBase:    cfg.MarketURLBase,
	}
	eng := engine.New(logger.Named("engine"), fetcher, filter, tracker, opts, cfg.PollInterval)

	var feed *ingest.ChangeFeed
	if cfg.ChangeFeedURL != "" {
		feed = ingest.NewChangeFeed(logger.Named("changefeed"), cfg.ChangeFeedURL, func(reason string) {
			logger.Debug("change_feed_refresh", zap.String("reason", reason))
			eng.Refresh(ctx)
		})
		feed.SetStatusHook(tracker.SetChangeFeedStatus)
	} else {
		tracker.SetChangeFeedStatus(ingest.FeedDisabled)
	}

	engineDone := make(chan struct{})
	startEngine := func() {
		go func() {
			defer close(engineDone)
			eng.Run(ctx)
		}()
		if feed != nil {
			feed.Start(ctx)
		}
	}

	if cfg.EnableTUI {
		app := ui.NewApp(logger.Named("ui"), eng, filter, cfg.MarketURLBase)
		d := dispatch.New(logger.Named("dispatch"), client, eng, app, app)
		d.SetRecorder(tracker)
		app.SetDispatcher(d)

		startEngine()

		go func() {
			if err := app.Run(); err != nil {
				logger.Error("tui_error", zap.Error(err))
			}
			cancel()
		}()

		select {
		case sig := <-sigChan:
			logger.Info("shutdown_signal_received", zap.String("signal", sig.String()))
			app.Stop()
		case <-ctx.Done():
			app.Stop()
		}
	} else {
		eng.Subscribe(func(model *viewmodel.RenderModel) {
			logSummary(logger, model)
		})
		startEngine()

		sig := <-sigChan
		logger.Info("shutdown_signal_received", zap.String("signal", sig.String()))
	}

	cancel()

	logger.Info("shutting_down", zap.String("status", "stopping engine"))
	if feed != nil {
		feed.Stop()
	}
	select {
	case <-engineDone:
	case <-time.After(shutdownTimeout):
		logger.Warn("engine_stop_timeout", zap.Duration("timeout", shutdownTimeout))
	}

	logger.Info("shutdown_complete")
}

// logSummary prints one line per published model in headless mode.
func logSummary(logger *zap.Logger, model *viewmodel.RenderModel) {
	logger.Info("snapshot",
		zap.Int("whales", model.Stats.TotalWhales),
		zap.Int("open_positions", model.Stats.OpenPositions),
		zap.String("balance", model.Stats.BalanceText()),
		zap.String("mode", model.Mode.Mode.String()),
		zap.Int("signals", len(model.Signals.Rows)),
		zap.Int("signals_total", model.Signals.Total),
	)
}

// setupLogger creates a console logger with the specified level.
// Format: 2025-01-04 14:32:01 INFO  message {"key": "value"}
func setupLogger(levelStr, output string) (*zap.Logger, error) {
	var level zapcore.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = zapcore.DebugLevel
	case "WARN", "WARNING":
		level = zapcore.WarnLevel
	case "ERROR":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil

	return cfg.Build()
}
