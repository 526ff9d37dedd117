package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alias1177/SmartMoney/internal/analysis/killzone"
	"github.com/Alias1177/SmartMoney/internal/api/twelvedata"
	"github.com/Alias1177/SmartMoney/internal/cache"
	"github.com/Alias1177/SmartMoney/internal/config"
	"github.com/Alias1177/SmartMoney/internal/database"
	"github.com/Alias1177/SmartMoney/internal/engine"
	"github.com/Alias1177/SmartMoney/internal/metrics"
	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/Alias1177/SmartMoney/internal/notify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	setupSignalHandling(cancel)

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	log.Info().Msg("Starting Smart Money Analyzer")

	if cfg.TwelveAPIKey == "" {
		log.Fatal().Msg("TWELVE_API_KEY is not set")
	}

	// 3. Print configuration
	printConfig(cfg)

	// 4. Setup API client
	client := twelvedata.NewClient(twelvedata.ClientOptions{
		APIKey:         cfg.TwelveAPIKey,
		RequestTimeout: cfg.RequestTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
		MaxRetries:     cfg.MaxRetries,
	})

	// 5. Setup recorders
	recorders, promRecorder, closeAll := setupRecorders(ctx, cfg)
	defer closeAll()

	if promRecorder != nil {
		go serveMetrics(ctx, cfg.Metrics.Addr, promRecorder)
	}

	perf, err := loadPerformance(cfg.PerformanceFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PerformanceFile).Msg("Failed to load performance map")
	}

	eng, err := engine.New(cfg.Analysis,
		engine.WithRecorder(recorders),
		engine.WithHistory(engine.NewHistory(cfg.Analysis.HistorySize)),
		engine.WithLogger(log.Logger),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid analysis configuration")
	}

	// 6. Run analysis once or on an interval
	plan := engine.PlanFromConfig(cfg.Candles)
	runCycle(ctx, eng, client, cfg, plan, perf, promRecorder)
	if cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Analyzer stopped")
			return
		case <-ticker.C:
			runCycle(ctx, eng, client, cfg, plan, perf, promRecorder)
		}
	}
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
	}()
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	// Set log level from config
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config) {
	log.Info().
		Strs("Symbols", cfg.Symbols).
		Str("Output", cfg.Output).
		Dur("Interval", cfg.Interval).
		Int("H4", cfg.Candles.H4).
		Int("H1", cfg.Candles.H1).
		Int("M15", cfg.Candles.M15).
		Int("M5", cfg.Candles.M5).
		Int("History", cfg.Candles.History).
		Int("Workers", cfg.Analysis.Workers).
		Float64("OrderFlowMinConfidence", cfg.Analysis.OrderFlow.MinConfidence).
		Float64("ManipulationSensitivity", cfg.Analysis.MarketMaker.ManipulationSensitivity).
		Bool("Postgres", cfg.Storage.DatabaseURL != "").
		Bool("Redis", cfg.Storage.RedisAddr != "").
		Bool("Telegram", cfg.Telegram.Token != "").
		Str("MetricsAddr", cfg.Metrics.Addr).
		Msg("Configuration loaded")
}

// setupRecorders connects every configured sink. A sink that fails to connect is skipped.
func setupRecorders(ctx context.Context, cfg *config.Config) (engine.MultiRecorder, *metrics.Recorder, func()) {
	var recorders engine.MultiRecorder
	var closers []func() error

	if cfg.Storage.DatabaseURL != "" {
		db, err := database.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			log.Error().Err(err).Msg("PostgreSQL unavailable, results will not be stored")
		} else {
			recorders = append(recorders, db)
			closers = append(closers, db.Close)
		}
	}

	if cfg.Storage.RedisAddr != "" {
		rc, err := cache.NewRedisRecorder(ctx, cache.RedisConfig{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			History:  cfg.Storage.RedisHistory,
		})
		if err != nil {
			log.Error().Err(err).Msg("Redis unavailable, results will not be cached")
		} else {
			recorders = append(recorders, rc)
			closers = append(closers, rc.Close)
		}
	}

	if cfg.Telegram.Token != "" {
		bot, err := notify.NewTelegramBot(cfg.Telegram.Token)
		if err != nil {
			log.Error().Err(err).Msg("Telegram unavailable, signals will not be sent")
		} else {
			recorders = append(recorders, notify.NewTelegramNotifier(bot, cfg.Telegram.ChatID, cfg.Telegram.MinConfidence))
		}
	}

	var promRecorder *metrics.Recorder
	if cfg.Metrics.Addr != "" {
		promRecorder = metrics.New()
		recorders = append(recorders, promRecorder)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("Closing recorder failed")
			}
		}
	}
	return recorders, promRecorder, closeAll
}

// serveMetrics exposes /metrics until ctx is done
func serveMetrics(ctx context.Context, addr string, rec *metrics.Recorder) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}

// loadPerformance reads a session performance map written by cmd/backtest. An empty path
// means no map.
func loadPerformance(path string) (killzone.PerformanceMap, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var perf killzone.PerformanceMap
	if err := json.Unmarshal(data, &perf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	log.Info().Int("sessions", len(perf)).Msg("Loaded session performance")
	return perf, nil
}

// runCycle analyses every configured symbol once and prints the results
func runCycle(ctx context.Context, eng *engine.Engine, client *twelvedata.Client, cfg *config.Config,
	plan engine.FetchPlan, perf killzone.PerformanceMap, promRecorder *metrics.Recorder) {

	log.Info().Strs("symbols", cfg.Symbols).Msg("Running analysis...")
	started := time.Now()

	results, err := eng.AnalyzeSymbols(ctx, client, cfg.Symbols, plan, perf)
	if err != nil {
		log.Error().Err(err).Msg("Some symbols failed")
	}
	if promRecorder != nil {
		promRecorder.RecordLatency("analysis_cycle", time.Since(started).Seconds())
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		if cfg.Output == "json" {
			printJSON(res)
		} else {
			printAnalysis(res)
		}
	}
}

func printJSON(res *model.AnalysisResult) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Error().Err(err).Msg("Encoding result failed")
	}
}
