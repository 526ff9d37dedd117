package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alias1177/SmartMoney/internal/api/twelvedata"
	"github.com/Alias1177/SmartMoney/internal/config"
	"github.com/Alias1177/SmartMoney/internal/engine"
	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/Alias1177/SmartMoney/internal/trading/backtest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Twelve Data caps outputsize per request.
const maxOutputSize = 5000

func main() {
	defaults := backtest.DefaultConfig()
	var (
		symbol    = flag.String("symbol", "EUR/USD", "symbol to replay")
		days      = flag.Int("days", 60, "days of history to fetch")
		out       = flag.String("out", "performance.json", "where to write the session performance map")
		window    = flag.Int("window", defaults.Window, "bars per frame handed to each analysis")
		step      = flag.Int("step", defaults.Step, "1h bars between analyses")
		horizon   = flag.Int("horizon", defaults.Horizon, "1h bars until a trade is graded")
		minTrades = flag.Int("min-trades", defaults.MinTrades, "trades a session needs to enter the map")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.LogLevel)

	if cfg.TwelveAPIKey == "" {
		log.Fatal().Msg("TWELVE_API_KEY is not set")
	}

	btCfg := defaults
	btCfg.Window = *window
	btCfg.Step = *step
	btCfg.Horizon = *horizon
	btCfg.MinTrades = *minTrades
	btCfg.History = cfg.Candles.History
	btCfg.PipSize = cfg.Analysis.MarketMaker.PipSize

	eng, err := engine.New(cfg.Analysis, engine.WithLogger(log.Logger.Level(zerolog.WarnLevel)))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid analysis configuration")
	}
	bt, err := backtest.NewEngine(eng, btCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid backtest configuration")
	}

	client := twelvedata.NewClient(twelvedata.ClientOptions{
		APIKey:         cfg.TwelveAPIKey,
		RequestTimeout: cfg.RequestTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
		MaxRetries:     cfg.MaxRetries,
	})

	log.Info().Str("symbol", *symbol).Int("days", *days).Msg("Fetching historical data...")
	frames, err := fetchFrames(ctx, client, *symbol, *days)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch historical data")
	}

	log.Info().Msg("Running backtesting...")
	started := time.Now()
	results, err := bt.Run(ctx, *symbol, frames)
	if err != nil {
		log.Fatal().Err(err).Msg("Backtest failed")
	}
	log.Info().Dur("took", time.Since(started)).Msg("Backtest finished")

	fmt.Println(backtest.FormatResults(results))

	perf := backtest.PerformanceMap(results, btCfg.MinTrades)
	data, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Encoding performance map failed")
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatal().Err(err).Str("file", *out).Msg("Writing performance map failed")
	}
	log.Info().Str("file", *out).Int("sessions", len(perf)).Msg("Performance map written")
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// fetchFrames loads the replay frames. Only the 1h series is required.
func fetchFrames(ctx context.Context, client *twelvedata.Client, symbol string, days int) (map[model.Timeframe][]model.Candle, error) {
	frames := make(map[model.Timeframe][]model.Candle)
	for _, tf := range []model.Timeframe{model.H4, model.H1, model.M15, model.M5} {
		count := twelvedata.CandlesForDays(tf, days)
		if count > maxOutputSize {
			count = maxOutputSize
		}
		candles, err := client.GetCandles(ctx, symbol, tf, count)
		if err != nil {
			if tf != model.H1 && errors.Is(err, model.ErrInsufficientData) {
				log.Warn().Str("timeframe", string(tf)).Msg("No candles available")
				continue
			}
			return nil, fmt.Errorf("fetching %s: %w", tf, err)
		}
		frames[tf] = candles
		log.Info().Str("timeframe", string(tf)).Int("candles", len(candles)).Msg("Fetched")
	}
	return frames, nil
}
