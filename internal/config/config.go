package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/SmartMoney/internal/analysis/killzone"
	"github.com/Alias1177/SmartMoney/internal/analysis/liquidity"
	"github.com/Alias1177/SmartMoney/internal/analysis/marketmaker"
	"github.com/Alias1177/SmartMoney/internal/analysis/orderflow"
	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	TwelveAPIKey    string        `yaml:"twelve_api_key"`
	Symbols         []string      `yaml:"symbols" default:"[\"EUR/USD\"]" validate:"min=1,dive,required"`
	LogLevel        string        `yaml:"log_level" default:"info" validate:"oneof=debug info warn error"`
	Output          string        `yaml:"output" default:"text" validate:"oneof=text json"`
	RequestTimeout  time.Duration `yaml:"request_timeout" default:"30s" validate:"gt=0"`
	RequestsPerSec  int           `yaml:"requests_per_sec" default:"5" validate:"min=1"`
	MaxRetries      uint64        `yaml:"max_retries" default:"3"`
	Interval        time.Duration `yaml:"interval" validate:"gte=0"` // 0 runs once
	PerformanceFile string        `yaml:"performance_file"`

	Candles  CandleCounts `yaml:"candles"`
	Storage  Storage      `yaml:"storage"`
	Telegram Telegram     `yaml:"telegram"`
	Metrics  Metrics      `yaml:"metrics"`
	Analysis Analysis     `yaml:"analysis"`
}

// CandleCounts is how many bars to request per timeframe.
type CandleCounts struct {
	H4      int `yaml:"h4" default:"120" validate:"min=1"`
	H1      int `yaml:"h1" default:"200" validate:"min=1"`
	M15     int `yaml:"m15" default:"200" validate:"min=1"`
	M5      int `yaml:"m5" default:"200" validate:"min=1"`
	History int `yaml:"history" default:"720" validate:"min=1"` // 1h bars fed to the killzone optimizer
}

// Storage holds optional persistence targets. Empty values disable them.
type Storage struct {
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" validate:"gte=0"`
	RedisHistory  int64  `yaml:"redis_history" default:"100" validate:"min=1"`
}

// Telegram holds optional signal notification settings.
type Telegram struct {
	Token         string  `yaml:"token"`
	ChatID        int64   `yaml:"chat_id"`
	MinConfidence float64 `yaml:"min_confidence" default:"0.75" validate:"gte=0,lte=1"`
}

// Metrics holds the optional Prometheus endpoint.
type Metrics struct {
	Addr string `yaml:"addr"` // e.g. ":9090", empty disables
}

// Analysis is the engine configuration: one section per detector plus orchestration.
type Analysis struct {
	Liquidity   liquidity.Config   `yaml:"liquidity"`
	OrderFlow   orderflow.Config   `yaml:"order_flow"`
	MarketMaker marketmaker.Config `yaml:"market_maker"`
	Killzone    killzone.Config    `yaml:"killzone"`

	PoolSignalThreshold     float64 `yaml:"pool_signal_threshold" default:"0.80" validate:"gte=0,lte=1"`
	KillzoneSignalThreshold float64 `yaml:"killzone_signal_threshold" default:"0.75" validate:"gte=0,lte=1"`
	Workers                 int     `yaml:"workers" default:"4" validate:"min=1"`
	HistorySize             int     `yaml:"history_size" default:"100" validate:"min=1"`
}

// DefaultAnalysis returns the analysis defaults.
func DefaultAnalysis() Analysis {
	var a Analysis
	_ = defaults.Set(&a)
	return a
}

// Load builds the configuration from tag defaults, an optional YAML file named by
// CONFIG_FILE, a .env file and environment variables, in that order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.TwelveAPIKey = getEnvWithDefault("TWELVE_API_KEY", cfg.TwelveAPIKey)
	if symbols := os.Getenv("SYMBOLS"); symbols != "" {
		cfg.Symbols = splitList(symbols)
	} else if symbol := os.Getenv("SYMBOL"); symbol != "" {
		cfg.Symbols = []string{symbol}
	}
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.Output = getEnvWithDefault("OUTPUT", cfg.Output)
	if secs := getEnvIntWithDefault("REQUEST_TIMEOUT", 0); secs > 0 {
		cfg.RequestTimeout = time.Duration(secs) * time.Second
	}
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", cfg.RequestsPerSec)
	cfg.Interval = getEnvDurationWithDefault("INTERVAL", cfg.Interval)
	cfg.PerformanceFile = getEnvWithDefault("PERFORMANCE_FILE", cfg.PerformanceFile)

	cfg.Storage.DatabaseURL = getEnvWithDefault("DATABASE_URL", cfg.Storage.DatabaseURL)
	cfg.Storage.RedisAddr = getEnvWithDefault("REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.RedisPassword = getEnvWithDefault("REDIS_PASSWORD", cfg.Storage.RedisPassword)
	cfg.Storage.RedisDB = getEnvIntWithDefault("REDIS_DB", cfg.Storage.RedisDB)

	cfg.Telegram.Token = getEnvWithDefault("TELEGRAM_BOT_TOKEN", cfg.Telegram.Token)
	cfg.Telegram.ChatID = int64(getEnvIntWithDefault("TELEGRAM_CHAT_ID", int(cfg.Telegram.ChatID)))

	cfg.Metrics.Addr = getEnvWithDefault("METRICS_ADDR", cfg.Metrics.Addr)

	cfg.Analysis.Workers = getEnvIntWithDefault("WORKERS", cfg.Analysis.Workers)
	cfg.Analysis.OrderFlow.MinConfidence = getEnvFloatWithDefault("ORDER_FLOW_MIN_CONFIDENCE", cfg.Analysis.OrderFlow.MinConfidence)
	cfg.Analysis.MarketMaker.ManipulationSensitivity = getEnvFloatWithDefault("MANIPULATION_SENSITIVITY", cfg.Analysis.MarketMaker.ManipulationSensitivity)
	cfg.Analysis.MarketMaker.PipSize = getEnvFloatWithDefault("PIP_SIZE", cfg.Analysis.MarketMaker.PipSize)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
