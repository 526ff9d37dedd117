package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultPrefix = "smartmoney"

// RedisConfig holds connection settings for the result cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	History  int64 // results kept per symbol
	Prefix   string
}

// RedisRecorder keeps the latest result per symbol and a capped list of recent ones.
type RedisRecorder struct {
	client  *redis.Client
	history int64
	prefix  string
	logger  zerolog.Logger
}

// NewRedisRecorder connects and pings Redis.
func NewRedisRecorder(ctx context.Context, cfg RedisConfig) (*RedisRecorder, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisRecorder(client, cfg), nil
}

func newRedisRecorder(client *redis.Client, cfg RedisConfig) *RedisRecorder {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.History <= 0 {
		cfg.History = 100
	}
	return &RedisRecorder{
		client:  client,
		history: cfg.History,
		prefix:  cfg.Prefix,
		logger:  log.With().Str("component", "redis_cache").Logger(),
	}
}

// Close closes the Redis connection.
func (r *RedisRecorder) Close() error {
	return r.client.Close()
}

// Record stores res as the symbol's latest result and pushes it onto the history list.
func (r *RedisRecorder) Record(ctx context.Context, res *model.AnalysisResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.latestKey(res.Symbol), data, 0)
		pipe.LPush(ctx, r.historyKey(res.Symbol), data)
		pipe.LTrim(ctx, r.historyKey(res.Symbol), 0, r.history-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("caching result for %s: %w", res.Symbol, err)
	}

	r.logger.Debug().Str("symbol", res.Symbol).Str("id", res.ID).Msg("Result cached")
	return nil
}

// Latest returns the most recent cached result for symbol, or nil when there is none.
func (r *RedisRecorder) Latest(ctx context.Context, symbol string) (*model.AnalysisResult, error) {
	data, err := r.client.Get(ctx, r.latestKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var res model.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decoding cached result: %w", err)
	}
	return &res, nil
}

// Recent returns up to n cached results for symbol, newest first.
func (r *RedisRecorder) Recent(ctx context.Context, symbol string, n int64) ([]*model.AnalysisResult, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := r.client.LRange(ctx, r.historyKey(symbol), 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*model.AnalysisResult, 0, len(items))
	for _, item := range items {
		var res model.AnalysisResult
		if err := json.Unmarshal([]byte(item), &res); err != nil {
			return nil, fmt.Errorf("decoding cached result: %w", err)
		}
		out = append(out, &res)
	}
	return out, nil
}

func (r *RedisRecorder) latestKey(symbol string) string {
	return r.prefix + ":latest:" + symbol
}

func (r *RedisRecorder) historyKey(symbol string) string {
	return r.prefix + ":history:" + symbol
}
