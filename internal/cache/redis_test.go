package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestKeys(t *testing.T) {
	r := newRedisRecorder(redis.NewClient(&redis.Options{Addr: "localhost:0"}), RedisConfig{})
	defer r.Close()

	if got := r.latestKey("EUR/USD"); got != "smartmoney:latest:EUR/USD" {
		t.Errorf("latestKey = %s", got)
	}
	if got := r.historyKey("EUR/USD"); got != "smartmoney:history:EUR/USD" {
		t.Errorf("historyKey = %s", got)
	}
	if r.history != 100 {
		t.Errorf("default history = %d, want 100", r.history)
	}
}

// TestRecordAndRead needs a disposable Redis in TEST_REDIS_ADDR.
func TestRecordAndRead(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	r, err := NewRedisRecorder(ctx, RedisConfig{Addr: addr, History: 2, Prefix: "smartmoney-test-" + uuid.NewString()[:8]})
	if err != nil {
		t.Fatalf("NewRedisRecorder() error = %v", err)
	}
	defer func() {
		r.client.Del(ctx, r.latestKey("EUR/USD"), r.historyKey("EUR/USD"))
		r.Close()
	}()

	if res, err := r.Latest(ctx, "EUR/USD"); err != nil || res != nil {
		t.Fatalf("Latest() on empty cache = %v, %v", res, err)
	}

	base := time.Date(2024, 3, 6, 13, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		res := &model.AnalysisResult{ID: uuid.NewString(), Symbol: "EUR/USD", GeneratedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := r.Record(ctx, res); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	latest, err := r.Latest(ctx, "EUR/USD")
	if err != nil {
		t.Fatal(err)
	}
	if !latest.GeneratedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("latest generated at %s", latest.GeneratedAt)
	}

	recent, err := r.Recent(ctx, "EUR/USD", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("history holds %d results, want 2", len(recent))
	}
	if !recent[0].GeneratedAt.After(recent[1].GeneratedAt) {
		t.Error("history not newest first")
	}
}
