package twelvedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Alias1177/SmartMoney/internal/model"
)

func newTestClient(url string) *Client {
	return NewClient(ClientOptions{
		APIKey:          "test-key",
		BaseURL:         url,
		RequestTimeout:  2 * time.Second,
		RequestsPerSec:  100,
		MaxRetries:      2,
		MaxRetryTimeout: 10 * time.Second,
	})
}

func TestGetCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "EUR/USD" || q.Get("interval") != "15min" || q.Get("outputsize") != "3" || q.Get("apikey") != "test-key" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{
			"meta": {"symbol": "EUR/USD", "interval": "15min"},
			"values": [
				{"datetime": "2024-03-04 10:30:00", "open": "1.0830", "high": "1.0840", "low": "1.0825", "close": "1.0835", "volume": "1200"},
				{"datetime": "2024-03-04 10:15:00", "open": "1.0820", "high": "1.0832", "low": "1.0818", "close": "1.0830"},
				{"datetime": "2024-03-04 10:00:00", "open": "1.0815", "high": "1.0822", "low": "1.0810", "close": "1.0820", "volume": "950.5"}
			],
			"status": "ok"
		}`))
	}))
	defer srv.Close()

	candles, err := newTestClient(srv.URL).GetCandles(context.Background(), "EUR/USD", model.M15, 3)
	if err != nil {
		t.Fatalf("GetCandles() error = %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("got %d candles, want 3", len(candles))
	}
	want := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	if !candles[0].Timestamp.Equal(want) {
		t.Errorf("first candle at %s, want oldest %s", candles[0].Timestamp, want)
	}
	if candles[0].Volume != 950 || candles[1].Volume != 0 || candles[2].Volume != 1200 {
		t.Errorf("volumes = %d %d %d", candles[0].Volume, candles[1].Volume, candles[2].Volume)
	}
	if candles[2].Close != 1.0835 {
		t.Errorf("last close = %v", candles[2].Close)
	}
	for _, c := range candles {
		if !c.Valid() {
			t.Errorf("invalid candle %+v", c)
		}
	}
}

func TestGetCandlesDailyFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"values": [{"datetime": "2024-03-04", "open": "1.08", "high": "1.09", "low": "1.07", "close": "1.085"}], "status": "ok"}`))
	}))
	defer srv.Close()

	candles, err := newTestClient(srv.URL).GetCandles(context.Background(), "EUR/USD", model.D1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !candles[0].Timestamp.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %s", candles[0].Timestamp)
	}
}

func TestGetCandlesInsufficientData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty values", `{"values": [], "status": "ok"}`},
		{"unknown symbol", `{"code": 400, "message": "symbol not found", "status": "error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).GetCandles(context.Background(), "XXX/YYY", model.H1, 10)
			if !errors.Is(err, model.ErrInsufficientData) {
				t.Errorf("error = %v, want ErrInsufficientData", err)
			}
		})
	}
}

func TestGetCandlesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 401, "message": "invalid api key", "status": "error"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetCandles(context.Background(), "EUR/USD", model.H1, 10)
	if err == nil || errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("error = %v, want a plain API error", err)
	}
}

func TestGetCandlesRetries(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		attempts int32
	}{
		{"server errors are retried", http.StatusBadGateway, 3},
		{"client errors are permanent", http.StatusForbidden, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).GetCandles(context.Background(), "EUR/USD", model.H1, 10)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := atomic.LoadInt32(&hits); got != tt.attempts {
				t.Errorf("attempts = %d, want %d", got, tt.attempts)
			}
		})
	}
}

func TestCandlesForDays(t *testing.T) {
	tests := []struct {
		tf       model.Timeframe
		days     int
		expected int
	}{
		{model.H1, 10, 264},
		{model.M15, 1, 105},
		{model.D1, 30, 33},
		{model.H4, 0, 0},
	}
	for _, tt := range tests {
		if got := CandlesForDays(tt.tf, tt.days); got != tt.expected {
			t.Errorf("CandlesForDays(%s, %d) = %d, want %d", tt.tf, tt.days, got, tt.expected)
		}
	}
}
