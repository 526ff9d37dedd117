package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DB represents a database connection
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// New opens a PostgreSQL connection and makes sure the result tables exist
func New(ctx context.Context, databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Check connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &DB{DB: db, logger: log.With().Str("component", "database").Logger()}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_results (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			session TEXT NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			signal_types TEXT[] NOT NULL,
			payload JSONB NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS analysis_results_symbol_idx
			ON analysis_results (symbol, generated_at DESC)`,
		`CREATE TABLE IF NOT EXISTS liquidity_pools (
			result_id TEXT NOT NULL REFERENCES analysis_results(id) ON DELETE CASCADE,
			position INT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			kind TEXT NOT NULL,
			period TEXT,
			expected_reaction TEXT NOT NULL,
			origin_session TEXT NOT NULL,
			origin_timeframe TEXT NOT NULL,
			strength DOUBLE PRECISION NOT NULL,
			touches INT NOT NULL,
			institutional_interest DOUBLE PRECISION NOT NULL,
			formed_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (result_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			result_id TEXT NOT NULL REFERENCES analysis_results(id) ON DELETE CASCADE,
			position INT NOT NULL,
			type TEXT NOT NULL,
			direction TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			source TEXT NOT NULL,
			details TEXT,
			PRIMARY KEY (result_id, position)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record stores a result with its pools and signals in one transaction. A result that was
// already recorded is left untouched.
func (db *DB) Record(ctx context.Context, r *model.AnalysisResult) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO analysis_results (
			id, symbol, generated_at, status, session, current_price, signal_types, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`,
		r.ID, r.Symbol, r.GeneratedAt, string(r.Status), string(r.CurrentSession), r.CurrentPrice,
		pq.Array(signalTypes(r.Signals)), payload)
	if err != nil {
		return fmt.Errorf("inserting result %s: %w", r.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		db.logger.Debug().Str("id", r.ID).Msg("Result already recorded")
		return nil
	}

	for i, p := range r.LiquidityPools {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO liquidity_pools (
				result_id, position, price, kind, period, expected_reaction, origin_session,
				origin_timeframe, strength, touches, institutional_interest, formed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			r.ID, i, p.PriceLevel, string(p.Kind), nullString(p.Period), string(p.ExpectedReaction),
			string(p.OriginSession), string(p.OriginTimeframe), p.Strength, p.Touches,
			p.InstitutionalInterest, p.FormedAt); err != nil {
			return fmt.Errorf("inserting pool %d: %w", i, err)
		}
	}

	for i, s := range r.Signals {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO signals (result_id, position, type, direction, confidence, source, details)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			r.ID, i, string(s.Type), string(s.Direction), s.Confidence, s.Source, nullString(s.Details)); err != nil {
			return fmt.Errorf("inserting signal %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing result %s: %w", r.ID, err)
	}

	db.logger.Debug().Str("id", r.ID).Str("symbol", r.Symbol).Int("pools", len(r.LiquidityPools)).Msg("Result recorded")
	return nil
}

// ResultSummary is one stored result row without its payload
type ResultSummary struct {
	ID           string
	Symbol       string
	GeneratedAt  time.Time
	Status       model.StepStatus
	Session      model.SessionName
	CurrentPrice float64
	SignalTypes  []string
}

// RecentResults returns the latest stored results for symbol, newest first
func (db *DB) RecentResults(ctx context.Context, symbol string, limit int) ([]ResultSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, symbol, generated_at, status, session, current_price, signal_types
		FROM analysis_results
		WHERE symbol = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultSummary
	for rows.Next() {
		var s ResultSummary
		var status, session string
		if err := rows.Scan(&s.ID, &s.Symbol, &s.GeneratedAt, &status, &session, &s.CurrentPrice, pq.Array(&s.SignalTypes)); err != nil {
			return nil, err
		}
		s.Status = model.StepStatus(status)
		s.Session = model.SessionName(session)
		out = append(out, s)
	}
	return out, rows.Err()
}

// signalTypes lists the distinct signal types of a result in sorted order.
func signalTypes(signals []model.Signal) []string {
	seen := make(map[model.SignalType]bool, len(signals))
	out := []string{}
	for _, s := range signals {
		if !seen[s.Type] {
			seen[s.Type] = true
			out = append(out, string(s.Type))
		}
	}
	sort.Strings(out)
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
