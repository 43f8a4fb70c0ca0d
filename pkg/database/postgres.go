package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/optincome/pkg/config"
)

// ErrNotConfigured is returned when DATABASE_URL is empty.
// 이력 저장은 선택 기능: 호출자는 이 에러를 받으면 메모리 저장소로 대체
var ErrNotConfigured = errors.New("database not configured")

// DB wraps the pgxpool.Pool and provides additional functionality
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool
// ⭐ SSOT: 유일하게 pgxpool.NewWithConfig()를 호출하는 함수
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	if !cfg.Database.Enabled() {
		return nil, ErrNotConfigured
	}

	// Build connection pool config
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// schema is the run history layout. Idempotent.
const schema = `
CREATE SCHEMA IF NOT EXISTS screener;

CREATE TABLE IF NOT EXISTS screener.runs (
    run_id       TEXT PRIMARY KEY,
    run_date     DATE NOT NULL,
    config_hash  TEXT NOT NULL,
    tickers      TEXT[] NOT NULL,
    buckets      JSONB NOT NULL DEFAULT '{}',
    failed       JSONB NOT NULL DEFAULT '{}',
    stages       TEXT[] NOT NULL DEFAULT '{}',
    started_at   TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS screener.candidates (
    run_id           TEXT NOT NULL REFERENCES screener.runs(run_id) ON DELETE CASCADE,
    position         INTEGER NOT NULL,
    ticker           TEXT NOT NULL,
    strategy         TEXT NOT NULL,
    bucket           TEXT NOT NULL,
    expiration       DATE NOT NULL,
    contract_symbol  TEXT NOT NULL,
    strike           DOUBLE PRECISION NOT NULL,
    score            DOUBLE PRECISION NOT NULL,
    payload          JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS screener.recommendations (
    run_id    TEXT NOT NULL REFERENCES screener.runs(run_id) ON DELETE CASCADE,
    position  INTEGER NOT NULL,
    ticker    TEXT NOT NULL,
    strategy  TEXT NOT NULL,
    term      TEXT NOT NULL,
    verdict   TEXT NOT NULL,
    payload   JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON screener.runs (started_at DESC);
CREATE INDEX IF NOT EXISTS idx_candidates_run ON screener.candidates (run_id);
CREATE INDEX IF NOT EXISTS idx_recommendations_run ON screener.recommendations (run_id, strategy);
`

// Migrate creates the screener schema when missing
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// HealthCheck returns detailed health information about the database
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Healthy:   false,
		Timestamp: time.Now(),
	}

	// Check connection
	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)
	status.Stats = db.Stats()

	status.Healthy = true
	return status, nil
}

// HealthStatus represents the health status of the database
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        PoolStats     `json:"stats"`
}

// PoolStats represents connection pool statistics
type PoolStats struct {
	AcquireCount  int64 `json:"acquire_count"`
	AcquiredConns int32 `json:"acquired_conns"`
	IdleConns     int32 `json:"idle_conns"`
	MaxConns      int32 `json:"max_conns"`
	TotalConns    int32 `json:"total_conns"`
}

// Stats returns the current pool statistics
func (db *DB) Stats() PoolStats {
	stats := db.Pool.Stat()
	return PoolStats{
		AcquireCount:  stats.AcquireCount(),
		AcquiredConns: stats.AcquiredConns(),
		IdleConns:     stats.IdleConns(),
		MaxConns:      stats.MaxConns(),
		TotalConns:    stats.TotalConns(),
	}
}
