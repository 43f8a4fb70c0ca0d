package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/pkg/logger"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

var errRunIDRequired = errors.New("save run: run_id is required")

// Repository persists run results in PostgreSQL
// ⭐ SSOT: 실행 결과 저장/조회는 여기서만
type Repository struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewRepository creates a new run repository
func NewRepository(pool *pgxpool.Pool, log *logger.Logger) *Repository {
	return &Repository{pool: pool, logger: log}
}

var _ contracts.RunStore = (*Repository)(nil)

// SaveRun writes the run, its candidates and verdicts in one transaction.
// Saving the same run_id again replaces the previous rows.
func (r *Repository) SaveRun(ctx context.Context, run *contracts.RunResult) error {
	if run == nil || run.RunID == "" {
		return errRunIDRequired
	}

	bucketsJSON, err := json.Marshal(run.Buckets)
	if err != nil {
		return fmt.Errorf("failed to marshal buckets: %w", err)
	}
	failedJSON, err := json.Marshal(run.FailedTickers)
	if err != nil {
		return fmt.Errorf("failed to marshal failed tickers: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO screener.runs (
			run_id, run_date, config_hash, tickers, buckets, failed, stages, started_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			run_date = EXCLUDED.run_date,
			config_hash = EXCLUDED.config_hash,
			tickers = EXCLUDED.tickers,
			buckets = EXCLUDED.buckets,
			failed = EXCLUDED.failed,
			stages = EXCLUDED.stages,
			started_at = EXCLUDED.started_at,
			duration_ms = EXCLUDED.duration_ms
	`
	_, err = tx.Exec(ctx, query,
		run.RunID, run.Today, run.ConfigHash, run.Tickers, bucketsJSON, failedJSON,
		run.CompletedStages, run.StartedAt, run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	// 재저장 시 이전 행 교체
	for _, table := range []string{"screener.candidates", "screener.recommendations"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE run_id = $1", run.RunID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	batch := &pgx.Batch{}
	for i, c := range run.Candidates {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal candidate %s: %w", c.ContractSymbol, err)
		}
		batch.Queue(`
			INSERT INTO screener.candidates (
				run_id, position, ticker, strategy, bucket, expiration, contract_symbol, strike, score, payload
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			run.RunID, i, c.Ticker, string(c.Strategy), string(c.Bucket), c.Expiration,
			c.ContractSymbol, c.Strike, c.Score, payload,
		)
	}

	verdicts := append(append([]contracts.RecommendationVerdict{}, run.PutVerdicts...), run.CallVerdicts...)
	for i, v := range verdicts {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal verdict %s: %w", v.Ticker, err)
		}
		batch.Queue(`
			INSERT INTO screener.recommendations (
				run_id, position, ticker, strategy, term, verdict, payload
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			run.RunID, i, v.Ticker, string(v.Strategy), v.Term, string(v.Verdict), payload,
		)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save run rows: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	r.logger.WithRunID(run.RunID).WithFields(map[string]interface{}{
		"candidates": len(run.Candidates),
		"verdicts":   len(verdicts),
	}).Info("Run saved")

	return nil
}

// GetRun retrieves a run with all of its rows
func (r *Repository) GetRun(ctx context.Context, runID string) (*contracts.RunResult, error) {
	query := `
		SELECT run_id, run_date, config_hash, tickers, buckets, failed, stages, started_at, duration_ms
		FROM screener.runs
		WHERE run_id = $1
	`
	return r.loadRun(ctx, r.pool.QueryRow(ctx, query, runID))
}

// GetLatestRun retrieves the most recently started run
func (r *Repository) GetLatestRun(ctx context.Context) (*contracts.RunResult, error) {
	query := `
		SELECT run_id, run_date, config_hash, tickers, buckets, failed, stages, started_at, duration_ms
		FROM screener.runs
		ORDER BY started_at DESC
		LIMIT 1
	`
	return r.loadRun(ctx, r.pool.QueryRow(ctx, query))
}

func (r *Repository) loadRun(ctx context.Context, row pgx.Row) (*contracts.RunResult, error) {
	var (
		run         contracts.RunResult
		bucketsJSON []byte
		failedJSON  []byte
		durationMs  int64
	)

	err := row.Scan(
		&run.RunID, &run.Today, &run.ConfigHash, &run.Tickers, &bucketsJSON, &failedJSON,
		&run.CompletedStages, &run.StartedAt, &durationMs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.Today = calendar.Truncate(run.Today)
	run.Duration = time.Duration(durationMs) * time.Millisecond

	if err := json.Unmarshal(bucketsJSON, &run.Buckets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal buckets: %w", err)
	}
	if err := json.Unmarshal(failedJSON, &run.FailedTickers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed tickers: %w", err)
	}

	if run.Candidates, err = r.loadCandidates(ctx, run.RunID); err != nil {
		return nil, err
	}
	if err := r.loadVerdicts(ctx, &run); err != nil {
		return nil, err
	}

	return &run, nil
}

func (r *Repository) loadCandidates(ctx context.Context, runID string) ([]contracts.ScreeningCandidate, error) {
	query := `
		SELECT payload
		FROM screener.candidates
		WHERE run_id = $1
		ORDER BY position
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]contracts.ScreeningCandidate, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		var c contracts.ScreeningCandidate
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *Repository) loadVerdicts(ctx context.Context, run *contracts.RunResult) error {
	query := `
		SELECT payload
		FROM screener.recommendations
		WHERE run_id = $1
		ORDER BY position
	`
	rows, err := r.pool.Query(ctx, query, run.RunID)
	if err != nil {
		return fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	run.PutVerdicts = make([]contracts.RecommendationVerdict, 0)
	run.CallVerdicts = make([]contracts.RecommendationVerdict, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("failed to scan recommendation: %w", err)
		}
		var v contracts.RecommendationVerdict
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("failed to unmarshal recommendation: %w", err)
		}
		if v.Strategy == contracts.StrategyPut {
			run.PutVerdicts = append(run.PutVerdicts, v)
		} else {
			run.CallVerdicts = append(run.CallVerdicts, v)
		}
	}
	return rows.Err()
}

// ListRuns returns summaries of the most recent runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]contracts.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT r.run_id, r.run_date, r.config_hash, cardinality(r.tickers),
			(SELECT count(*) FROM jsonb_object_keys(r.failed)),
			(SELECT count(*) FROM screener.candidates c WHERE c.run_id = r.run_id),
			(SELECT count(*) FROM screener.recommendations v WHERE v.run_id = r.run_id AND v.verdict = 'Yes'),
			(SELECT count(*) FROM screener.recommendations v WHERE v.run_id = r.run_id AND v.verdict = 'Borderline'),
			(SELECT count(*) FROM screener.recommendations v WHERE v.run_id = r.run_id AND v.verdict NOT IN ('Yes', 'Borderline')),
			r.started_at
		FROM screener.runs r
		ORDER BY r.started_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	summaries := make([]contracts.RunSummary, 0)
	for rows.Next() {
		var s contracts.RunSummary
		if err := rows.Scan(
			&s.RunID, &s.Today, &s.ConfigHash, &s.Tickers, &s.Failed, &s.Candidates,
			&s.YesCount, &s.Borderline, &s.NoCount, &s.StartedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
