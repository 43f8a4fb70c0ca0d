package contracts

import (
	"context"
	"time"
)

// RunResult is the full outcome of one screening run.
type RunResult struct {
	RunID           string                  `json:"run_id"`
	Today           time.Time               `json:"today"`
	ConfigHash      string                  `json:"config_hash"`
	Tickers         []string                `json:"tickers"`
	Buckets         map[string]BucketSet    `json:"buckets"`
	Candidates      []ScreeningCandidate    `json:"candidates"`
	PutVerdicts     []RecommendationVerdict `json:"put_recommendations"`
	CallVerdicts    []RecommendationVerdict `json:"call_recommendations"`
	FailedTickers   map[string]string       `json:"failed_tickers,omitempty"`
	CompletedStages []string                `json:"completed_stages"`
	StartedAt       time.Time               `json:"started_at"`
	Duration        time.Duration           `json:"duration"`
}

// Summary condenses a run for listings and the live stream.
func (r *RunResult) Summary() RunSummary {
	s := RunSummary{
		RunID:      r.RunID,
		Today:      r.Today,
		ConfigHash: r.ConfigHash,
		Tickers:    len(r.Tickers),
		Candidates: len(r.Candidates),
		Failed:     len(r.FailedTickers),
		StartedAt:  r.StartedAt,
	}
	for _, v := range r.PutVerdicts {
		s.countVerdict(v.Verdict)
	}
	for _, v := range r.CallVerdicts {
		s.countVerdict(v.Verdict)
	}
	return s
}

// RunSummary is a compact view of a run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Today      time.Time `json:"today"`
	ConfigHash string    `json:"config_hash"`
	Tickers    int       `json:"tickers"`
	Candidates int       `json:"candidates"`
	Failed     int       `json:"failed"`
	YesCount   int       `json:"yes"`
	Borderline int       `json:"borderline"`
	NoCount    int       `json:"no"`
	StartedAt  time.Time `json:"started_at"`
}

func (s *RunSummary) countVerdict(v Verdict) {
	switch v {
	case VerdictYes:
		s.YesCount++
	case VerdictBorderline:
		s.Borderline++
	default:
		s.NoCount++
	}
}

// RunStore persists run results.
type RunStore interface {
	SaveRun(ctx context.Context, run *RunResult) error
	GetRun(ctx context.Context, runID string) (*RunResult, error)
	GetLatestRun(ctx context.Context) (*RunResult, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}
