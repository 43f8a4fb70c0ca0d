package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/optincome/internal/brain"
	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/report"
	"github.com/wonny/optincome/pkg/logger"
)

// Runner executes one screening run
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*contracts.RunResult, error)
}

// ReportWriter renders a finished run
type ReportWriter interface {
	Write(run *contracts.RunResult) (report.Paths, error)
}

// Publisher announces run outcomes (websocket hub)
type Publisher interface {
	PublishRun(run *contracts.RunResult) error
	PublishFailure(err error) error
}

// ScreeningJob runs the screener on a schedule
// ⭐ SSOT: 정기 스크리닝 스케줄은 이 Job에서만
type ScreeningJob struct {
	runner    Runner
	reports   ReportWriter // optional
	publisher Publisher    // optional
	schedule  string
	location  *time.Location
	newRunID  func() string
	logger    *logger.Logger

	mu        sync.Mutex
	lastRunID string
}

// NewScreeningJob creates a new screening job. reports and publisher may be nil.
func NewScreeningJob(
	runner Runner,
	reports ReportWriter,
	publisher Publisher,
	schedule string,
	loc *time.Location,
	log *logger.Logger,
) *ScreeningJob {
	return &ScreeningJob{
		runner:    runner,
		reports:   reports,
		publisher: publisher,
		schedule:  schedule,
		location:  loc,
		newRunID:  uuid.NewString,
		logger:    log,
	}
}

// Name returns the job name
func (j *ScreeningJob) Name() string {
	return "options_screening"
}

// Schedule returns the cron schedule (weekdays after the open by default)
func (j *ScreeningJob) Schedule() string {
	return j.schedule
}

// LastRunID returns the ID of the most recent attempt, "" before the first run
func (j *ScreeningJob) LastRunID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRunID
}

// Run executes one screening run for the configured tickers
func (j *ScreeningJob) Run(ctx context.Context) error {
	runID := j.newRunID()
	today := calendar.Today(j.location)

	j.mu.Lock()
	j.lastRunID = runID
	j.mu.Unlock()

	log := j.logger.WithRunID(runID).WithField("today", calendar.Format(today))
	log.Info("Starting scheduled screening")

	result, err := j.runner.Run(ctx, brain.RunConfig{RunID: runID, Today: today})
	if err != nil {
		if j.publisher != nil {
			if perr := j.publisher.PublishFailure(err); perr != nil {
				log.WithError(perr).Warn("Failed to publish run failure")
			}
		}
		return fmt.Errorf("screening run: %w", err)
	}

	// 리포트 실패는 실행 결과를 무효화하지 않음
	if j.reports != nil {
		paths, err := j.reports.Write(result)
		if err != nil {
			log.WithError(err).Error("Failed to write reports")
		} else {
			log.WithFields(map[string]interface{}{
				"csv":  paths.CSV,
				"html": paths.HTML,
			}).Info("Reports written")
		}
	}

	if j.publisher != nil {
		if err := j.publisher.PublishRun(result); err != nil {
			log.WithError(err).Warn("Failed to publish run")
		}
	}

	log.WithFields(map[string]interface{}{
		"candidates": len(result.Candidates),
		"failed":     len(result.FailedTickers),
	}).Info("Scheduled screening completed")

	return nil
}
