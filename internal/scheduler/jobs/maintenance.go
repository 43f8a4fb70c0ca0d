package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/pkg/logger"
)

const reportSuffix = "_options_report"

// ReportCleanupJob removes report files older than the retention window
type ReportCleanupJob struct {
	dir       string
	retention int // days
	location  *time.Location
	logger    *logger.Logger
}

// NewReportCleanupJob creates a new report cleanup job
func NewReportCleanupJob(dir string, retentionDays int, loc *time.Location, log *logger.Logger) *ReportCleanupJob {
	return &ReportCleanupJob{
		dir:       dir,
		retention: retentionDays,
		location:  loc,
		logger:    log,
	}
}

// Name returns the job name
func (j *ReportCleanupJob) Name() string {
	return "report_cleanup"
}

// Schedule returns the cron schedule (daily at 03:00)
func (j *ReportCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the cleanup
func (j *ReportCleanupJob) Run(ctx context.Context) error {
	removed, err := j.cleanup(calendar.Today(j.location))
	if err != nil {
		return err
	}
	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Report cleanup completed")
	}
	return nil
}

// cleanup deletes <YYYY-MM-DD>_options_report.* files dated before today-retention.
func (j *ReportCleanupJob) cleanup(today time.Time) (int, error) {
	if j.retention <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(j.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read report dir: %w", err)
	}

	cutoff := today.AddDate(0, 0, -j.retention)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.Contains(name, reportSuffix) {
			continue
		}
		day, err := calendar.ParseDate(strings.SplitN(name, reportSuffix, 2)[0])
		if err != nil || !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, name)); err != nil {
			j.logger.WithError(err).WithField("file", name).Warn("Failed to remove report")
			continue
		}
		removed++
	}
	return removed, nil
}
