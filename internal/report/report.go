// Package report renders run results as CSV and HTML files.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/strategyconfig"
	"github.com/wonny/optincome/pkg/logger"
)

// Paths lists the files written for one run. Empty when disabled.
type Paths struct {
	CSV  string `json:"csv,omitempty"`
	HTML string `json:"html,omitempty"`
}

// Writer writes run reports to the configured output directory
type Writer struct {
	config strategyconfig.Output
	logger *logger.Logger
}

// NewWriter creates a report writer
func NewWriter(cfg strategyconfig.Output, log *logger.Logger) *Writer {
	return &Writer{config: cfg, logger: log}
}

// WithDir returns a copy writing to dir (CLI --output-dir).
func (w *Writer) WithDir(dir string) *Writer {
	cp := *w
	if dir != "" {
		cp.config.Dir = dir
	}
	return &cp
}

// Write renders the enabled reports named after the run date.
func (w *Writer) Write(run *contracts.RunResult) (Paths, error) {
	var paths Paths
	if !w.config.WriteCSV && !w.config.WriteHTML {
		return paths, nil
	}

	if err := os.MkdirAll(w.config.Dir, 0o755); err != nil {
		return paths, fmt.Errorf("create output dir: %w", err)
	}
	base := filepath.Join(w.config.Dir, calendar.Format(run.Today)+"_options_report")

	if w.config.WriteCSV {
		path := base + ".csv"
		if err := writeFile(path, func(f io.Writer) error { return WriteCandidatesCSV(f, run.Candidates) }); err != nil {
			return paths, err
		}
		paths.CSV = path
	}

	if w.config.WriteHTML {
		path := base + ".html"
		if err := writeFile(path, func(f io.Writer) error { return WriteHTML(f, run, w.config.Disclaimer) }); err != nil {
			return paths, err
		}
		paths.HTML = path
	}

	w.logger.WithFields(map[string]interface{}{
		"run_id": run.RunID,
		"csv":    paths.CSV,
		"html":   paths.HTML,
	}).Info("Reports written")

	return paths, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
