package providers

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/pkg/logger"
)

// AuditFields is the fixed column order of the per-ticker trail
var AuditFields = []string{
	"timestamp_utc",
	"event",
	"ticker",
	"period",
	"interval",
	"history_rows",
	"history_start",
	"history_end",
	"expiration",
	"expiration_value",
	"option_type",
	"contractSymbol",
	"strike",
	"bid",
	"ask",
	"lastPrice",
	"volume",
	"openInterest",
	"impliedVolatility",
	"earnings_date",
	"status",
	"message",
	"filtered",
	"filter_reason",
}

// AuditLog appends provider events and screening decisions to
// <dir>/<TICKER>_<source>_data.csv. Write failures are logged, never returned.
type AuditLog struct {
	dir    string
	source string
	logger *logger.Logger
	now    func() time.Time

	mu       sync.Mutex
	schemaOK map[string]bool
}

// NewAuditLog creates the trail writer; the directory is created on first write.
func NewAuditLog(dir, source string, log *logger.Logger) *AuditLog {
	return &AuditLog{
		dir:      dir,
		source:   source,
		logger:   log,
		now:      time.Now,
		schemaOK: make(map[string]bool),
	}
}

var (
	_ contracts.EventRecorder    = (*AuditLog)(nil)
	_ contracts.ScreeningAuditor = (*AuditLog)(nil)
)

// Path returns the trail file of one ticker.
func (a *AuditLog) Path(ticker string) string {
	return filepath.Join(a.dir, fmt.Sprintf("%s_%s_data.csv", strings.ToUpper(ticker), a.source))
}

// RecordEvent appends one provider event.
func (a *AuditLog) RecordEvent(ticker string, event contracts.ProviderEvent) {
	a.append(ticker, [][]string{a.row(ticker, event)})
}

// LogScreeningDecision appends one screening outcome.
func (a *AuditLog) LogScreeningDecision(ticker string, decision contracts.ScreeningDecision) {
	a.RecordEvent(ticker, contracts.ScreenEvent(decision))
}

func (a *AuditLog) append(ticker string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	log := a.logger.WithField("ticker", ticker)
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		log.WithError(err).Warn("Ticker CSV directory unavailable, skipping write")
		return
	}

	path := a.Path(ticker)
	if !a.schemaOK[path] {
		a.ensureSchema(path)
		a.schemaOK[path] = true
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		// 다른 프로그램이 파일을 잠근 경우에도 스크리닝은 계속
		log.WithError(err).Warn("Ticker CSV write failed")
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		_ = w.Write(AuditFields)
	}
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.WithError(err).Warn("Ticker CSV write failed")
	}
}

// ensureSchema rewrites a file whose header differs from AuditFields,
// keeping the values of columns that still exist.
func (a *AuditLog) ensureSchema(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	records, err := csv.NewReader(f).ReadAll()
	f.Close()
	if err != nil || len(records) == 0 {
		return
	}

	header := records[0]
	if strings.Join(header, ",") == strings.Join(AuditFields, ",") {
		return
	}

	position := make(map[string]int, len(header))
	for i, h := range header {
		position[h] = i
	}
	migrated := [][]string{AuditFields}
	for _, rec := range records[1:] {
		row := make([]string, len(AuditFields))
		for i, field := range AuditFields {
			if j, ok := position[field]; ok && j < len(rec) {
				row[i] = rec[j]
			}
		}
		migrated = append(migrated, row)
	}

	out, err := os.Create(path)
	if err != nil {
		a.logger.WithField("file", filepath.Base(path)).WithError(err).Warn("Could not migrate ticker CSV schema")
		return
	}
	defer out.Close()
	w := csv.NewWriter(out)
	_ = w.WriteAll(migrated)
	if err := w.Error(); err != nil {
		a.logger.WithField("file", filepath.Base(path)).WithError(err).Warn("Could not migrate ticker CSV schema")
	}
}

func (a *AuditLog) row(ticker string, e contracts.ProviderEvent) []string {
	return []string{
		a.now().UTC().Format(time.RFC3339Nano),
		e.Event,
		strings.ToUpper(ticker),
		e.Period,
		e.Interval,
		intCell(e.HistoryRows),
		dateCell(e.HistoryStart),
		dateCell(e.HistoryEnd),
		dateCell(e.Expiration),
		dateCell(e.ExpirationValue),
		string(e.OptionType),
		e.ContractSymbol,
		floatCell(e.Strike),
		floatCell(e.Bid),
		floatCell(e.Ask),
		floatCell(e.LastPrice),
		floatCell(e.Volume),
		floatCell(e.OpenInterest),
		floatCell(e.ImpliedVolatility),
		dateCell(e.EarningsDate),
		e.Status,
		e.Message,
		boolCell(e.Filtered),
		e.FilterReason,
	}
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return calendar.Format(*t)
}

func floatCell(f contracts.Float) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.V, 'f', -1, 64)
}

func boolCell(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "True"
	}
	return "False"
}
