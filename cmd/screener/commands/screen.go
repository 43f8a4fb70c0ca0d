package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wonny/optincome/internal/brain"
	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/report"
	"github.com/wonny/optincome/internal/strategyconfig"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "스크리닝 1회 실행",
	Long: `전략 설정의 티커들에 대해 스크리닝을 1회 실행합니다.

이 명령어는:
- 티커별 만기 버킷 선택 (current week / next week / monthly)
- 풋/콜 후보 스크리닝 및 랭킹
- 풋/콜 추천 판정 (Yes / Borderline / No)
- CSV / HTML 리포트 생성

Example:
  go run ./cmd/screener screen
  go run ./cmd/screener screen --tickers SPY,QQQ,MSFT
  go run ./cmd/screener screen --puts KO --calls AAPL --today 2024-03-04
  go run ./cmd/screener screen --save`,
	RunE: runScreen,
}

var (
	screenTickers       string
	screenPuts          string
	screenCalls         string
	screenOutputDir     string
	screenMaxCandidates int
	screenToday         string
	screenSave          bool
)

func init() {
	rootCmd.AddCommand(screenCmd)

	// Flags
	screenCmd.Flags().StringVar(&screenTickers, "tickers", "", `comma-separated tickers screened for both strategies, e.g. "SPY,QQQ,MSFT"`)
	screenCmd.Flags().StringVar(&screenPuts, "puts", "", "comma-separated cash-secured put tickers (overrides --tickers for puts)")
	screenCmd.Flags().StringVar(&screenCalls, "calls", "", "comma-separated covered call tickers (overrides --tickers for calls)")
	screenCmd.Flags().StringVar(&screenOutputDir, "output-dir", "", "report output directory")
	screenCmd.Flags().IntVar(&screenMaxCandidates, "max-candidates", 0, "max candidates per ticker per bucket (0 = strategy config)")
	screenCmd.Flags().StringVar(&screenToday, "today", "", "run date YYYY-MM-DD (default: today in the strategy timezone)")
	screenCmd.Flags().BoolVar(&screenSave, "save", false, "persist the run (PostgreSQL when DATABASE_URL is set)")
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	today, err := resolveToday(screenToday, a.strategy.Location())
	if err != nil {
		return err
	}
	calls, puts := resolveTickers(a.strategy.Tickers, screenTickers, screenCalls, screenPuts)

	var store contracts.RunStore
	if screenSave {
		if store, err = a.runStore(ctx); err != nil {
			return err
		}
	}

	orch, err := a.orchestrator(store)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	runID := uuid.NewString()
	a.log.WithRunID(runID).WithFields(map[string]interface{}{
		"today":       calendar.Format(today),
		"config_hash": orch.ConfigHash(),
	}).Info("Starting options screener")

	run, err := orch.Run(ctx, brain.RunConfig{
		RunID:                  runID,
		Today:                  today,
		CoveredCallTickers:     calls,
		CashSecuredPutTickers:  puts,
		MaxCandidatesPerBucket: screenMaxCandidates,
	})
	if err != nil {
		return fmt.Errorf("screening run: %w", err)
	}

	if path, err := writeSnapshot(a.strategy, a.strategyYAML, run, a.strategy.Data.AuditDir); err != nil {
		a.log.WithError(err).Warn("Failed to write strategy snapshot")
	} else {
		a.log.WithField("path", path).Debug("Strategy snapshot written")
	}

	writer := a.reports
	if screenOutputDir != "" {
		writer = writer.WithDir(screenOutputDir)
	}
	paths, err := writer.Write(run)
	if err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	printRunSummary(run, calls, puts, paths, a.strategy.Output.Disclaimer)

	a.log.WithFields(map[string]interface{}{
		"csv":        paths.CSV,
		"html":       paths.HTML,
		"candidates": len(run.Candidates),
	}).Info("Run completed")
	return nil
}

// writeSnapshot stores the strategy config a run used as <dir>/<run_id>_strategy.json
func writeSnapshot(cfg *strategyconfig.Config, raw []byte, run *contracts.RunResult, dir string) (string, error) {
	snap, err := strategyconfig.NewRunSnapshot(cfg, raw, run.RunID, run.StartedAt)
	if err != nil {
		return "", fmt.Errorf("build snapshot: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audit dir: %w", err)
	}
	path := filepath.Join(dir, run.RunID+"_strategy.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// resolveToday parses --today or falls back to the current date in loc
func resolveToday(flag string, loc *time.Location) (time.Time, error) {
	if flag == "" {
		return calendar.Today(loc), nil
	}
	d, err := calendar.ParseDate(flag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --today %q: %w", flag, err)
	}
	return d, nil
}

// resolveTickers applies --tickers, then --calls / --puts, over the strategy lists
func resolveTickers(base strategyconfig.Tickers, tickers, calls, puts string) (cc, csp []string) {
	cc, csp = base.CoveredCall, base.CashSecuredPut
	if list := splitTickers(tickers); len(list) > 0 {
		cc, csp = list, list
	}
	if list := splitTickers(calls); len(list) > 0 {
		cc = list
	}
	if list := splitTickers(puts); len(list) > 0 {
		csp = list
	}
	return cc, csp
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// candidateCount is one (ticker, bucket, strategy) group size
type candidateCount struct {
	Ticker   string
	Bucket   contracts.BucketName
	Strategy contracts.Strategy
	Count    int
}

// countCandidates groups candidates in (ticker, bucket, strategy) order
func countCandidates(cands []contracts.ScreeningCandidate) []candidateCount {
	index := make(map[candidateCount]int)
	var out []candidateCount
	for _, c := range cands {
		key := candidateCount{Ticker: c.Ticker, Bucket: c.Bucket, Strategy: c.Strategy}
		if i, ok := index[key]; ok {
			out[i].Count++
			continue
		}
		index[key] = len(out)
		key.Count = 1
		out = append(out, key)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		if out[i].Bucket != out[j].Bucket {
			return out[i].Bucket < out[j].Bucket
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out
}

// topCandidates returns the n highest scores, stable on ties
func topCandidates(cands []contracts.ScreeningCandidate, n int) []contracts.ScreeningCandidate {
	sorted := make([]contracts.ScreeningCandidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// bucketLine renders "Current Week: 2024-03-08 | Next Week: N/A | ..."
func bucketLine(set contracts.BucketSet) string {
	parts := make([]string, 0, 3)
	for _, b := range set.All() {
		label := b.Label
		if label == "" {
			label = string(b.Name)
		}
		exp := "N/A"
		if b.Expiration != nil {
			exp = calendar.Format(*b.Expiration)
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, exp))
	}
	return strings.Join(parts, " | ")
}

func printRunSummary(run *contracts.RunResult, calls, puts []string, paths report.Paths, disclaimer string) {
	PrintHeader("Options Screener Summary")
	PrintKeyValue("Run ID", run.RunID, 14)
	PrintKeyValue("Run date", calendar.Format(run.Today), 14)
	PrintKeyValue("Config hash", run.ConfigHash, 14)
	PrintKeyValue("Tickers", orNone(run.Tickers), 14)

	PrintSection("Selected expirations by ticker")
	for _, t := range run.Tickers {
		if reason, failed := run.FailedTickers[t]; failed {
			PrintError(fmt.Sprintf("%s: %s", t, reason))
			continue
		}
		fmt.Printf("   • %s: %s\n", t, bucketLine(run.Buckets[t]))
	}

	if len(run.Candidates) == 0 {
		PrintWarning("No candidates passed filters today.")
	} else {
		PrintSection("Candidate counts (post-filter, post-ranking)")
		for _, c := range countCandidates(run.Candidates) {
			fmt.Printf("   • %s %s %s: %d\n", c.Ticker, c.Bucket, c.Strategy, c.Count)
		}

		PrintSection("Top 3 highlights")
		for _, c := range topCandidates(run.Candidates, 3) {
			fmt.Printf("   • %s %s %s strike=%.2f exp=%s yield=%s score=%.3f\n",
				c.Ticker, c.Strategy, c.BucketLabel, c.Strike,
				calendar.Format(c.Expiration), report.Ratio(c.AnnualizedYield, 2), c.Score)
		}
	}

	printVerdicts("Cash-secured put recommendations", run.PutVerdicts)
	printVerdicts("Covered call recommendations", run.CallVerdicts)

	fmt.Println()
	PrintKeyValue("Covered call tickers", orNone(calls), 24)
	PrintKeyValue("Cash-secured put tickers", orNone(puts), 24)
	if paths.CSV != "" {
		PrintKeyValue("CSV report", paths.CSV, 24)
	}
	if paths.HTML != "" {
		PrintKeyValue("HTML report", paths.HTML, 24)
	}

	if disclaimer != "" {
		PrintWarning("Risk warning:\n" + disclaimer)
	}
	PrintSuccess(fmt.Sprintf("Run completed in %s", run.Duration.Round(time.Millisecond)))
}

var verdictWidths = []int{7, 10, 10, 9, 10, 9, 8, 6}

func printVerdicts(title string, verdicts []contracts.RecommendationVerdict) {
	if len(verdicts) == 0 {
		return
	}
	PrintSection(title)
	PrintTableHeader([]string{"Ticker", "Term", "Verdict", "Strike", "Expiry", "Premium", "Yield", "IVR"}, verdictWidths)
	for _, v := range verdicts {
		exp := "—"
		if v.Expiration != nil {
			exp = calendar.Format(*v.Expiration)
		}
		yield := "—"
		if v.AnnualizedYield != nil {
			yield = report.Ratio(*v.AnnualizedYield, 1)
		}
		PrintTableRow([]string{
			v.Ticker, v.Term, string(v.Verdict),
			report.Money(v.Strike), exp, report.Money(v.Premium),
			yield, report.Percent(v.IVR),
		}, verdictWidths)
		if v.Reason != "" {
			fmt.Printf("         ↳ %s\n", v.Reason)
		}
	}
}
