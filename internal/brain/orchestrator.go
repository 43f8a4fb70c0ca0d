package brain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/expiry"
	"github.com/wonny/optincome/internal/recommend"
	"github.com/wonny/optincome/internal/screening"
	"github.com/wonny/optincome/internal/selection"
	"github.com/wonny/optincome/internal/signals"
	"github.com/wonny/optincome/internal/strategyconfig"
	"github.com/wonny/optincome/pkg/logger"
)

// Stage names recorded in RunResult.CompletedStages
const (
	StageScreen        = "S1:Screen"
	StagePutRecommend  = "S2:PutRecommend"
	StageCallRecommend = "S3:CallRecommend"
	StageSave          = "S4:Save"
)

// Orchestrator coordinates one screening run across all tickers
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	config     *strategyconfig.Config
	configHash string
	windows    expiry.Windows

	providers contracts.DataProviders
	auditor   contracts.ScreeningAuditor // optional
	store     contracts.RunStore         // optional

	builder    *screening.Builder
	scorer     *selection.Scorer
	ranker     *selection.Ranker
	putEngine  *recommend.PutEngine
	callEngine *recommend.CallEngine

	now    func() time.Time
	logger *logger.Logger
}

// RunConfig holds configuration for a screening run
type RunConfig struct {
	RunID string
	Today time.Time

	// Both empty -> the strategy config ticker lists are used
	CoveredCallTickers    []string
	CashSecuredPutTickers []string

	// 0 -> screening.max_candidates_per_ticker_per_bucket
	MaxCandidatesPerBucket int
}

// NewOrchestrator wires the pipeline components from the strategy config.
// auditor and store may be nil.
func NewOrchestrator(
	cfg *strategyconfig.Config,
	providers contracts.DataProviders,
	auditor contracts.ScreeningAuditor,
	store contracts.RunStore,
	log *logger.Logger,
) (*Orchestrator, error) {
	if providers.Market == nil || providers.Options == nil || providers.Fundamentals == nil {
		return nil, fmt.Errorf("data providers: market, options and fundamentals are required")
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}

	return &Orchestrator{
		config:     cfg,
		configHash: hash,
		windows:    expiry.WindowsFromConfig(cfg.Expiry),
		providers:  providers,
		auditor:    auditor,
		store:      store,
		builder:    screening.NewBuilder(screening.OptionsFromConfig(cfg.Screening), log),
		scorer:     selection.NewScorer(selection.ScorerConfigFromStrategy(cfg.Screening), log),
		ranker:     selection.NewRanker(log),
		putEngine:  recommend.NewPutEngine(cfg.Recommendation.Put, log),
		callEngine: recommend.NewCallEngine(cfg.Recommendation.Call, log),
		now:        time.Now,
		logger:     log,
	}, nil
}

// ConfigHash returns the hash of the strategy config this orchestrator runs with.
func (o *Orchestrator) ConfigHash() string {
	return o.configHash
}

// tickerPlan is one ticker and the strategies it is screened for.
type tickerPlan struct {
	ticker     string
	strategies []contracts.Strategy
}

func (p tickerPlan) wants(s contracts.Strategy) bool {
	for _, x := range p.strategies {
		if x == s {
			return true
		}
	}
	return false
}

// planTickers merges both lists upper-cased, preserving first-seen order.
func planTickers(coveredCall, cashSecuredPut []string) []tickerPlan {
	index := make(map[string]int)
	var plans []tickerPlan

	add := func(list []string, s contracts.Strategy) {
		for _, t := range list {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			i, ok := index[t]
			if !ok {
				i = len(plans)
				index[t] = i
				plans = append(plans, tickerPlan{ticker: t})
			}
			if !plans[i].wants(s) {
				plans[i].strategies = append(plans[i].strategies, s)
			}
		}
	}
	add(coveredCall, contracts.StrategyCall)
	add(cashSecuredPut, contracts.StrategyPut)
	return plans
}

// Run executes screen -> recommend -> save for the configured tickers.
// A failing ticker is recorded in FailedTickers and does not stop the run.
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*contracts.RunResult, error) {
	startTime := o.now()
	today := calendar.Truncate(config.Today)

	cc, csp := config.CoveredCallTickers, config.CashSecuredPutTickers
	if len(cc) == 0 && len(csp) == 0 {
		cc, csp = o.config.Tickers.CoveredCall, o.config.Tickers.CashSecuredPut
	}
	plans := planTickers(cc, csp)

	maxPerBucket := config.MaxCandidatesPerBucket
	if maxPerBucket <= 0 {
		maxPerBucket = o.config.Screening.MaxCandidatesPerBucket
	}

	result := &contracts.RunResult{
		RunID:           config.RunID,
		Today:           today,
		ConfigHash:      o.configHash,
		Tickers:         make([]string, 0, len(plans)),
		Buckets:         make(map[string]contracts.BucketSet, len(plans)),
		Candidates:      make([]contracts.ScreeningCandidate, 0),
		FailedTickers:   make(map[string]string),
		CompletedStages: make([]string, 0, 4),
		StartedAt:       startTime,
	}
	for _, p := range plans {
		result.Tickers = append(result.Tickers, p.ticker)
	}

	runLog := o.logger.WithRunID(config.RunID)
	runLog.WithFields(map[string]interface{}{
		"today":       calendar.Format(today),
		"tickers":     strings.Join(result.Tickers, ","),
		"config_hash": o.configHash,
	}).Info("Starting screening run")

	// S1: per-ticker screening
	var putSnapshots, callSnapshots []contracts.TickerSnapshot
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("run cancelled: %w", err)
		}

		snapshot, buckets, err := o.processTicker(ctx, runLog, plan, today, maxPerBucket)
		if err != nil {
			runLog.WithTicker(plan.ticker).WithError(err).Error("Failed processing ticker")
			result.FailedTickers[plan.ticker] = err.Error()
			continue
		}

		result.Buckets[plan.ticker] = buckets
		result.Candidates = append(result.Candidates, snapshot.Candidates...)
		if plan.wants(contracts.StrategyPut) {
			putSnapshots = append(putSnapshots, snapshot)
		}
		if plan.wants(contracts.StrategyCall) {
			callSnapshots = append(callSnapshots, snapshot)
		}
	}
	result.CompletedStages = append(result.CompletedStages, StageScreen)

	runLog.WithFields(map[string]interface{}{
		"candidates": len(result.Candidates),
		"failed":     len(result.FailedTickers),
	}).Info("S1 completed")

	// S2/S3: 2차 추천
	result.PutVerdicts = o.putEngine.RecommendBatch(putSnapshots, today)
	result.CompletedStages = append(result.CompletedStages, StagePutRecommend)

	result.CallVerdicts = o.callEngine.RecommendBatch(callSnapshots, today)
	result.CompletedStages = append(result.CompletedStages, StageCallRecommend)

	result.Duration = o.now().Sub(startTime)

	// S4: 저장 (설정된 경우만)
	if o.store != nil {
		if err := o.store.SaveRun(ctx, result); err != nil {
			return result, fmt.Errorf("S4 failed: save run: %w", err)
		}
		result.CompletedStages = append(result.CompletedStages, StageSave)
	}

	runLog.WithFields(map[string]interface{}{
		"duration":   result.Duration.Seconds(),
		"stages":     len(result.CompletedStages),
		"candidates": len(result.Candidates),
		"puts":       len(result.PutVerdicts),
		"calls":      len(result.CallVerdicts),
	}).Info("Screening run completed")

	return result, nil
}

// processTicker screens every bucket of one ticker and returns the snapshot
// handed to the recommendation engines.
func (o *Orchestrator) processTicker(
	ctx context.Context,
	runLog *logger.Logger,
	plan tickerPlan,
	today time.Time,
	maxPerBucket int,
) (contracts.TickerSnapshot, contracts.BucketSet, error) {
	ticker := plan.ticker
	snapshot := contracts.TickerSnapshot{Ticker: ticker, Candidates: []contracts.ScreeningCandidate{}}
	var buckets contracts.BucketSet

	log := runLog.WithTicker(ticker)

	history, err := o.providers.Market.GetPriceHistory(ctx, ticker,
		o.config.Data.PriceHistoryPeriod, o.config.Data.PriceHistoryInterval)
	if err != nil {
		return snapshot, buckets, fmt.Errorf("price history: %w", err)
	}

	technicals, ok := signals.ComputeTechnicals(history)
	if !ok {
		log.Warn("No price history, skipping")
		return snapshot, buckets, nil
	}
	snapshot.History = history
	snapshot.Technicals = technicals

	expirations, err := o.providers.Options.GetExpirations(ctx, ticker)
	if err != nil {
		return snapshot, buckets, fmt.Errorf("expirations: %w", err)
	}
	buckets = expiry.Select(expirations, today, o.windows)

	earnings, err := o.providers.Fundamentals.GetEarningsDate(ctx, ticker, today)
	if err != nil {
		// 실적일 조회 실패는 "알 수 없음"으로 처리
		log.WithError(err).Warn("Earnings lookup failed")
		earnings = nil
	}
	if earnings == nil {
		log.Info("Earnings date unavailable")
	}
	snapshot.EarningsDate = earnings

	var audit screening.AuditFunc
	if o.auditor != nil {
		audit = func(d contracts.ScreeningDecision) { o.auditor.LogScreeningDecision(ticker, d) }
	}

	var screened []contracts.ScreeningCandidate
	for _, bucket := range buckets.All() {
		if bucket.Expiration == nil {
			log.WithField("bucket", string(bucket.Name)).Warn("Bucket has no expiration")
			continue
		}

		chain, err := o.providers.Options.GetOptionsChain(ctx, ticker, *bucket.Expiration)
		if err != nil {
			return snapshot, buckets, fmt.Errorf("options chain %s: %w", calendar.Format(*bucket.Expiration), err)
		}

		var bucketCands []contracts.ScreeningCandidate
		for _, strategy := range []contracts.Strategy{contracts.StrategyPut, contracts.StrategyCall} {
			if !plan.wants(strategy) {
				continue
			}
			bucketCands = append(bucketCands, o.builder.Build(screening.Input{
				Ticker:       ticker,
				Strategy:     strategy,
				Bucket:       bucket.Name,
				BucketLabel:  bucket.Label,
				Expiration:   *bucket.Expiration,
				Rows:         chain.Side(strategy),
				Spot:         technicals.Spot,
				Technicals:   technicals,
				EarningsDate: earnings,
				Today:        today,
			}, audit)...)
		}

		top := o.ranker.TopN(o.scorer.ScoreAll(bucketCands, technicals), maxPerBucket)
		screened = append(screened, top...)

		log.WithFields(map[string]interface{}{
			"bucket":     string(bucket.Name),
			"expiration": calendar.Format(*bucket.Expiration),
			"built":      len(bucketCands),
			"kept":       len(top),
		}).Info("Bucket screened")
	}

	if screened != nil {
		snapshot.Candidates = screened
	}
	return snapshot, buckets, nil
}
