package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/optincome/internal/audit"
	"github.com/wonny/optincome/internal/brain"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/external/yahoo"
	"github.com/wonny/optincome/internal/providers"
	"github.com/wonny/optincome/internal/report"
	"github.com/wonny/optincome/internal/strategyconfig"
	"github.com/wonny/optincome/pkg/config"
	"github.com/wonny/optincome/pkg/database"
	"github.com/wonny/optincome/pkg/httputil"
	"github.com/wonny/optincome/pkg/logger"
	"github.com/wonny/optincome/pkg/redis"
)

// memoryRunLimit bounds the in-process run history when no database is configured
const memoryRunLimit = 50

// app holds the wired dependencies shared by all commands
type app struct {
	cfg          *config.Config
	strategy     *strategyconfig.Config
	strategyYAML []byte
	log          *logger.Logger

	redis     *redis.Client
	db        *database.DB
	auditLog  *providers.AuditLog
	providers contracts.DataProviders
	reports   *report.Writer
	store     contracts.RunStore

	closers []func()
}

// loadSettings reads env config, the strategy YAML and builds the logger
func loadSettings() (*config.Config, *strategyconfig.Config, []byte, *logger.Logger, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load strategy config
	path := strategyFile
	if path == "" {
		path = cfg.StrategyConfigPath
	}
	strategy, raw, err := strategyconfig.LoadOrDefault(path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load strategy config: %w", err)
	}
	if err := strategyconfig.Validate(strategy); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid strategy config: %w", err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	return cfg, strategy, raw, log, nil
}

// newApp wires config, providers and the report writer.
// The run store is created lazily by runStore.
func newApp(ctx context.Context) (*app, error) {
	cfg, strategy, raw, log, err := loadSettings()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:          cfg,
		strategy:     strategy,
		strategyYAML: raw,
		log:          log,
	}

	// 4. Connect to Redis (optional)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc
	a.closers = append(a.closers, func() { _ = rc.Close() })
	if rc.Enabled() {
		log.WithField("addr", rc.Addr()).Info("Connected to Redis")
	}

	// 5. Create HTTP client
	httpClient := httputil.New(cfg, log).WithLocalLimit(cfg.Yahoo.RateLimit)
	if rc.Enabled() {
		httpClient = httpClient.WithRateLimiter(redis.NewRateLimiter(rc, "optincome"), redis.YahooRateLimit(cfg.Yahoo.RateLimit))
		log.Info("Using shared Redis rate limit for Yahoo")
	}

	// 6. Create provider clients
	a.auditLog = providers.NewAuditLog(strategy.Data.AuditDir, providers.NameYahoo, log)
	yahooClient := yahoo.NewClient(httpClient, cfg.Yahoo.BaseURL, log).WithEventRecorder(a.auditLog)

	opts := providers.Options{TTLs: providers.DefaultCacheTTLs(strategy.Data.CacheTTL)}
	if rc.Enabled() {
		opts.Cache = redis.NewCache(rc, "optincome")
	}
	breaker := providers.DefaultBreakerSettings()
	opts.Breaker = &breaker

	a.providers, err = providers.Build(strategy.Data, providers.Sources{Yahoo: yahooClient}, opts, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build providers: %w", err)
	}

	// 7. Create report writer
	a.reports = report.NewWriter(strategy.Output, log)

	return a, nil
}

// runStore returns the PostgreSQL repository, or an in-memory store when
// DATABASE_URL is empty. The store is created once per app.
func (a *app) runStore(ctx context.Context) (contracts.RunStore, error) {
	if a.store != nil {
		return a.store, nil
	}

	db, err := database.New(ctx, a.cfg)
	if errors.Is(err, database.ErrNotConfigured) {
		a.log.Warn("DATABASE_URL not set - run history kept in memory")
		a.store = audit.NewMemoryStore(memoryRunLimit)
		return a.store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	a.log.Info("Connected to database")

	a.store = audit.NewRepository(db.Pool, a.log)
	return a.store, nil
}

// orchestrator builds the pipeline. store may be nil (no persistence).
func (a *app) orchestrator(store contracts.RunStore) (*brain.Orchestrator, error) {
	return brain.NewOrchestrator(a.strategy, a.providers, a.auditLog, store, a.log)
}

// Close releases connections in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
