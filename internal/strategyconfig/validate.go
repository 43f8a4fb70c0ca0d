package strategyconfig

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Tickers ===
	if len(cfg.AllTickers()) == 0 {
		return ValidationError{"tickers", "at least one covered_call or cash_secured_put ticker required"}
	}

	// === Expiry ===
	e := cfg.Expiry
	if e.CurrentWeekMaxDays < 0 {
		return ValidationError{"expiry.current_week_max_days", "must be >= 0"}
	}
	if e.NextWeekMinDays > e.NextWeekMaxDays {
		return ValidationError{"expiry.next_week", "min_days must be <= max_days"}
	}
	if e.MonthlyTargetMinDays > e.MonthlyTargetMaxDays {
		return ValidationError{"expiry.monthly_target", "min_days must be <= max_days"}
	}

	// === Screening ===
	s := cfg.Screening
	if s.MaxCandidatesPerBucket <= 0 {
		return ValidationError{"screening.max_candidates_per_ticker_per_bucket", "must be > 0"}
	}
	if s.Delta.PutMin > s.Delta.PutMax || s.Delta.PutMax > 0 {
		return ValidationError{"screening.delta.put", "put band must be negative with min <= max"}
	}
	if s.Delta.CallMin > s.Delta.CallMax || s.Delta.CallMin < 0 {
		return ValidationError{"screening.delta.call", "call band must be positive with min <= max"}
	}
	if s.OTMPct.PutMin > s.OTMPct.PutMax {
		return ValidationError{"screening.otm_pct.put", "min must be <= max"}
	}
	if s.OTMPct.CallMin > s.OTMPct.CallMax {
		return ValidationError{"screening.otm_pct.call", "min must be <= max"}
	}
	if s.MinOpenInterest != nil && *s.MinOpenInterest < 0 {
		return ValidationError{"screening.min_open_interest", "must be >= 0"}
	}
	if s.MinVolume != nil && *s.MinVolume < 0 {
		return ValidationError{"screening.min_volume", "must be >= 0"}
	}
	if s.MaxSpreadPct != nil && *s.MaxSpreadPct <= 0 {
		return ValidationError{"screening.max_spread_pct", "must be > 0"}
	}
	if s.MinAnnualizedYield < 0 {
		return ValidationError{"screening.min_annualized_yield", "must be >= 0"}
	}
	if err := validatePctRange(s.EarningsRiskPenalty, "screening.earnings_risk_penalty"); err != nil {
		return err
	}

	// === Recommendation ===
	p := cfg.Recommendation.Put
	if err := validateAbsDeltaBand(p.DeltaMin, p.DeltaMax, "recommendation.put"); err != nil {
		return err
	}
	if err := validateIVR(p.IVRMin, "recommendation.put.ivr_min"); err != nil {
		return err
	}
	if p.Enabled && p.MaxRecommendations <= 0 {
		return ValidationError{"recommendation.put.max_recommendations", "must be > 0"}
	}
	if p.EarningsBufferDays < 0 {
		return ValidationError{"recommendation.put.earnings_buffer_days", "must be >= 0"}
	}
	if err := validatePctRange(p.SupportPctBuffer, "recommendation.put.support_pct_buffer"); err != nil {
		return err
	}

	c := cfg.Recommendation.Call
	if err := validateAbsDeltaBand(c.DeltaMin, c.DeltaMax, "recommendation.call"); err != nil {
		return err
	}
	if err := validateIVR(c.IVRMin, "recommendation.call.ivr_min"); err != nil {
		return err
	}
	if c.Enabled && c.MaxRecommendations <= 0 {
		return ValidationError{"recommendation.call.max_recommendations", "must be > 0"}
	}
	if c.ShortTermDTEMax <= 0 {
		return ValidationError{"recommendation.call.short_term_dte_max", "must be > 0"}
	}
	if err := validatePctRange(c.ResistancePctBuffer, "recommendation.call.resistance_pct_buffer"); err != nil {
		return err
	}
	tickers := make([]string, 0, len(c.MinAcceptablePrices))
	for ticker := range c.MinAcceptablePrices {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	for _, ticker := range tickers {
		if ticker != normalizeTicker(ticker) {
			return ValidationError{
				Field:   fmt.Sprintf("recommendation.call.min_acceptable_sale_prices[%s]", ticker),
				Message: "ticker must be upper-case",
			}
		}
		if price := c.MinAcceptablePrices[ticker]; price <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("recommendation.call.min_acceptable_sale_prices[%s]", ticker),
				Message: "must be > 0",
			}
		}
	}

	// === Data ===
	for field, name := range map[string]string{
		"data.options_provider":      cfg.Data.OptionsProvider,
		"data.market_provider":       cfg.Data.MarketProvider,
		"data.fundamentals_provider": cfg.Data.FundamentalsProvider,
	} {
		if strings.TrimSpace(name) == "" {
			return ValidationError{field, "required"}
		}
	}
	if cfg.Data.CacheTTL < 0 {
		return ValidationError{"data.cache_ttl", "must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// risk_free_rate 미설정 시 BS delta 계산 불가
	if cfg.Screening.RiskFreeRate == nil {
		warnings = append(warnings, Warning{
			Code:    "NO_RISK_FREE_RATE",
			Message: "risk_free_rate unset: contracts without a provided delta fall back to OTM% bands",
		})
	}

	if cfg.Screening.MaxSpreadPct == nil {
		warnings = append(warnings, Warning{
			Code:    "NO_SPREAD_FILTER",
			Message: "max_spread_pct unset: wide markets are only penalised through the liquidity score",
		})
	}

	if cfg.Screening.MinOpenInterest == nil && cfg.Screening.MinVolume == nil {
		warnings = append(warnings, Warning{
			Code:    "NO_LIQUIDITY_FILTER",
			Message: "neither min_open_interest nor min_volume set",
		})
	}

	// 추천 delta 밴드가 스크리닝 밴드와 겹치지 않으면 추천이 항상 No
	s := cfg.Screening.Delta
	if cfg.Recommendation.Put.DeltaMax < -s.PutMax || cfg.Recommendation.Put.DeltaMin > -s.PutMin {
		warnings = append(warnings, Warning{
			Code:    "PUT_DELTA_BANDS_DISJOINT",
			Message: "recommendation.put delta band does not overlap screening.delta put band",
		})
	}
	if cfg.Recommendation.Call.DeltaMax < s.CallMin || cfg.Recommendation.Call.DeltaMin > s.CallMax {
		warnings = append(warnings, Warning{
			Code:    "CALL_DELTA_BANDS_DISJOINT",
			Message: "recommendation.call delta band does not overlap screening.delta call band",
		})
	}

	if cfg.Recommendation.Call.ShortTermDTEMax < cfg.Expiry.NextWeekMaxDays {
		warnings = append(warnings, Warning{
			Code:    "SHORT_TERM_DTE_NARROW",
			Message: "short_term_dte_max below next_week_max_days: some next-week calls are ignored",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateAbsDeltaBand(min, max float64, field string) error {
	if min < 0 || max > 1 || min > max {
		return ValidationError{field + ".delta", "|delta| band must satisfy 0 <= min <= max <= 1"}
	}
	return nil
}

func validateIVR(v float64, field string) error {
	if v < 0 || v > 100 {
		return ValidationError{field, "must be in range [0, 100]"}
	}
	return nil
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
