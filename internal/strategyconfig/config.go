package strategyconfig

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config는 옵션 인컴 스크리너의 전체 전략 설정
// ⭐ SSOT: 스크리닝/추천 임계값은 이 구조체에서만 정의
type Config struct {
	Meta           Meta           `yaml:"meta" json:"meta"`
	Tickers        Tickers        `yaml:"tickers" json:"tickers"`
	Expiry         Expiry         `yaml:"expiry" json:"expiry"`
	Screening      Screening      `yaml:"screening" json:"screening"`
	Recommendation Recommendation `yaml:"recommendation" json:"recommendation"`
	Data           Data           `yaml:"data" json:"data"`
	Output         Output         `yaml:"output" json:"output"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"` // "today" 계산 기준 (IANA)
}

// Tickers lists the underlyings per strategy.
type Tickers struct {
	CoveredCall    []string `yaml:"covered_call" json:"covered_call"`
	CashSecuredPut []string `yaml:"cash_secured_put" json:"cash_secured_put"`
}

// Expiry holds the DTE windows of the three buckets.
type Expiry struct {
	CurrentWeekMaxDays   int `yaml:"current_week_max_days" json:"current_week_max_days"`
	NextWeekMinDays      int `yaml:"next_week_min_days" json:"next_week_min_days"`
	NextWeekMaxDays      int `yaml:"next_week_max_days" json:"next_week_max_days"`
	MonthlyTargetMinDays int `yaml:"monthly_target_min_days" json:"monthly_target_min_days"`
	MonthlyTargetMaxDays int `yaml:"monthly_target_max_days" json:"monthly_target_max_days"`
}

// Screening 후보 필터 + 점수 설정
// nil 포인터 필드는 "필터 없음"
type Screening struct {
	MaxCandidatesPerBucket int      `yaml:"max_candidates_per_ticker_per_bucket" json:"max_candidates_per_ticker_per_bucket"`
	Delta                  Bands    `yaml:"delta" json:"delta"`
	OTMPct                 Bands    `yaml:"otm_pct" json:"otm_pct"`
	MinOpenInterest        *int     `yaml:"min_open_interest" json:"min_open_interest"`
	MinVolume              *int     `yaml:"min_volume" json:"min_volume"`
	MaxSpreadPct           *float64 `yaml:"max_spread_pct" json:"max_spread_pct"`
	MinAnnualizedYield     float64  `yaml:"min_annualized_yield" json:"min_annualized_yield"`
	RiskFreeRate           *float64 `yaml:"risk_free_rate" json:"risk_free_rate"` // 설정 시 Black-Scholes delta 사용
	EarningsRiskPenalty    float64  `yaml:"earnings_risk_penalty" json:"earnings_risk_penalty"`
}

// Bands are inclusive per-strategy ranges.
type Bands struct {
	PutMin  float64 `yaml:"put_min" json:"put_min"`
	PutMax  float64 `yaml:"put_max" json:"put_max"`
	CallMin float64 `yaml:"call_min" json:"call_min"`
	CallMax float64 `yaml:"call_max" json:"call_max"`
}

// Recommendation 2차 추천 엔진 설정
type Recommendation struct {
	Put  PutRecommendation  `yaml:"put" json:"put"`
	Call CallRecommendation `yaml:"call" json:"call"`
}

// PutRecommendation configures the cash-secured put engine.
type PutRecommendation struct {
	Enabled            bool    `yaml:"enabled" json:"enabled"`
	MaxRecommendations int     `yaml:"max_recommendations" json:"max_recommendations"`
	IVRMin             float64 `yaml:"ivr_min" json:"ivr_min"`
	EarningsBufferDays int     `yaml:"earnings_buffer_days" json:"earnings_buffer_days"`
	DeltaMin           float64 `yaml:"delta_min" json:"delta_min"` // |delta|
	DeltaMax           float64 `yaml:"delta_max" json:"delta_max"`
	UseSupportFilter   bool    `yaml:"use_support_filter" json:"use_support_filter"`
	SupportPctBuffer   float64 `yaml:"support_pct_buffer" json:"support_pct_buffer"`
	// 지지선 대용: 현재가 대비 최소 OTM 비율
	MinOTMPctAsSupport float64 `yaml:"min_otm_pct_as_support" json:"min_otm_pct_as_support"`
}

// CallRecommendation configures the covered call engine.
type CallRecommendation struct {
	Enabled             bool               `yaml:"enabled" json:"enabled"`
	MaxRecommendations  int                `yaml:"max_recommendations" json:"max_recommendations"`
	IVRMin              float64            `yaml:"ivr_min" json:"ivr_min"`
	EarningsBufferDays  int                `yaml:"earnings_buffer_days" json:"earnings_buffer_days"`
	DeltaMin            float64            `yaml:"delta_min" json:"delta_min"`
	DeltaMax            float64            `yaml:"delta_max" json:"delta_max"`
	ShortTermDTEMax     int                `yaml:"short_term_dte_max" json:"short_term_dte_max"`
	ResistancePctBuffer float64            `yaml:"resistance_pct_buffer" json:"resistance_pct_buffer"`
	MinAcceptablePrices map[string]float64 `yaml:"min_acceptable_sale_prices" json:"min_acceptable_sale_prices"`
}

// MinAcceptablePrice looks up the per-ticker floor.
// Keys are upper-cased by Parse, so a single lookup suffices.
func (c CallRecommendation) MinAcceptablePrice(ticker string) *float64 {
	v, ok := c.MinAcceptablePrices[normalizeTicker(ticker)]
	if !ok {
		return nil
	}
	return &v
}

// normalizeMinPrices upper-cases the ticker keys of MinAcceptablePrices.
// 대소문자만 다른 중복 키는 거부 (어느 값을 쓸지 결정할 수 없음)
func (c *CallRecommendation) normalizeMinPrices() error {
	if len(c.MinAcceptablePrices) == 0 {
		return nil
	}

	keys := make([]string, 0, len(c.MinAcceptablePrices))
	for k := range c.MinAcceptablePrices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		ticker := normalizeTicker(k)
		if _, dup := out[ticker]; dup {
			return ValidationError{
				Field:   "recommendation.call.min_acceptable_sale_prices",
				Message: fmt.Sprintf("duplicate ticker %s (keys differ only by case)", ticker),
			}
		}
		out[ticker] = c.MinAcceptablePrices[k]
	}
	c.MinAcceptablePrices = out
	return nil
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// Data 데이터 소스 설정
type Data struct {
	OptionsProvider      string        `yaml:"options_provider" json:"options_provider"`
	MarketProvider       string        `yaml:"market_provider" json:"market_provider"`
	FundamentalsProvider string        `yaml:"fundamentals_provider" json:"fundamentals_provider"`
	PriceHistoryPeriod   string        `yaml:"price_history_period" json:"price_history_period"`
	PriceHistoryInterval string        `yaml:"price_history_interval" json:"price_history_interval"`
	AuditDir             string        `yaml:"audit_dir" json:"audit_dir"`
	CacheTTL             time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// Output 리포트 출력 설정
type Output struct {
	Dir        string `yaml:"dir" json:"dir"`
	WriteCSV   bool   `yaml:"write_csv" json:"write_csv"`
	WriteHTML  bool   `yaml:"write_html" json:"write_html"`
	Disclaimer string `yaml:"disclaimer" json:"disclaimer"`
}

// RunSnapshot pins the exact configuration a run used.
type RunSnapshot struct {
	RunID      string    `json:"run_id"`
	StrategyID string    `json:"strategy_id"`
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	CreatedAt  time.Time `json:"created_at"`
}

// AllTickers merges both lists upper-cased, preserving first-seen order.
func (c *Config) AllTickers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{c.Tickers.CoveredCall, c.Tickers.CashSecuredPut} {
		for _, t := range list {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Location resolves Meta.Timezone, defaulting to America/New_York.
func (c *Config) Location() *time.Location {
	name := c.Meta.Timezone
	if name == "" {
		name = "America/New_York"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
