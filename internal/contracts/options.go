package contracts

import "time"

// Strategy is the short-premium strategy a contract is screened for.
type Strategy string

const (
	StrategyPut  Strategy = "PUT"  // cash-secured put
	StrategyCall Strategy = "CALL" // covered call
)

// BucketName identifies an expiration slot.
type BucketName string

const (
	BucketCurrentWeek BucketName = "current_week"
	BucketNextWeek    BucketName = "next_week"
	BucketMonthly     BucketName = "monthly"
)

// DeltaSource records how a candidate's delta was obtained.
type DeltaSource string

const (
	DeltaProvided     DeltaSource = "provided"
	DeltaBlackScholes DeltaSource = "black_scholes"
	DeltaOTMFallback  DeltaSource = "otm_fallback"
)

// RawChainRow is one contract row as delivered by a chain source.
// Any field may be missing.
type RawChainRow struct {
	ContractSymbol    string `json:"contractSymbol"`
	Strike            Float  `json:"strike"`
	Bid               Float  `json:"bid"`
	Ask               Float  `json:"ask"`
	LastPrice         Float  `json:"lastPrice"`
	Volume            Float  `json:"volume"`
	OpenInterest      Float  `json:"openInterest"`
	ImpliedVolatility Float  `json:"impliedVolatility"`
	Delta             Float  `json:"delta"`
}

// OptionsChain holds both sides of one expiration.
type OptionsChain struct {
	Calls []RawChainRow `json:"calls"`
	Puts  []RawChainRow `json:"puts"`
}

// Side returns the rows relevant to a strategy.
func (c OptionsChain) Side(s Strategy) []RawChainRow {
	if s == StrategyPut {
		return c.Puts
	}
	return c.Calls
}

// ExpirationBucket is a named expiration slot. Expiration is nil when the
// slot could not be filled.
type ExpirationBucket struct {
	Name       BucketName `json:"name"`
	Label      string     `json:"label"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

// BucketSet holds the three buckets of one ticker.
// Invariant: present expirations are pairwise distinct.
type BucketSet struct {
	CurrentWeek ExpirationBucket `json:"current_week"`
	NextWeek    ExpirationBucket `json:"next_week"`
	Monthly     ExpirationBucket `json:"monthly"`
}

// All returns the buckets in selection order.
func (b BucketSet) All() []ExpirationBucket {
	return []ExpirationBucket{b.CurrentWeek, b.NextWeek, b.Monthly}
}

// ScreeningCandidate is a contract that survived screening.
// Created by the candidate builder, finished by the scorer, read-only afterwards.
type ScreeningCandidate struct {
	RunDate        time.Time  `json:"run_date"`
	Ticker         string     `json:"ticker"`
	Strategy       Strategy   `json:"strategy"`
	Bucket         BucketName `json:"bucket"`
	BucketLabel    string     `json:"bucket_label"`
	Expiration     time.Time  `json:"expiration"`
	ContractSymbol string     `json:"contract_symbol"`

	Spot              float64  `json:"spot"`
	Strike            float64  `json:"strike"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	Mid               float64  `json:"mid"`
	SpreadPct         float64  `json:"spread_pct"`
	Volume            int64    `json:"volume"`
	OpenInterest      int64    `json:"open_interest"`
	ImpliedVolatility *float64 `json:"implied_volatility"`

	Delta       float64     `json:"delta"`
	DeltaSource DeltaSource `json:"delta_source"`

	DTE             int      `json:"dte"`
	AnnualizedYield float64  `json:"annualized_yield"`
	Breakeven       float64  `json:"breakeven"`
	OTMPct          *float64 `json:"otm_pct"`

	EarningsDate         *time.Time `json:"earnings_date,omitempty"`
	EarningsBeforeExpiry bool       `json:"earnings_before_expiry"`

	MA20  float64 `json:"ma20"`
	MA50  float64 `json:"ma50"`
	RSI14 float64 `json:"rsi14"`
	HV20  float64 `json:"hv20"`

	Score     float64 `json:"score"`
	Rationale string  `json:"why_ranked_high"`
}

// HasDelta reports whether Delta carries a real estimate.
// otm_fallback candidates store 0.0 but have no delta.
func (c ScreeningCandidate) HasDelta() bool {
	return c.DeltaSource == DeltaProvided || c.DeltaSource == DeltaBlackScholes
}

// IV returns the implied volatility or 0 when unknown.
func (c ScreeningCandidate) IV() float64 {
	if c.ImpliedVolatility == nil {
		return 0
	}
	return *c.ImpliedVolatility
}

// ScreeningDecision is the per-row audit record emitted while screening.
type ScreeningDecision struct {
	Expiration        time.Time `json:"expiration"`
	Strategy          Strategy  `json:"option_type"`
	ContractSymbol    string    `json:"contractSymbol"`
	Strike            Float     `json:"strike"`
	Bid               float64   `json:"bid"`
	Ask               float64   `json:"ask"`
	LastPrice         Float     `json:"lastPrice"`
	Volume            int64     `json:"volume"`
	OpenInterest      int64     `json:"openInterest"`
	ImpliedVolatility Float     `json:"impliedVolatility"`
	Filtered          bool      `json:"filtered"`
	Reason            string    `json:"filter_reason"`
}

// Status returns "kept" or "filtered".
func (d ScreeningDecision) Status() string {
	if d.Filtered {
		return "filtered"
	}
	return "kept"
}
