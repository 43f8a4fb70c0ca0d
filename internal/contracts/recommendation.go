package contracts

import "time"

// Verdict is the final trade recommendation.
type Verdict string

const (
	VerdictYes        Verdict = "Yes"
	VerdictBorderline Verdict = "Borderline"
	VerdictNo         Verdict = "No"
)

// Priority orders verdicts for batch sorting (lower first).
func (v Verdict) Priority() int {
	switch v {
	case VerdictYes:
		return 0
	case VerdictBorderline:
		return 1
	case VerdictNo:
		return 2
	default:
		return 3
	}
}

// Recommendation terms.
const (
	TermMonthly   = "Monthly"
	TermShortTerm = "Short-Term"
)

// RecommendationVerdict is one (ticker, term) recommendation.
// Pointer fields are nil when no contract qualified.
type RecommendationVerdict struct {
	Ticker   string   `json:"ticker"`
	Strategy Strategy `json:"strategy"`
	Term     string   `json:"term"`
	Verdict  Verdict  `json:"recommend"`
	Reason   string   `json:"reason"`

	Spot       *float64   `json:"spot"`
	Strike     *float64   `json:"strike"`
	Expiration *time.Time `json:"expiration,omitempty"`
	Premium    *float64   `json:"premium"`
	Delta      *float64   `json:"delta"`
	DTE        *int       `json:"dte"`

	IVR       *float64 `json:"ivr"`
	IVRSource string   `json:"ivr_source,omitempty"`

	AnnualizedYield *float64 `json:"annualized_yield"`
	MaxProfit       *float64 `json:"max_profit"`
	// Breakeven is strike-premium for puts and spot-premium (downside) for calls.
	Breakeven    *float64 `json:"breakeven"`
	CashRequired *float64 `json:"cash_required,omitempty"`

	NearSupport        bool     `json:"near_support"`
	NearResistance     bool     `json:"near_resistance"`
	NearRoundNumber    bool     `json:"near_round_number"`
	BelowMinPrice      bool     `json:"below_min_price"`
	MinAcceptablePrice *float64 `json:"min_acceptable_price,omitempty"`
}

// YieldOrZero is the sort key used by batch ordering.
func (r RecommendationVerdict) YieldOrZero() float64 {
	if r.AnnualizedYield == nil {
		return 0
	}
	return *r.AnnualizedYield
}

// TickerSnapshot is everything the recommendation engines need for one ticker.
type TickerSnapshot struct {
	Ticker       string               `json:"ticker"`
	Candidates   []ScreeningCandidate `json:"candidates"`
	History      PriceHistory         `json:"-"`
	Technicals   Technicals           `json:"technicals"`
	EarningsDate *time.Time           `json:"earnings_date,omitempty"`
}
