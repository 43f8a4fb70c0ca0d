// Package selection scores screening candidates and keeps the best per group.
package selection

import (
	"fmt"
	"math"

	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/screening"
	"github.com/wonny/optincome/internal/strategyconfig"
	"github.com/wonny/optincome/pkg/logger"
)

// Scorer assigns the composite desirability score
// ⭐ SSOT: 점수 산식은 여기서만
type Scorer struct {
	config ScorerConfig
	logger *logger.Logger
}

// WeightConfig defines sub-score weights for the composite score
type WeightConfig struct {
	Income    float64 // 수익률 (기본: 0.40)
	DeltaFit  float64 // 델타 적합도 (기본: 0.25)
	Trend     float64 // 추세 적합도 (기본: 0.20)
	Liquidity float64 // 유동성 (기본: 0.15)
}

// ScorerConfig holds weights and the thresholds the sub-scores read
type ScorerConfig struct {
	Weights             WeightConfig
	MaxSpreadPct        *float64 // nil: spread component fixed at 0.5
	EarningsRiskPenalty float64  // fraction removed when earnings fall before expiry
}

const (
	fallbackDeltaFit  = 0.45
	putDeltaTarget    = -0.20
	callDeltaTarget   = 0.20
	deltaFitWidth     = 0.25
	trendBase         = 0.55
	overboughtRSI     = 75.0
	oiSaturation      = 2000.0
	volumeSaturation  = 500.0
	unsetSpreadFactor = 0.5
)

// DefaultWeights returns the standard weighting
func DefaultWeights() WeightConfig {
	return WeightConfig{Income: 0.40, DeltaFit: 0.25, Trend: 0.20, Liquidity: 0.15}
}

// ScorerConfigFromStrategy maps the strategy config section
func ScorerConfigFromStrategy(s strategyconfig.Screening) ScorerConfig {
	return ScorerConfig{
		Weights:             DefaultWeights(),
		MaxSpreadPct:        s.MaxSpreadPct,
		EarningsRiskPenalty: s.EarningsRiskPenalty,
	}
}

// NewScorer creates a new scorer
func NewScorer(config ScorerConfig, log *logger.Logger) *Scorer {
	return &Scorer{config: config, logger: log}
}

// Score returns the composite score in [0,1] (4 places) and its rationale.
func (s *Scorer) Score(c contracts.ScreeningCandidate, tech contracts.Technicals) (float64, string) {
	income := incomeScore(c.AnnualizedYield)

	deltaFit, deltaReason := fallbackDeltaFit, "delta fallback"
	if c.HasDelta() {
		target := callDeltaTarget
		if c.Strategy == contracts.StrategyPut {
			target = putDeltaTarget
		}
		deltaFit = clamp01(1 - math.Abs(c.Delta-target)/deltaFitWidth)
		deltaReason = fmt.Sprintf("delta %.2f", c.Delta)
	}

	spot := c.Spot
	if spot <= 0 {
		spot = tech.Spot
	}
	trend, trendReason := trendScore(c.Strategy, spot, tech)

	liquidity := s.liquidityScore(c)

	w := s.config.Weights
	score := w.Income*income + w.DeltaFit*deltaFit + w.Trend*trend + w.Liquidity*liquidity
	if c.EarningsBeforeExpiry {
		score *= 1 - s.config.EarningsRiskPenalty
	}
	score = screening.Round(clamp01(score), 4)

	why := fmt.Sprintf("income=%.2f%%, %s, %s, spread=%.2f%%, OI=%d, vol=%d",
		c.AnnualizedYield*100, deltaReason, trendReason, c.SpreadPct*100, c.OpenInterest, c.Volume)
	if c.EarningsBeforeExpiry {
		why += ", earnings-risk penalty applied"
	}

	return score, why
}

// ScoreAll returns scored copies of the candidates
func (s *Scorer) ScoreAll(cands []contracts.ScreeningCandidate, tech contracts.Technicals) []contracts.ScreeningCandidate {
	out := make([]contracts.ScreeningCandidate, len(cands))
	for i, c := range cands {
		c.Score, c.Rationale = s.Score(c, tech)
		out[i] = c
	}
	return out
}

// incomeScore is log-scaled so that 100% annualised yield maps to 1.0
func incomeScore(annYield float64) float64 {
	if annYield <= 0 {
		return 0
	}
	return clamp01(math.Log1p(annYield) / math.Ln2)
}

func trendScore(strategy contracts.Strategy, spot float64, tech contracts.Technicals) (float64, string) {
	trend := trendBase

	if strategy == contracts.StrategyPut {
		if spot > tech.MA20 {
			trend += 0.20
		}
		if spot > tech.MA50 {
			trend += 0.20
		}
		// 과매수: 풋 만기 소멸 확신도 하락
		if tech.RSI14 > overboughtRSI {
			trend -= 0.20
		}
		return clamp01(trend), "bullish/neutral alignment"
	}

	trend += signedStep(spot, tech.MA20, 0.15)
	trend += signedStep(spot, tech.MA50, 0.15)
	// 과매수: 콜 행사(call-away) 위험 증가
	if tech.RSI14 > overboughtRSI {
		trend -= 0.20
	}
	return clamp01(trend), "income-harvest trend fit"
}

// signedStep is +step above the average, -step below, 0 when equal
func signedStep(spot, avg, step float64) float64 {
	switch {
	case spot > avg:
		return step
	case spot < avg:
		return -step
	default:
		return 0
	}
}

func (s *Scorer) liquidityScore(c contracts.ScreeningCandidate) float64 {
	spreadComponent := unsetSpreadFactor
	if s.config.MaxSpreadPct != nil {
		spreadComponent = clamp01(1 - c.SpreadPct/math.Max(*s.config.MaxSpreadPct, 1e-6))
	}
	oiComponent := clamp01(float64(c.OpenInterest) / oiSaturation)
	volComponent := clamp01(float64(c.Volume) / volumeSaturation)

	return 0.5*spreadComponent + 0.25*oiComponent + 0.25*volComponent
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
