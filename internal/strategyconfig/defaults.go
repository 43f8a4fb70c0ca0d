package strategyconfig

import "time"

// DefaultDisclaimer is printed with every report.
const DefaultDisclaimer = "Educational screening only - not financial advice. No guaranteed returns. " +
	"Options involve assignment risk, gap risk, earnings/event risk, liquidity risk, and tail risk."

// Default returns the documented defaults. Load decodes YAML over this value,
// so keys absent from a file keep these settings.
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "options_income_v1",
			Version:    "1",
			Timezone:   "America/New_York",
		},
		Tickers: Tickers{
			CoveredCall:    []string{"SPY", "QQQ", "MSFT", "AAPL"},
			CashSecuredPut: []string{"SPY", "QQQ", "MSFT", "AAPL"},
		},
		Expiry: Expiry{
			CurrentWeekMaxDays:   7,
			NextWeekMinDays:      8,
			NextWeekMaxDays:      14,
			MonthlyTargetMinDays: 30,
			MonthlyTargetMaxDays: 45,
		},
		Screening: Screening{
			MaxCandidatesPerBucket: 5,
			Delta:                  Bands{PutMin: -0.35, PutMax: -0.15, CallMin: 0.15, CallMax: 0.35},
			OTMPct:                 Bands{PutMin: 0.05, PutMax: 0.15, CallMin: 0.05, CallMax: 0.15},
			MinAnnualizedYield:     0.12,
			EarningsRiskPenalty:    0.20,
		},
		Recommendation: Recommendation{
			Put: PutRecommendation{
				Enabled:            true,
				MaxRecommendations: 10,
				IVRMin:             30,
				EarningsBufferDays: 7,
				DeltaMin:           0.10,
				DeltaMax:           0.25,
				UseSupportFilter:   true,
				SupportPctBuffer:   0.02,
				MinOTMPctAsSupport: 0.05,
			},
			Call: CallRecommendation{
				Enabled:             true,
				MaxRecommendations:  20,
				IVRMin:              30,
				EarningsBufferDays:  7,
				DeltaMin:            0.10,
				DeltaMax:            0.25,
				ShortTermDTEMax:     16,
				ResistancePctBuffer: 0.02,
				MinAcceptablePrices: map[string]float64{},
			},
		},
		Data: Data{
			OptionsProvider:      "yahoo",
			MarketProvider:       "yahoo",
			FundamentalsProvider: "yahoo",
			PriceHistoryPeriod:   "6mo",
			PriceHistoryInterval: "1d",
			AuditDir:             "./logs/ticker_data",
			CacheTTL:             10 * time.Minute,
		},
		Output: Output{
			Dir:        "./reports",
			WriteCSV:   true,
			WriteHTML:  true,
			Disclaimer: DefaultDisclaimer,
		},
	}
}
