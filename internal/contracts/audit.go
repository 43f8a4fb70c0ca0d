package contracts

import "time"

// Provider event kinds.
const (
	EventPriceHistory       = "price_history"
	EventOptionsExpirations = "options_expirations"
	EventOptionsChain       = "options_chain"
	EventEarningsLookup     = "earnings_lookup"
	EventScreenResult       = "screen_result"
)

// ProviderEvent is one row of the per-ticker data trail.
// Zero-valued fields are written as empty cells.
type ProviderEvent struct {
	Event    string
	Period   string
	Interval string

	HistoryRows  *int
	HistoryStart *time.Time
	HistoryEnd   *time.Time

	Expiration      *time.Time
	ExpirationValue *time.Time
	OptionType      Strategy

	ContractSymbol    string
	Strike            Float
	Bid               Float
	Ask               Float
	LastPrice         Float
	Volume            Float
	OpenInterest      Float
	ImpliedVolatility Float

	EarningsDate *time.Time
	Status       string
	Message      string

	Filtered     *bool
	FilterReason string
}

// EventRecorder receives provider events. Implementations must not fail the caller.
type EventRecorder interface {
	RecordEvent(ticker string, event ProviderEvent)
}

// ScreenEvent converts a screening decision into a trail row.
func ScreenEvent(d ScreeningDecision) ProviderEvent {
	exp := d.Expiration
	filtered := d.Filtered
	return ProviderEvent{
		Event:             EventScreenResult,
		Expiration:        &exp,
		OptionType:        d.Strategy,
		ContractSymbol:    d.ContractSymbol,
		Strike:            d.Strike,
		Bid:               F(d.Bid),
		Ask:               F(d.Ask),
		LastPrice:         d.LastPrice,
		Volume:            F(float64(d.Volume)),
		OpenInterest:      F(float64(d.OpenInterest)),
		ImpliedVolatility: d.ImpliedVolatility,
		Status:            d.Status(),
		Filtered:          &filtered,
		FilterReason:      d.Reason,
	}
}
