package signals

import (
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/screening"
)

// IVR proxy source notes
const (
	IVRSourceOptionIV     = "proxy: option IV vs period HV range"
	IVRSourceCurrentHV    = "proxy: current HV vs period HV range (option IV unavailable)"
	IVRInsufficientPrices = "insufficient price history for IVR proxy"
	IVRInsufficientHV     = "insufficient HV data for IVR proxy"
	IVRFlatRange          = "HV range too flat for IVR proxy"
)

const (
	minIVRObservations = 25
	minHVObservations  = 5
	hvWindow           = 20
)

// IVRResult is the proxy rank (0-100, 1 decimal) or nil with the reason in Source.
type IVRResult struct {
	Value  *float64
	Source string
}

// Available reports whether a rank was computed.
func (r IVRResult) Available() bool { return r.Value != nil }

// IVRankProxy ranks currentIV (or the latest HV when currentIV <= 0) inside the
// rolling 20-day HV range of the supplied history.
func IVRankProxy(history contracts.PriceHistory, currentIV float64) IVRResult {
	if len(history) < minIVRObservations {
		return IVRResult{Source: IVRInsufficientPrices}
	}

	hv := rollingHV(dailyReturns(history.Closes()), hvWindow)
	if len(hv) < minHVObservations {
		return IVRResult{Source: IVRInsufficientHV}
	}

	low, high := hv[0], hv[0]
	for _, v := range hv[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	if high <= low || high < 1e-6 {
		return IVRResult{Source: IVRFlatRange}
	}

	current, source := currentIV, IVRSourceOptionIV
	if currentIV <= 0 {
		current, source = hv[len(hv)-1], IVRSourceCurrentHV
	}

	rank := (current - low) / (high - low) * 100
	if rank < 0 {
		rank = 0
	} else if rank > 100 {
		rank = 100
	}
	rank = screening.Round(rank, 1)
	return IVRResult{Value: &rank, Source: source}
}
