// Package recommend gates the best screened contract per ticker and term into
// a Yes / Borderline / No verdict.
package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/screening"
)

// SortVerdicts orders by verdict priority, then annualised yield descending.
// Equal keys keep input order.
func SortVerdicts(v []contracts.RecommendationVerdict) {
	sort.SliceStable(v, func(i, j int) bool {
		pi, pj := v[i].Verdict.Priority(), v[j].Verdict.Priority()
		if pi != pj {
			return pi < pj
		}
		return v[i].YieldOrZero() > v[j].YieldOrZero()
	})
}

// truncate keeps at most n records (n <= 0 keeps none)
func truncate(v []contracts.RecommendationVerdict, n int) []contracts.RecommendationVerdict {
	if n <= 0 {
		return []contracts.RecommendationVerdict{}
	}
	if len(v) > n {
		return v[:n]
	}
	return v
}

// countVerdicts is logged after each batch
func countVerdicts(v []contracts.RecommendationVerdict) map[string]int {
	out := map[string]int{}
	for _, r := range v {
		out[string(r.Verdict)]++
	}
	return out
}

// verdictFrom picks No on any hard fail, Borderline on any soft fail.
func verdictFrom(hardFails, softFails []string) (contracts.Verdict, string, bool) {
	switch {
	case len(hardFails) > 0:
		return contracts.VerdictNo, strings.Join(hardFails, "; "), true
	case len(softFails) > 0:
		return contracts.VerdictBorderline, strings.Join(softFails, "; "), true
	default:
		return contracts.VerdictYes, "", false
	}
}

// absDeltaWithin treats an unresolved delta as outside every band.
func absDeltaWithin(c contracts.ScreeningCandidate, lo, hi float64) bool {
	if !c.HasDelta() {
		return false
	}
	d := math.Abs(c.Delta)
	return d >= lo && d <= hi
}

// firstIV is the first positive implied volatility in the pool, or 0.
func firstIV(pool []contracts.ScreeningCandidate) float64 {
	for _, c := range pool {
		if iv := c.IV(); iv > 0 {
			return iv
		}
	}
	return 0
}

func ptr[T any](v T) *T { return &v }

func round2(v float64) float64 { return screening.Round(v, 2) }
func round3(v float64) float64 { return screening.Round(v, 3) }

func absf(v float64) float64 { return math.Abs(v) }

func ivrBelowMessage(ivr, threshold float64) string {
	return fmt.Sprintf("IVR %.0f%% below %.0f%% threshold", ivr, threshold)
}

func noDeltaMessage(lo, hi float64) string {
	return fmt.Sprintf("no strike with |delta| %.2f-%.2f", lo, hi)
}

func joinReasons(reasons []string) string {
	return strings.Join(reasons, "; ")
}
