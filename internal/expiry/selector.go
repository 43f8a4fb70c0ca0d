// Package expiry picks the current-week, next-week and monthly expirations
// for a ticker.
package expiry

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/strategyconfig"
)

// Bucket labels.
const (
	LabelCurrentWeek = "Current Week"
	LabelNextWeek    = "Next Week"
	LabelMonthly     = "Monthly"

	suffixFallback = " (fallback)"
	suffixProxy    = " (proxy)"
)

// Windows holds the DTE thresholds for bucket selection.
type Windows struct {
	CurrentWeekMaxDays   int
	NextWeekMinDays      int
	NextWeekMaxDays      int
	MonthlyTargetMinDays int
	MonthlyTargetMaxDays int
}

// WindowsFromConfig maps the strategy config section.
func WindowsFromConfig(e strategyconfig.Expiry) Windows {
	return Windows{
		CurrentWeekMaxDays:   e.CurrentWeekMaxDays,
		NextWeekMinDays:      e.NextWeekMinDays,
		NextWeekMaxDays:      e.NextWeekMaxDays,
		MonthlyTargetMinDays: e.MonthlyTargetMinDays,
		MonthlyTargetMaxDays: e.MonthlyTargetMaxDays,
	}
}

// Select partitions expirations into the three buckets.
// Only expirations strictly after today are considered (no 0-DTE).
// The returned expirations are pairwise distinct or nil.
func Select(expirations []time.Time, today time.Time, w Windows) contracts.BucketSet {
	today = calendar.Truncate(today)
	future := futureDates(expirations, today)

	set := contracts.BucketSet{
		CurrentWeek: contracts.ExpirationBucket{Name: contracts.BucketCurrentWeek, Label: LabelCurrentWeek},
		NextWeek:    contracts.ExpirationBucket{Name: contracts.BucketNextWeek, Label: LabelNextWeek},
		Monthly:     contracts.ExpirationBucket{Name: contracts.BucketMonthly, Label: LabelMonthly},
	}
	if len(future) == 0 {
		return set
	}

	// 1. current_week
	current := firstInRange(future, today, 0, w.CurrentWeekMaxDays)
	if current == nil {
		current = dateRef(future[0])
		set.CurrentWeek.Label = LabelCurrentWeek + suffixFallback
	}
	set.CurrentWeek.Expiration = current

	// 2. next_week
	next := firstInRange(future, today, w.NextWeekMinDays, w.NextWeekMaxDays)
	if next == nil {
		for _, d := range future {
			if d.After(*current) {
				next = dateRef(d)
				break
			}
		}
		if next != nil {
			set.NextWeek.Label = LabelNextWeek + suffixFallback
		}
	}
	if next != nil && next.Equal(*current) {
		next = nil
	}
	set.NextWeek.Expiration = next

	// 3. monthly: 3번째 금요일 우선, 없으면 DTE 윈도우 중앙값에 가장 가까운 날짜
	monthly, proxied := pickMonthly(future, today, w)
	if monthly != nil && proxied {
		set.Monthly.Label = LabelMonthly + suffixProxy
	}
	if monthly != nil && (monthly.Equal(*current) || (next != nil && monthly.Equal(*next))) {
		monthly = nil
	}
	set.Monthly.Expiration = monthly

	return set
}

func pickMonthly(future []time.Time, today time.Time, w Windows) (*time.Time, bool) {
	var window []time.Time
	for _, d := range future {
		dte := calendar.DaysBetween(today, d)
		if dte < w.MonthlyTargetMinDays || dte > w.MonthlyTargetMaxDays {
			continue
		}
		if calendar.IsThirdFriday(d) {
			return dateRef(d), false
		}
		window = append(window, d)
	}

	if len(window) == 0 {
		return dateRef(future[len(future)-1]), true
	}

	target := float64(w.MonthlyTargetMinDays+w.MonthlyTargetMaxDays) / 2
	best := window[0]
	bestDist := math.Abs(float64(calendar.DaysBetween(today, best)) - target)
	for _, d := range window[1:] {
		dist := math.Abs(float64(calendar.DaysBetween(today, d)) - target)
		if dist < bestDist { // 동률이면 더 이른 날짜 유지
			best, bestDist = d, dist
		}
	}
	return dateRef(best), true
}

func firstInRange(future []time.Time, today time.Time, minDays, maxDays int) *time.Time {
	for _, d := range future {
		dte := calendar.DaysBetween(today, d)
		if dte >= minDays && dte <= maxDays {
			return dateRef(d)
		}
	}
	return nil
}

// futureDates returns the sorted, de-duplicated dates after today.
func futureDates(expirations []time.Time, today time.Time) []time.Time {
	seen := make(map[time.Time]bool, len(expirations))
	out := make([]time.Time, 0, len(expirations))
	for _, e := range expirations {
		d := calendar.Truncate(e)
		if !d.After(today) || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func dateRef(t time.Time) *time.Time {
	return &t
}
