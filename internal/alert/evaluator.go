// Package alert decides when a price condition fires an alert.
package alert

import (
	"time"

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// DefaultNearMinPct is how close (percent over the all-time low) the
// current price must be to count as "near historical minimum".
const DefaultNearMinPct = 5.0

// DefaultMinSamples is how much history the near-minimum rule needs
// before the floor means anything; with one or two samples the current
// price trivially sits at the minimum.
const DefaultMinSamples = 3

// DefaultMaxLog bounds the global alert log.
const DefaultMaxLog = 200

// Evaluator constructs alert records from stats and wishlist targets.
// The zero value uses the defaults above.
type Evaluator struct {
	NearMinPct float64
	MinSamples int
}

// Evaluate applies the alert rules in priority order, first true wins:
// a set target met by the latest price, then proximity to the all-time
// low. Alerts are scoped to wishlisted products; a nil entry always
// yields nil. The returned alert has no ID; the caller assigns one
// before logging it.
func (e Evaluator) Evaluate(entry *tracker.WishlistEntry, st *tracker.Stats, latest tracker.Reading, now time.Time) *tracker.Alert {
	if entry == nil {
		return nil
	}

	if entry.TargetPrice != nil && latest.Price <= *entry.TargetPrice {
		target := *entry.TargetPrice
		return &tracker.Alert{
			ProductKey: latest.ProductKey,
			Title:      latest.Title,
			Price:      latest.Price,
			Currency:   latest.Currency,
			Reason:     tracker.ReasonTargetReached,
			Target:     &target,
			CreatedAt:  now,
		}
	}

	if st != nil && st.Samples >= e.minSamples() && st.OverMinPct <= e.nearMinPct() {
		return &tracker.Alert{
			ProductKey: latest.ProductKey,
			Title:      latest.Title,
			Price:      latest.Price,
			Currency:   latest.Currency,
			Reason:     tracker.ReasonNearMinimum,
			CreatedAt:  now,
		}
	}

	return nil
}

// AppendLog appends the alert to the log and truncates to the newest
// max entries, oldest first.
func AppendLog(log []tracker.Alert, a tracker.Alert, max int) []tracker.Alert {
	if max <= 0 {
		max = DefaultMaxLog
	}
	log = append(log, a)
	if len(log) > max {
		log = log[len(log)-max:]
	}
	return log
}

// Recent returns up to n alerts for the product key, most recent first.
func Recent(log []tracker.Alert, key string, n int) []tracker.Alert {
	out := make([]tracker.Alert, 0, n)
	for i := len(log) - 1; i >= 0 && len(out) < n; i-- {
		if key == "" || log[i].ProductKey == key {
			out = append(out, log[i])
		}
	}
	return out
}

func (e Evaluator) nearMinPct() float64 {
	if e.NearMinPct > 0 {
		return e.NearMinPct
	}
	return DefaultNearMinPct
}

func (e Evaluator) minSamples() int {
	if e.MinSamples > 0 {
		return e.MinSamples
	}
	return DefaultMinSamples
}
