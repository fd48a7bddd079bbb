// Package history implements dedup, throttling and truncation for
// per-product reading series.
package history

import (
	"math"
	"time"

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// Defaults used when a Ledger field is zero.
const (
	DefaultMaxEntries  = 120
	DefaultMinInterval = 6 * time.Hour
	DefaultEpsilon     = 1e-4
)

// Ledger decides whether a reading enters a series and enforces the
// retention bound. The zero value uses the defaults above.
type Ledger struct {
	// MaxEntries bounds the series length; oldest entries drop first.
	MaxEntries int
	// MinInterval forces an append once this much time has passed at an
	// unchanged price, keeping temporal coverage in the series.
	MinInterval time.Duration
	// Epsilon is the absolute price delta below which two readings are
	// considered identical.
	Epsilon float64
}

// ShouldAppend reports whether next belongs in the series given the
// most recent prior reading. Always true with no prior reading;
// otherwise true when the price moved by more than Epsilon or the
// minimum interval elapsed.
func (l Ledger) ShouldAppend(last *tracker.Reading, next tracker.Reading) bool {
	if last == nil {
		return true
	}
	if math.Abs(next.Price-last.Price) > l.epsilon() {
		return true
	}
	return next.CapturedAt.Sub(last.CapturedAt) >= l.minInterval()
}

// Append adds the reading and truncates to the newest MaxEntries. This
// is the sole mutation point for a history series and must run inside
// the caller's per-key read-modify-write cycle.
func (l Ledger) Append(series []tracker.Reading, r tracker.Reading) []tracker.Reading {
	series = append(series, r)
	if max := l.maxEntries(); len(series) > max {
		series = series[len(series)-max:]
	}
	return series
}

// Last returns the most recent reading, or nil for an empty series.
func Last(series []tracker.Reading) *tracker.Reading {
	if len(series) == 0 {
		return nil
	}
	return &series[len(series)-1]
}

func (l Ledger) maxEntries() int {
	if l.MaxEntries > 0 {
		return l.MaxEntries
	}
	return DefaultMaxEntries
}

func (l Ledger) minInterval() time.Duration {
	if l.MinInterval > 0 {
		return l.MinInterval
	}
	return DefaultMinInterval
}

func (l Ledger) epsilon() float64 {
	if l.Epsilon > 0 {
		return l.Epsilon
	}
	return DefaultEpsilon
}
