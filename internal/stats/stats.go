// Package stats computes summary statistics over a reading series.
package stats

import "github.com/JakeFAU/pricewatch/internal/tracker"

// Default thresholds for the "too much" verdict. The current price is
// flagged when it is materially above the historical floor or
// materially above the running mean, whichever trips first.
const (
	TooMuchOverMinPct = 15.0
	TooMuchOverAvgPct = 10.0
)

// Engine computes stats with configurable verdict thresholds. The zero
// value uses the defaults.
type Engine struct {
	OverMinPct float64
	OverAvgPct float64
}

// Compute derives Stats from a history series, oldest first. Returns
// nil for an empty series. The mean is a simple arithmetic mean with no
// time weighting; current is the price of the most recent reading.
func Compute(series []tracker.Reading) *tracker.Stats {
	return Engine{}.Compute(series)
}

func (e Engine) Compute(series []tracker.Reading) *tracker.Stats {
	if len(series) == 0 {
		return nil
	}

	min := series[0].Price
	max := series[0].Price
	sum := 0.0
	for _, r := range series {
		if r.Price < min {
			min = r.Price
		}
		if r.Price > max {
			max = r.Price
		}
		sum += r.Price
	}

	current := series[len(series)-1].Price
	avg := sum / float64(len(series))

	st := &tracker.Stats{
		Current: current,
		Min:     min,
		Max:     max,
		Avg:     avg,
		Samples: len(series),
	}
	if min != 0 {
		st.OverMinPct = (current - min) / min * 100
	}
	if avg != 0 {
		st.OverAvgPct = (current - avg) / avg * 100
	}
	overMin := e.OverMinPct
	if overMin <= 0 {
		overMin = TooMuchOverMinPct
	}
	overAvg := e.OverAvgPct
	if overAvg <= 0 {
		overAvg = TooMuchOverAvgPct
	}
	st.TooMuch = st.OverMinPct >= overMin || st.OverAvgPct >= overAvg
	return st
}
