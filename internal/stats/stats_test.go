package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

func series(prices ...float64) []tracker.Reading {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]tracker.Reading, 0, len(prices))
	for i, p := range prices {
		out = append(out, tracker.Reading{
			ProductKey: "shop.example.com/widget",
			Price:      p,
			Currency:   "EUR",
			CapturedAt: base.Add(time.Duration(i) * 7 * time.Hour),
		})
	}
	return out
}

func TestComputeEmpty(t *testing.T) {
	t.Parallel()

	require.Nil(t, Compute(nil))
	require.Nil(t, Compute([]tracker.Reading{}))
}

func TestComputeThreeSamples(t *testing.T) {
	t.Parallel()

	st := Compute(series(100, 90, 110))
	require.NotNil(t, st)
	require.Equal(t, 110.0, st.Current)
	require.Equal(t, 90.0, st.Min)
	require.Equal(t, 110.0, st.Max)
	require.Equal(t, 100.0, st.Avg)
	require.Equal(t, 3, st.Samples)
	require.InDelta(t, 22.2, st.OverMinPct, 0.05)
	require.InDelta(t, 10.0, st.OverAvgPct, 1e-9)
	require.True(t, st.TooMuch, "both thresholds exceeded or met")
}

func TestComputeSingleSample(t *testing.T) {
	t.Parallel()

	st := Compute(series(100))
	require.NotNil(t, st)
	require.Equal(t, 100.0, st.Current)
	require.Equal(t, 100.0, st.Min)
	require.Equal(t, 100.0, st.Max)
	require.Equal(t, 100.0, st.Avg)
	require.Equal(t, 1, st.Samples)
	require.Zero(t, st.OverMinPct)
	require.Zero(t, st.OverAvgPct)
	require.False(t, st.TooMuch)
}

func TestComputeTooMuchOrSemantics(t *testing.T) {
	t.Parallel()

	// Current sits 20% over the all-time low but only ~5% over the mean:
	// the min threshold alone must trip the verdict.
	st := Compute(series(100, 120, 115, 120))
	require.NotNil(t, st)
	require.GreaterOrEqual(t, st.OverMinPct, TooMuchOverMinPct)
	require.Less(t, st.OverAvgPct, TooMuchOverAvgPct)
	require.True(t, st.TooMuch)

	// A current price right at the floor trips neither threshold.
	st = Compute(series(120, 110, 100))
	require.NotNil(t, st)
	require.Zero(t, st.OverMinPct)
	require.False(t, st.TooMuch)
}

func TestEngineCustomThresholds(t *testing.T) {
	t.Parallel()

	// 10% over the floor, under 5% over the mean: defaults do not trip.
	st := Compute(series(100, 110))
	require.NotNil(t, st)
	require.False(t, st.TooMuch)

	// A tighter min threshold flips the verdict on the same series.
	st = Engine{OverMinPct: 8}.Compute(series(100, 110))
	require.NotNil(t, st)
	require.True(t, st.TooMuch)
}
