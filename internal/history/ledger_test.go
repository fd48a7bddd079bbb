package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

func reading(price float64, at time.Time) tracker.Reading {
	return tracker.Reading{
		ProductKey: "shop.example.com/widget",
		Site:       tracker.SiteGeneric,
		Price:      price,
		Currency:   "EUR",
		CapturedAt: at,
	}
}

func TestShouldAppend(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	last := reading(19.99, base)

	tests := []struct {
		name string
		last *tracker.Reading
		next tracker.Reading
		want bool
	}{
		{name: "no prior reading", last: nil, next: reading(19.99, base), want: true},
		{name: "same price under interval", last: &last, next: reading(19.99, base.Add(time.Hour)), want: false},
		{name: "same price at interval", last: &last, next: reading(19.99, base.Add(6*time.Hour)), want: true},
		{name: "same price over interval", last: &last, next: reading(19.99, base.Add(7*time.Hour)), want: true},
		{name: "different price any gap", last: &last, next: reading(18.49, base.Add(time.Minute)), want: true},
		{name: "sub-epsilon wiggle coalesced", last: &last, next: reading(19.99005, base.Add(time.Minute)), want: false},
	}

	var ledger Ledger
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ledger.ShouldAppend(tt.last, tt.next))
		})
	}
}

func TestAppendTruncatesOldestFirst(t *testing.T) {
	t.Parallel()

	var ledger Ledger
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	var series []tracker.Reading
	for i := 0; i < DefaultMaxEntries; i++ {
		series = ledger.Append(series, reading(float64(i+1), base.Add(time.Duration(i)*time.Hour)))
	}
	require.Len(t, series, DefaultMaxEntries)

	series = ledger.Append(series, reading(999, base.Add(1000*time.Hour)))
	require.Len(t, series, DefaultMaxEntries)
	require.Equal(t, float64(2), series[0].Price, "oldest entry should be dropped")
	require.Equal(t, float64(999), series[len(series)-1].Price)
}

func TestAppendCustomBound(t *testing.T) {
	t.Parallel()

	ledger := Ledger{MaxEntries: 3}
	base := time.Now().UTC()

	var series []tracker.Reading
	for i := 0; i < 5; i++ {
		series = ledger.Append(series, reading(float64(i), base))
	}
	require.Len(t, series, 3)
	require.Equal(t, float64(2), series[0].Price)
}

func TestLast(t *testing.T) {
	t.Parallel()

	require.Nil(t, Last(nil))

	base := time.Now().UTC()
	series := []tracker.Reading{reading(1, base), reading(2, base.Add(time.Hour))}
	last := Last(series)
	require.NotNil(t, last)
	require.Equal(t, float64(2), last.Price)
}

func ExampleLedger_ShouldAppend() {
	var ledger Ledger
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	prior := tracker.Reading{Price: 10, CapturedAt: at}
	next := tracker.Reading{Price: 10, CapturedAt: at.Add(time.Hour)}
	fmt.Println(ledger.ShouldAppend(&prior, next))
	// Output: false
}
