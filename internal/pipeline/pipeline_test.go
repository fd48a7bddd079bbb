package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pricewatch/internal/notify/memory"
	storememory "github.com/JakeFAU/pricewatch/internal/store/memory"
	"github.com/JakeFAU/pricewatch/internal/tracker"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type seqIDs struct {
	n int
}

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("alert-%d", s.n), nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *fakeClock, *memory.Notifier) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	notifier := memory.New()
	p, err := New(Config{
		Store:    storememory.New(),
		Notifier: notifier,
		Clock:    clk,
		IDs:      &seqIDs{},
	})
	require.NoError(t, err)
	return p, clk, notifier
}

func TestObserveRejectsInvalidPrice(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPipeline(t)
	out, err := p.Observe(context.Background(), tracker.Candidate{
		URL:   "https://example.com/item",
		Price: 0,
	})
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.Equal(t, "invalid price", out.Reason)
}

func TestObserveDeduplicatesRepeatPrice(t *testing.T) {
	t.Parallel()

	p, clk, _ := newTestPipeline(t)
	ctx := context.Background()
	c := tracker.Candidate{URL: "https://example.com/item", Price: 50, Currency: "EUR"}

	out, err := p.Observe(ctx, c)
	require.NoError(t, err)
	require.True(t, out.Accepted)

	clk.advance(time.Hour)
	out, err = p.Observe(ctx, c)
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.True(t, out.Deduplicated)

	// Same price is recorded again once enough time has passed.
	clk.advance(6 * time.Hour)
	out, err = p.Observe(ctx, c)
	require.NoError(t, err)
	require.True(t, out.Accepted)

	sum, err := p.Summary(ctx, tracker.ProductKey(c.URL))
	require.NoError(t, err)
	require.Len(t, sum.History, 2)
}

func TestObserveFiresSingleTargetAlert(t *testing.T) {
	t.Parallel()

	p, clk, notifier := newTestPipeline(t)
	ctx := context.Background()
	url := "https://www.example.com/product/1"
	key := tracker.ProductKey(url)

	target := 85.0
	added, err := p.Toggle(ctx, key, tracker.Meta{URL: url, Title: "Widget", TargetPrice: &target})
	require.NoError(t, err)
	require.True(t, added)

	var alerts []*tracker.Alert
	for _, price := range []float64{120, 100, 80} {
		out, err := p.Observe(ctx, tracker.Candidate{URL: url, Title: "Widget", Price: price, Currency: "EUR"})
		require.NoError(t, err)
		require.True(t, out.Accepted)
		if out.Alert != nil {
			alerts = append(alerts, out.Alert)
		}
		clk.advance(6 * time.Hour)
	}

	require.Len(t, alerts, 1)
	require.Equal(t, tracker.ReasonTargetReached, alerts[0].Reason)
	require.Equal(t, 80.0, alerts[0].Price)
	require.NotNil(t, alerts[0].Target)
	require.Equal(t, 85.0, *alerts[0].Target)

	sum, err := p.Summary(ctx, key)
	require.NoError(t, err)
	require.Len(t, sum.RecentAlerts, 1)

	require.Eventually(t, func() bool {
		return len(notifier.Sent()) == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, tracker.ReasonTargetReached, notifier.Sent()[0].Reason)
}

func TestObserveNearMinimumNeedsHistory(t *testing.T) {
	t.Parallel()

	p, clk, _ := newTestPipeline(t)
	ctx := context.Background()
	url := "https://example.com/deal"
	key := tracker.ProductKey(url)

	_, err := p.Toggle(ctx, key, tracker.Meta{URL: url})
	require.NoError(t, err)

	// The first two readings sit trivially at the minimum and must not
	// alert; the third, back near the floor, does.
	var fired []*tracker.Alert
	for _, price := range []float64{100, 110, 101} {
		out, err := p.Observe(ctx, tracker.Candidate{URL: url, Price: price})
		require.NoError(t, err)
		if out.Alert != nil {
			fired = append(fired, out.Alert)
		}
		clk.advance(6 * time.Hour)
	}
	require.Len(t, fired, 1)
	require.Equal(t, tracker.ReasonNearMinimum, fired[0].Reason)
}

func TestObserveSkipsAlertsWhenDisabled(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	p, err := New(Config{
		Store:         storememory.New(),
		Clock:         clk,
		IDs:           &seqIDs{},
		DisableAlerts: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	url := "https://example.com/muted"
	target := 200.0
	_, err = p.Toggle(ctx, tracker.ProductKey(url), tracker.Meta{URL: url, TargetPrice: &target})
	require.NoError(t, err)

	out, err := p.Observe(ctx, tracker.Candidate{URL: url, Price: 100})
	require.NoError(t, err)
	require.True(t, out.Accepted)
	require.Nil(t, out.Alert)
}

func TestToggleDefaultsTargetFromHistory(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPipeline(t)
	ctx := context.Background()
	url := "https://example.com/tv"
	key := tracker.ProductKey(url)

	_, err := p.Observe(ctx, tracker.Candidate{URL: url, Price: 199.99})
	require.NoError(t, err)

	added, err := p.Toggle(ctx, key, tracker.Meta{URL: url, Title: "TV"})
	require.NoError(t, err)
	require.True(t, added)

	sum, err := p.Summary(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, sum.WishlistItem)
	require.NotNil(t, sum.WishlistItem.TargetPrice)
	require.InDelta(t, 179.99, *sum.WishlistItem.TargetPrice, 0.01)

	// Second toggle removes the entry.
	added, err = p.Toggle(ctx, key, tracker.Meta{URL: url})
	require.NoError(t, err)
	require.False(t, added)

	sum, err = p.Summary(ctx, key)
	require.NoError(t, err)
	require.Nil(t, sum.WishlistItem)
}

func TestToggleWithoutHistoryLeavesTargetUnset(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPipeline(t)
	ctx := context.Background()
	key := tracker.ProductKey("https://example.com/new")

	added, err := p.Toggle(ctx, key, tracker.Meta{URL: "https://example.com/new"})
	require.NoError(t, err)
	require.True(t, added)

	sum, err := p.Summary(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, sum.WishlistItem)
	require.Nil(t, sum.WishlistItem.TargetPrice)
}

func TestSetTargetErrors(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPipeline(t)
	ctx := context.Background()

	err := p.SetTarget(ctx, "example.com/absent", 10)
	require.ErrorIs(t, err, ErrNotInWishlist)

	key := tracker.ProductKey("https://example.com/present")
	_, err = p.Toggle(ctx, key, tracker.Meta{URL: "https://example.com/present"})
	require.NoError(t, err)

	require.ErrorIs(t, p.SetTarget(ctx, key, 0), ErrInvalidTarget)
	require.ErrorIs(t, p.SetTarget(ctx, key, -4), ErrInvalidTarget)

	require.NoError(t, p.SetTarget(ctx, key, 42.5))
	sum, err := p.Summary(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, sum.WishlistItem.TargetPrice)
	require.Equal(t, 42.5, *sum.WishlistItem.TargetPrice)
	require.NotNil(t, sum.WishlistItem.UpdatedAt)
}

func TestSummaryLimitsRecentAlerts(t *testing.T) {
	t.Parallel()

	p, clk, _ := newTestPipeline(t)
	ctx := context.Background()
	url := "https://example.com/hot"
	key := tracker.ProductKey(url)

	target := 1000.0
	_, err := p.Toggle(ctx, key, tracker.Meta{URL: url, TargetPrice: &target})
	require.NoError(t, err)

	// Every observation is under the target, so each fires an alert.
	for i := 0; i < 8; i++ {
		out, err := p.Observe(ctx, tracker.Candidate{URL: url, Price: float64(100 - i)})
		require.NoError(t, err)
		require.NotNil(t, out.Alert)
		clk.advance(6 * time.Hour)
	}

	sum, err := p.Summary(ctx, key)
	require.NoError(t, err)
	require.Len(t, sum.RecentAlerts, 5)
	// Most recent first.
	require.Equal(t, 93.0, sum.RecentAlerts[0].Price)

	all, err := p.RecentAlerts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 8)
}
