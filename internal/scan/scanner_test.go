package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pricewatch/internal/fetch"
	"github.com/JakeFAU/pricewatch/internal/tracker"
)

type fakeClock struct{}

func (fakeClock) Now() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("scan-%d", s.n), nil
}

type stubPipeline struct {
	mu      sync.Mutex
	entries []tracker.WishlistEntry
	seen    []tracker.Candidate
	outcome tracker.Outcome
}

func (p *stubPipeline) Observe(_ context.Context, c tracker.Candidate) (tracker.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, c)
	return p.outcome, nil
}

func (p *stubPipeline) Wishlist(context.Context) ([]tracker.WishlistEntry, error) {
	return p.entries, nil
}

func (p *stubPipeline) observed() []tracker.Candidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tracker.Candidate, len(p.seen))
	copy(out, p.seen)
	return out
}

type mapFetcher struct {
	pages map[string]fetch.Response
	errs  map[string]error
}

func (f *mapFetcher) Fetch(_ context.Context, req fetch.Request) (fetch.Response, error) {
	if err, ok := f.errs[req.URL]; ok {
		return fetch.Response{}, err
	}
	resp, ok := f.pages[req.URL]
	if !ok {
		return fetch.Response{}, errors.New("unexpected url")
	}
	return resp, nil
}

const productPage = `<html><head><title>Widget Shop</title></head>
<body><h1>Widget</h1><span class="price">€ 42,50</span></body></html>`

const emptyPage = `<html><body><h1>Nothing here</h1></body></html>`

func TestScannerRunIsolatesFailures(t *testing.T) {
	t.Parallel()

	pipeline := &stubPipeline{
		entries: []tracker.WishlistEntry{
			{ProductKey: "shop.example.com/widget", URL: "https://shop.example.com/widget", Site: tracker.SiteGeneric},
			{ProductKey: "shop.example.com/broken", URL: "https://shop.example.com/broken", Site: tracker.SiteGeneric},
			{ProductKey: "shop.example.com/bare", URL: "https://shop.example.com/bare", Site: tracker.SiteGeneric},
		},
		outcome: tracker.Outcome{Accepted: true},
	}
	fetcher := &mapFetcher{
		pages: map[string]fetch.Response{
			"https://shop.example.com/widget": {StatusCode: 200, Body: []byte(productPage)},
			"https://shop.example.com/bare":   {StatusCode: 200, Body: []byte(emptyPage)},
		},
		errs: map[string]error{
			"https://shop.example.com/broken": errors.New("connection reset"),
		},
	}

	s, err := New(Config{
		Pipeline: pipeline,
		Fetcher:  fetcher,
		Clock:    fakeClock{},
		IDs:      &seqIDs{},
		Workers:  2,
	})
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.Total)
	require.Equal(t, 1, report.Observed)
	require.Equal(t, 2, report.Skipped)
	require.Equal(t, 0, report.Alerts)

	seen := pipeline.observed()
	require.Len(t, seen, 1)
	require.Equal(t, "shop.example.com/widget", seen[0].ProductKey)
	require.InDelta(t, 42.50, seen[0].Price, 1e-9)
	require.Equal(t, "EUR", seen[0].Currency)
	require.Equal(t, "Widget", seen[0].Title)
}

func TestScannerCountsAlerts(t *testing.T) {
	t.Parallel()

	pipeline := &stubPipeline{
		entries: []tracker.WishlistEntry{
			{ProductKey: "shop.example.com/widget", URL: "https://shop.example.com/widget", Site: tracker.SiteGeneric},
		},
		outcome: tracker.Outcome{Accepted: true, Alert: &tracker.Alert{Reason: tracker.ReasonTargetReached}},
	}
	fetcher := &mapFetcher{
		pages: map[string]fetch.Response{
			"https://shop.example.com/widget": {StatusCode: 200, Body: []byte(productPage)},
		},
	}

	s, err := New(Config{Pipeline: pipeline, Fetcher: fetcher, Clock: fakeClock{}, IDs: &seqIDs{}})
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Observed)
	require.Equal(t, 1, report.Alerts)
}

func TestScannerSkipsNon200(t *testing.T) {
	t.Parallel()

	pipeline := &stubPipeline{
		entries: []tracker.WishlistEntry{
			{ProductKey: "shop.example.com/gone", URL: "https://shop.example.com/gone", Site: tracker.SiteGeneric},
		},
	}
	fetcher := &mapFetcher{
		pages: map[string]fetch.Response{
			"https://shop.example.com/gone": {StatusCode: 404, Body: []byte("not found")},
		},
	}

	s, err := New(Config{Pipeline: pipeline, Fetcher: fetcher, Clock: fakeClock{}, IDs: &seqIDs{}})
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Skipped)
	require.Empty(t, pipeline.observed())
}

func TestLimiterWaitPerDomain(t *testing.T) {
	t.Parallel()

	l := NewLimiter(LimiterConfig{DefaultRPS: 100, DefaultBurst: 1})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://a.example.com/x"))
	require.NoError(t, l.Wait(ctx, "https://b.example.com/y"))
	// Distinct domains use distinct buckets, so neither call should
	// have waited a full token interval.
	require.Less(t, time.Since(start), 50*time.Millisecond)

	require.NoError(t, l.Wait(ctx, "https://a.example.com/z"))
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := NewLimiter(LimiterConfig{DefaultRPS: 0.001, DefaultBurst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "https://slow.example.com/a"))
	err := l.Wait(ctx, "https://slow.example.com/b")
	require.Error(t, err)
}
