// Package pipeline orchestrates the observation flow: validate, dedup
// against history, persist, recompute stats, evaluate alerts, notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pricewatch/internal/alert"
	"github.com/JakeFAU/pricewatch/internal/clock/system"
	"github.com/JakeFAU/pricewatch/internal/events"
	"github.com/JakeFAU/pricewatch/internal/history"
	"github.com/JakeFAU/pricewatch/internal/id/uuid"
	"github.com/JakeFAU/pricewatch/internal/keymutex"
	"github.com/JakeFAU/pricewatch/internal/normalize"
	"github.com/JakeFAU/pricewatch/internal/notify"
	"github.com/JakeFAU/pricewatch/internal/stats"
	"github.com/JakeFAU/pricewatch/internal/store"
	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// Sentinel errors surfaced to API callers as structured failures.
var (
	ErrNotInWishlist = errors.New("product is not in the wishlist")
	ErrInvalidTarget = errors.New("target price must be a positive finite number")
)

// DefaultTargetFactor is applied to the current price when a product is
// wishlisted without an explicit target.
const DefaultTargetFactor = 0.9

const maxRecentAlerts = 5

// Config wires the pipeline's collaborators. Store is required; every
// other field has a working default.
type Config struct {
	Store    store.Store
	Notifier notify.Notifier
	Emitter  events.Emitter
	Clock    tracker.Clock
	IDs      tracker.IDGenerator
	Logger   *zap.Logger

	Ledger    history.Ledger
	Stats     stats.Engine
	Evaluator alert.Evaluator

	// MaxAlertLog bounds the global alert log; zero uses the default.
	MaxAlertLog int
	// DisableAlerts suppresses evaluation and delivery while still
	// recording history.
	DisableAlerts bool
}

// Pipeline serializes observation processing per product key.
type Pipeline struct {
	cfg    Config
	locks  *keymutex.KeyMutex
	logger *zap.Logger
}

// New validates the config, fills in defaults, and returns a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline requires a store")
	}
	if cfg.Clock == nil {
		cfg.Clock = system.New()
	}
	if cfg.IDs == nil {
		cfg.IDs = uuid.New()
	}
	if cfg.MaxAlertLog <= 0 {
		cfg.MaxAlertLog = alert.DefaultMaxLog
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, locks: keymutex.New(), logger: logger}, nil
}

// Observe runs one price observation through the pipeline. Rejected
// candidates (bad price, unusable URL) report Accepted=false without an
// error; duplicates of the latest reading report Deduplicated=true.
func (p *Pipeline) Observe(ctx context.Context, c tracker.Candidate) (tracker.Outcome, error) {
	now := p.cfg.Clock.Now()

	key := c.ProductKey
	if key == "" {
		key = tracker.ProductKey(c.URL)
	}
	if key == "" {
		return tracker.Outcome{Reason: "missing url"}, nil
	}
	site := c.Site
	if site == "" {
		site = siteOf(c.URL)
	}
	if !validPrice(c.Price) {
		p.emit(events.Event{TS: now, Kind: events.KindObservationDropped, ProductKey: key, Site: site, Reason: "invalid price"})
		return tracker.Outcome{Reason: "invalid price"}, nil
	}
	capturedAt := c.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}
	reading := tracker.Reading{
		ProductKey: key,
		Site:       site,
		URL:        c.URL,
		Title:      c.Title,
		Price:      c.Price,
		Currency:   currencyOf(c.Currency),
		CapturedAt: capturedAt,
	}

	p.locks.Lock(key)
	defer p.locks.Unlock(key)

	series, err := p.cfg.Store.History(ctx, key)
	if err != nil {
		return tracker.Outcome{}, fmt.Errorf("load history for %s: %w", key, err)
	}
	if !p.cfg.Ledger.ShouldAppend(history.Last(series), reading) {
		p.emit(events.Event{TS: now, Kind: events.KindObservationDropped, ProductKey: key, Site: site, Reason: "duplicate"})
		return tracker.Outcome{Deduplicated: true, Reason: "duplicate"}, nil
	}
	series = p.cfg.Ledger.Append(series, reading)
	if err := p.cfg.Store.PutHistory(ctx, key, series); err != nil {
		return tracker.Outcome{}, fmt.Errorf("store history for %s: %w", key, err)
	}

	outcome := tracker.Outcome{Accepted: true}
	p.emit(events.Event{TS: now, Kind: events.KindObservationAccepted, ProductKey: key, Site: site, Price: reading.Price})

	if p.cfg.DisableAlerts {
		return outcome, nil
	}

	entry, err := p.cfg.Store.Entry(ctx, key)
	if err != nil {
		return tracker.Outcome{}, fmt.Errorf("load wishlist entry for %s: %w", key, err)
	}
	st := p.cfg.Stats.Compute(series)
	fired := p.cfg.Evaluator.Evaluate(entry, st, reading, now)
	if fired == nil {
		return outcome, nil
	}

	id, err := p.cfg.IDs.NewID()
	if err != nil {
		return tracker.Outcome{}, fmt.Errorf("mint alert id: %w", err)
	}
	fired.ID = id

	log, err := p.cfg.Store.Alerts(ctx)
	if err != nil {
		return tracker.Outcome{}, fmt.Errorf("load alert log: %w", err)
	}
	log = alert.AppendLog(log, *fired, p.cfg.MaxAlertLog)
	if err := p.cfg.Store.PutAlerts(ctx, log); err != nil {
		return tracker.Outcome{}, fmt.Errorf("store alert log: %w", err)
	}

	outcome.Alert = fired
	p.emit(events.Event{TS: now, Kind: events.KindAlertFired, ProductKey: key, Site: site, Price: fired.Price, Reason: fired.Reason})
	p.deliver(*fired)
	return outcome, nil
}

// Summary assembles the full view of one product: history, derived
// stats, its wishlist entry, and the most recent alerts.
func (p *Pipeline) Summary(ctx context.Context, key string) (*tracker.Summary, error) {
	series, err := p.cfg.Store.History(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", key, err)
	}
	entry, err := p.cfg.Store.Entry(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load wishlist entry for %s: %w", key, err)
	}
	log, err := p.cfg.Store.Alerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load alert log: %w", err)
	}
	return &tracker.Summary{
		ProductKey:   key,
		History:      series,
		Stats:        p.cfg.Stats.Compute(series),
		WishlistItem: entry,
		RecentAlerts: alert.Recent(log, key, maxRecentAlerts),
	}, nil
}

// Toggle adds the product to the wishlist, or removes it when already
// present. When adding without an explicit target and history exists,
// the target defaults to DefaultTargetFactor times the current price.
func (p *Pipeline) Toggle(ctx context.Context, key string, meta tracker.Meta) (bool, error) {
	p.locks.Lock(key)
	defer p.locks.Unlock(key)

	existing, err := p.cfg.Store.Entry(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load wishlist entry for %s: %w", key, err)
	}
	if existing != nil {
		if err := p.cfg.Store.DeleteEntry(ctx, key); err != nil {
			return false, fmt.Errorf("delete wishlist entry for %s: %w", key, err)
		}
		p.logger.Info("wishlist entry removed", zap.String("product_key", key))
		return false, nil
	}

	if meta.TargetPrice != nil && !validPrice(*meta.TargetPrice) {
		return false, ErrInvalidTarget
	}
	target := meta.TargetPrice
	if target == nil {
		series, err := p.cfg.Store.History(ctx, key)
		if err != nil {
			return false, fmt.Errorf("load history for %s: %w", key, err)
		}
		if last := history.Last(series); last != nil {
			t := round2(last.Price * DefaultTargetFactor)
			target = &t
		}
	}
	site := meta.Site
	if site == "" {
		site = siteOf(meta.URL)
	}
	entry := tracker.WishlistEntry{
		ProductKey:  key,
		Title:       meta.Title,
		URL:         meta.URL,
		Site:        site,
		TargetPrice: target,
		CreatedAt:   p.cfg.Clock.Now(),
	}
	if err := p.cfg.Store.PutEntry(ctx, entry); err != nil {
		return false, fmt.Errorf("store wishlist entry for %s: %w", key, err)
	}
	p.logger.Info("wishlist entry added", zap.String("product_key", key))
	return true, nil
}

// SetTarget updates the target price of an existing wishlist entry.
func (p *Pipeline) SetTarget(ctx context.Context, key string, value float64) error {
	if !validPrice(value) {
		return ErrInvalidTarget
	}

	p.locks.Lock(key)
	defer p.locks.Unlock(key)

	entry, err := p.cfg.Store.Entry(ctx, key)
	if err != nil {
		return fmt.Errorf("load wishlist entry for %s: %w", key, err)
	}
	if entry == nil {
		return ErrNotInWishlist
	}
	now := p.cfg.Clock.Now()
	entry.TargetPrice = &value
	entry.UpdatedAt = &now
	if err := p.cfg.Store.PutEntry(ctx, *entry); err != nil {
		return fmt.Errorf("store wishlist entry for %s: %w", key, err)
	}
	return nil
}

// Wishlist lists every tracked entry.
func (p *Pipeline) Wishlist(ctx context.Context) ([]tracker.WishlistEntry, error) {
	return p.cfg.Store.Wishlist(ctx)
}

// RecentAlerts returns up to n alerts across all products, most recent
// first.
func (p *Pipeline) RecentAlerts(ctx context.Context, n int) ([]tracker.Alert, error) {
	log, err := p.cfg.Store.Alerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load alert log: %w", err)
	}
	if n <= 0 {
		n = len(log)
	}
	return alert.Recent(log, "", n), nil
}

// deliver sends the notification without blocking the caller; delivery
// failures are logged and dropped.
func (p *Pipeline) deliver(a tracker.Alert) {
	if p.cfg.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := p.cfg.Notifier.Send(ctx, notify.FromAlert(a)); err != nil {
			p.logger.Warn("alert delivery failed",
				zap.String("alert_id", a.ID),
				zap.String("product_key", a.ProductKey),
				zap.Error(err))
		}
	}()
}

func (p *Pipeline) emit(evt events.Event) {
	if p.cfg.Emitter != nil {
		p.cfg.Emitter.Emit(evt)
	}
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= normalize.MinPrice
}

func currencyOf(c string) string {
	if c == "" {
		return "EUR"
	}
	return c
}

func siteOf(rawURL string) tracker.Site {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return tracker.SiteGeneric
	}
	return tracker.SiteFromHost(u.Host)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
