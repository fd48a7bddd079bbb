// Package scan re-checks every wishlisted product on a schedule,
// feeding fresh readings through the observation pipeline.
package scan

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pricewatch/internal/archive"
	"github.com/JakeFAU/pricewatch/internal/events"
	"github.com/JakeFAU/pricewatch/internal/extract"
	"github.com/JakeFAU/pricewatch/internal/fetch"
	"github.com/JakeFAU/pricewatch/internal/metrics"
	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// Pipeline is the slice of the observation pipeline the scanner needs.
type Pipeline interface {
	Observe(ctx context.Context, c tracker.Candidate) (tracker.Outcome, error)
	Wishlist(ctx context.Context) ([]tracker.WishlistEntry, error)
}

// Report summarizes one scan run.
type Report struct {
	ScanID    string        `json:"scan_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Total     int           `json:"total"`
	Observed  int           `json:"observed"`
	Alerts    int           `json:"alerts"`
	Skipped   int           `json:"skipped"`
}

// Config wires the scanner's collaborators.
type Config struct {
	Pipeline Pipeline
	Fetcher  fetch.Fetcher
	Limiter  *Limiter
	Archiver *archive.Archiver
	Emitter  events.Emitter
	Clock    tracker.Clock
	IDs      tracker.IDGenerator
	Logger   *zap.Logger

	// Workers bounds concurrent item processing; zero means 4.
	Workers int
}

// Scanner walks the wishlist and submits each product's current price.
// One item's failure is logged, counted, and skipped.
type Scanner struct {
	cfg    Config
	logger *zap.Logger
}

// New validates the config and returns a Scanner.
func New(cfg Config) (*Scanner, error) {
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("scanner requires a pipeline")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("scanner requires a fetcher")
	}
	if cfg.Clock == nil || cfg.IDs == nil {
		return nil, fmt.Errorf("scanner requires a clock and id generator")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	metrics.Init()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{cfg: cfg, logger: logger}, nil
}

// Run executes one full scan over the wishlist.
func (s *Scanner) Run(ctx context.Context) (Report, error) {
	scanID, err := s.cfg.IDs.NewID()
	if err != nil {
		return Report{}, fmt.Errorf("mint scan id: %w", err)
	}
	return s.run(ctx, scanID)
}

// RunAsync starts a scan in the background and returns its id
// immediately. The scan itself uses the supplied base context.
func (s *Scanner) RunAsync(ctx context.Context) (string, error) {
	scanID, err := s.cfg.IDs.NewID()
	if err != nil {
		return "", fmt.Errorf("mint scan id: %w", err)
	}
	go func() {
		if _, err := s.run(ctx, scanID); err != nil && ctx.Err() == nil {
			s.logger.Error("background scan failed", zap.String("scan_id", scanID), zap.Error(err))
		}
	}()
	return scanID, nil
}

func (s *Scanner) run(ctx context.Context, scanID string) (Report, error) {
	started := s.cfg.Clock.Now()
	report := Report{ScanID: scanID, StartedAt: started}

	entries, err := s.cfg.Pipeline.Wishlist(ctx)
	if err != nil {
		return report, fmt.Errorf("load wishlist: %w", err)
	}
	report.Total = len(entries)

	s.emit(events.Event{TS: started, Kind: events.KindScanStart, ScanID: scanID})
	s.logger.Info("scan started", zap.String("scan_id", scanID), zap.Int("items", len(entries)))

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan tracker.WishlistEntry)
	)
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				outcome, ok := s.scanItem(ctx, scanID, entry)
				mu.Lock()
				if ok {
					report.Observed++
					if outcome.Alert != nil {
						report.Alerts++
					}
				} else {
					report.Skipped++
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- entry:
		}
	}
	close(jobs)
	wg.Wait()

	report.Duration = s.cfg.Clock.Now().Sub(started)
	s.emit(events.Event{TS: s.cfg.Clock.Now(), Kind: events.KindScanDone, ScanID: scanID, Dur: report.Duration})
	s.logger.Info("scan finished",
		zap.String("scan_id", scanID),
		zap.Int("observed", report.Observed),
		zap.Int("alerts", report.Alerts),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))
	return report, ctx.Err()
}

// scanItem fetches, extracts, and observes one wishlist entry. The
// bool result reports whether a reading made it into the pipeline.
func (s *Scanner) scanItem(ctx context.Context, scanID string, entry tracker.WishlistEntry) (tracker.Outcome, bool) {
	start := time.Now()

	if s.cfg.Limiter != nil {
		if err := s.cfg.Limiter.Wait(ctx, entry.URL); err != nil {
			s.skip(scanID, entry, "rate limit interrupted", err)
			return tracker.Outcome{}, false
		}
	}

	resp, err := s.cfg.Fetcher.Fetch(ctx, fetch.Request{URL: entry.URL})
	if err != nil {
		s.skip(scanID, entry, "fetch failed", err)
		return tracker.Outcome{}, false
	}
	metrics.ObserveFetch(entry.URL, strconv.Itoa(resp.StatusCode), len(resp.Body))
	if resp.StatusCode != 200 {
		s.skip(scanID, entry, fmt.Sprintf("status %d", resp.StatusCode), nil)
		return tracker.Outcome{}, false
	}

	if s.cfg.Archiver != nil {
		if _, err := s.cfg.Archiver.Archive(ctx, entry.ProductKey, s.cfg.Clock.Now(), resp.Body); err != nil {
			s.logger.Warn("page archive failed",
				zap.String("product_key", entry.ProductKey), zap.Error(err))
		}
	}

	result := extract.Extract(string(resp.Body), entry.URL, entry.Site)
	if result == nil {
		metrics.ObserveExtraction(entry.URL, "miss")
		s.skip(scanID, entry, "no price found", nil)
		return tracker.Outcome{}, false
	}
	metrics.ObserveExtraction(entry.URL, "ok")

	title := result.Title
	if title == "" {
		title = entry.Title
	}
	outcome, err := s.cfg.Pipeline.Observe(ctx, tracker.Candidate{
		ProductKey: entry.ProductKey,
		URL:        entry.URL,
		Site:       result.Site,
		Title:      title,
		Price:      result.Price,
		Currency:   result.Currency,
	})
	if err != nil {
		s.skip(scanID, entry, "observe failed", err)
		return tracker.Outcome{}, false
	}

	s.emit(events.Event{
		TS:         s.cfg.Clock.Now(),
		Kind:       events.KindScanItemDone,
		ScanID:     scanID,
		ProductKey: entry.ProductKey,
		Site:       entry.Site,
		Price:      result.Price,
		Dur:        time.Since(start),
	})
	return outcome, true
}

func (s *Scanner) skip(scanID string, entry tracker.WishlistEntry, reason string, err error) {
	fields := []zap.Field{
		zap.String("scan_id", scanID),
		zap.String("product_key", entry.ProductKey),
		zap.String("reason", reason),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Warn("scan item skipped", fields...)
	s.emit(events.Event{
		TS:         s.cfg.Clock.Now(),
		Kind:       events.KindScanItemSkipped,
		ScanID:     scanID,
		ProductKey: entry.ProductKey,
		Reason:     reason,
	})
}

func (s *Scanner) emit(evt events.Event) {
	if s.cfg.Emitter != nil {
		s.cfg.Emitter.Emit(evt)
	}
}
