package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/pricewatch/internal/events"
)

// PrometheusSink exports pipeline progress metrics. It owns the
// collectors for observations, alerts, and scan runs.
type PrometheusSink struct {
	observations *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	scansStarted prometheus.Counter
	scansRunning prometheus.Gauge
	scanRuntime  prometheus.Histogram
	scanItems    *prometheus.CounterVec
	itemDuration prometheus.Histogram

	tracker *scanTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_observations_total",
			Help: "Observations submitted to the pipeline partitioned by site and outcome.",
		}, []string{"site", "outcome"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_alerts_total",
			Help: "Alerts fired partitioned by reason.",
		}, []string{"reason"}),
		scansStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricewatch_scans_started_total",
			Help: "Total scan runs that have started.",
		}),
		scansRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_scans_running",
			Help: "Current number of running scans.",
		}),
		scanRuntime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricewatch_scan_runtime_seconds",
			Help:    "Wall time per completed scan run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		scanItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_scan_items_total",
			Help: "Scanned wishlist items partitioned by result.",
		}, []string{"result"}),
		itemDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricewatch_scan_item_duration_seconds",
			Help:    "Per-item fetch and extract duration during scans.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		tracker: newScanTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.observations,
		s.alerts,
		s.scansStarted,
		s.scansRunning,
		s.scanRuntime,
		s.scanItems,
		s.itemDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register event collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch. Safe for
// concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []events.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt events.Event) {
	site := string(evt.Site)
	if site == "" {
		site = "unknown"
	}
	switch evt.Kind {
	case events.KindObservationAccepted:
		s.observations.WithLabelValues(site, "accepted").Inc()
	case events.KindObservationDropped:
		s.observations.WithLabelValues(site, "dropped").Inc()
	case events.KindAlertFired:
		reason := evt.Reason
		if reason == "" {
			reason = "unknown"
		}
		s.alerts.WithLabelValues(reason).Inc()
	case events.KindScanStart:
		s.scansStarted.Inc()
		if s.tracker.start(evt.ScanID) {
			s.scansRunning.Inc()
		}
	case events.KindScanDone:
		if evt.Dur > 0 {
			s.scanRuntime.Observe(evt.Dur.Seconds())
		}
		if s.tracker.complete(evt.ScanID) {
			s.scansRunning.Dec()
		}
	case events.KindScanItemDone:
		s.scanItems.WithLabelValues("ok").Inc()
		if evt.Dur > 0 {
			s.itemDuration.Observe(evt.Dur.Seconds())
		}
	case events.KindScanItemSkipped:
		s.scanItems.WithLabelValues("skipped").Inc()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type scanTracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newScanTracker() *scanTracker {
	return &scanTracker{running: make(map[string]struct{})}
}

func (t *scanTracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *scanTracker) complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
