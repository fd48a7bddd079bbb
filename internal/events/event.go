// Package events defines the progress event structures emitted by the
// observation pipeline and the periodic scanner.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// Kind denotes the type of milestone represented by an Event.
type Kind string

// Supported event kinds.
const (
	KindObservationAccepted Kind = "OBSERVATION_ACCEPTED"
	KindObservationDropped  Kind = "OBSERVATION_DROPPED"
	KindAlertFired          Kind = "ALERT_FIRED"
	KindScanStart           Kind = "SCAN_START"
	KindScanItemDone        Kind = "SCAN_ITEM_DONE"
	KindScanItemSkipped     Kind = "SCAN_ITEM_SKIPPED"
	KindScanDone            Kind = "SCAN_DONE"
)

// Event captures a single pipeline or scan milestone.
type Event struct {
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Kind denotes which milestone occurred.
	Kind Kind
	// ScanID identifies a scan run; empty for inbound API observations.
	ScanID string
	// ProductKey scopes per-product events to a stable key.
	ProductKey string
	// Site optionally labels the page family the event relates to.
	Site tracker.Site
	// Price carries the observed price for accepted observations and
	// fired alerts.
	Price float64
	// Reason explains drops, skips, and alert firings.
	Reason string
	// Dur captures execution latency for scan items and scan runs.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Kind {
	case KindScanStart, KindScanDone:
		if e.ScanID == "" {
			return errors.New("scan events require a scan id")
		}
	case KindObservationAccepted, KindObservationDropped, KindAlertFired,
		KindScanItemDone, KindScanItemSkipped:
		if e.ProductKey == "" {
			return errors.New("product events require a product key")
		}
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
