// Package tracker defines core types shared across subsystems.
package tracker

import "time"

// Site labels the page family a reading came from.
type Site string

// Known site identifiers. SiteGeneric is the fallback for unrecognized
// hosts and also the "no hint" marker on inbound observations.
const (
	SiteAmazon  Site = "amazon"
	SiteBooking Site = "booking"
	SiteGeneric Site = "generic"
)

// Reading is one observed price sample at a point in time. Immutable
// once created.
type Reading struct {
	ProductKey string    `json:"product_key"`
	Site       Site      `json:"site"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	CapturedAt time.Time `json:"captured_at"`
}

// WishlistEntry is a user-curated product with an optional target price.
type WishlistEntry struct {
	ProductKey  string     `json:"product_key"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Site        Site       `json:"site"`
	TargetPrice *float64   `json:"target_price,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Stats is the derived summary recomputed on demand from a history
// series; it is never persisted.
type Stats struct {
	Current    float64 `json:"current"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Avg        float64 `json:"avg"`
	Samples    int     `json:"samples"`
	OverMinPct float64 `json:"over_min_pct"`
	OverAvgPct float64 `json:"over_avg_pct"`
	TooMuch    bool    `json:"too_much"`
}

// Alert reasons, one per fired alert.
const (
	ReasonTargetReached = "target price reached"
	ReasonNearMinimum   = "near historical minimum"
)

// Alert is the durable record that a price condition was met.
type Alert struct {
	ID         string    `json:"id"`
	ProductKey string    `json:"product_key"`
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	Reason     string    `json:"reason"`
	Target     *float64  `json:"target,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Candidate is a raw inbound observation before validation. Price may
// still be rejected by the pipeline.
type Candidate struct {
	ProductKey string    `json:"product_key,omitempty"`
	URL        string    `json:"url"`
	Site       Site      `json:"site,omitempty"`
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency,omitempty"`
	CapturedAt time.Time `json:"captured_at,omitempty"`
}

// Outcome reports what the pipeline did with one observation.
type Outcome struct {
	Accepted     bool   `json:"accepted"`
	Deduplicated bool   `json:"deduplicated"`
	Reason       string `json:"reason,omitempty"`
	Alert        *Alert `json:"alert,omitempty"`
}

// Summary is returned by the product query API.
type Summary struct {
	ProductKey   string         `json:"product_key"`
	History      []Reading      `json:"history"`
	Stats        *Stats         `json:"stats,omitempty"`
	WishlistItem *WishlistEntry `json:"wishlist_item,omitempty"`
	RecentAlerts []Alert        `json:"recent_alerts"`
}

// Meta carries the descriptive fields of a wishlist toggle request.
type Meta struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Site        Site     `json:"site"`
	TargetPrice *float64 `json:"target_price,omitempty"`
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints identifiers for alerts and scan runs.
type IDGenerator interface {
	NewID() (string, error)
}
