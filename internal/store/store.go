// Package store defines the persistence contract for the tracker.
//
// Three logical namespaces live behind one interface: price history by
// product key, wishlist entries by product key, and a single global
// alert log. Implementations only need mapping-store get/set
// semantics; all invariants (bounds, dedup, serialization) are
// enforced by the pipeline above.
package store

import (
	"context"

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// Store is the shared persisted state collaborator.
type Store interface {
	// History returns the reading series for a key, oldest first.
	// A missing key yields an empty series, not an error.
	History(ctx context.Context, key string) ([]tracker.Reading, error)
	// PutHistory replaces the series for a key.
	PutHistory(ctx context.Context, key string, series []tracker.Reading) error

	// Entry returns the wishlist entry for a key, or nil when absent.
	Entry(ctx context.Context, key string) (*tracker.WishlistEntry, error)
	// PutEntry inserts or replaces a wishlist entry.
	PutEntry(ctx context.Context, entry tracker.WishlistEntry) error
	// DeleteEntry removes a wishlist entry; removing an absent entry
	// is a no-op.
	DeleteEntry(ctx context.Context, key string) error
	// Wishlist lists every wishlist entry.
	Wishlist(ctx context.Context) ([]tracker.WishlistEntry, error)

	// Alerts returns the global alert log, oldest first.
	Alerts(ctx context.Context) ([]tracker.Alert, error)
	// PutAlerts replaces the global alert log.
	PutAlerts(ctx context.Context, log []tracker.Alert) error
}
