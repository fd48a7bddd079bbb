// Package memory provides an in-memory store for development/testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// Store keeps all three namespaces in mutex-guarded maps. Safe for
// concurrent use; every read hands out a copy.
type Store struct {
	mu       sync.RWMutex
	history  map[string][]tracker.Reading
	wishlist map[string]tracker.WishlistEntry
	alerts   []tracker.Alert
}

// New constructs a Store.
func New() *Store {
	return &Store{
		history:  make(map[string][]tracker.Reading),
		wishlist: make(map[string]tracker.WishlistEntry),
	}
}

// History returns a copy of the series for key.
func (s *Store) History(_ context.Context, key string) ([]tracker.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]tracker.Reading(nil), s.history[key]...), nil
}

// PutHistory replaces the series for key.
func (s *Store) PutHistory(_ context.Context, key string, series []tracker.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[key] = append([]tracker.Reading(nil), series...)
	return nil
}

// Entry returns the wishlist entry for key, nil when absent.
func (s *Store) Entry(_ context.Context, key string) (*tracker.WishlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.wishlist[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// PutEntry inserts or replaces a wishlist entry.
func (s *Store) PutEntry(_ context.Context, entry tracker.WishlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishlist[entry.ProductKey] = entry
	return nil
}

// DeleteEntry removes the entry for key.
func (s *Store) DeleteEntry(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wishlist, key)
	return nil
}

// Wishlist lists entries sorted by product key for stable iteration.
func (s *Store) Wishlist(_ context.Context) ([]tracker.WishlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tracker.WishlistEntry, 0, len(s.wishlist))
	for _, entry := range s.wishlist {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductKey < out[j].ProductKey })
	return out, nil
}

// Alerts returns a copy of the alert log.
func (s *Store) Alerts(_ context.Context) ([]tracker.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]tracker.Alert(nil), s.alerts...), nil
}

// PutAlerts replaces the alert log.
func (s *Store) PutAlerts(_ context.Context, log []tracker.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append([]tracker.Alert(nil), log...)
	return nil
}
