package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

func TestHistoryRoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	got, err := s.History(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, got)

	series := []tracker.Reading{{ProductKey: "k", Price: 10, CapturedAt: time.Now().UTC()}}
	require.NoError(t, s.PutHistory(ctx, "k", series))

	got, err = s.History(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Mutating the returned copy must not leak into the store.
	got[0].Price = 999
	again, err := s.History(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, 10.0, again[0].Price)
}

func TestWishlistCRUD(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	entry, err := s.Entry(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, entry)

	require.NoError(t, s.PutEntry(ctx, tracker.WishlistEntry{ProductKey: "b", Title: "B"}))
	require.NoError(t, s.PutEntry(ctx, tracker.WishlistEntry{ProductKey: "a", Title: "A"}))

	entry, err = s.Entry(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "A", entry.Title)

	list, err := s.Wishlist(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].ProductKey, "stable key order")

	require.NoError(t, s.DeleteEntry(ctx, "a"))
	require.NoError(t, s.DeleteEntry(ctx, "a"), "double delete is a no-op")
	entry, err = s.Entry(ctx, "a")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestAlertLogRoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	log, err := s.Alerts(ctx)
	require.NoError(t, err)
	require.Empty(t, log)

	require.NoError(t, s.PutAlerts(ctx, []tracker.Alert{{ID: "1"}, {ID: "2"}}))
	log, err = s.Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, log, 2)
}
