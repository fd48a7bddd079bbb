package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

func TestNewWithPoolRequiresPool(t *testing.T) {
	_, err := NewWithPool(nil)
	require.Error(t, err)
}

func TestHistoryRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st, err := NewWithPool(mock)
	require.NoError(t, err)

	series := []tracker.Reading{
		{Price: 120, Currency: "EUR", CapturedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
		{Price: 100, Currency: "EUR", CapturedAt: time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)},
	}
	payload, err := json.Marshal(series)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO price_history").
		WithArgs("example.com/item", payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, st.PutHistory(context.Background(), "example.com/item", series))

	mock.ExpectQuery("SELECT readings FROM price_history").
		WithArgs("example.com/item").
		WillReturnRows(pgxmock.NewRows([]string{"readings"}).AddRow(payload))
	got, err := st.History(context.Background(), "example.com/item")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 100.0, got[1].Price)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryMissingKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st, err := NewWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT readings FROM price_history").
		WithArgs("example.com/missing").
		WillReturnRows(pgxmock.NewRows([]string{"readings"}))

	got, err := st.History(context.Background(), "example.com/missing")
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistEntryLifecycle(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st, err := NewWithPool(mock)
	require.NoError(t, err)

	target := 85.0
	entry := tracker.WishlistEntry{
		ProductKey:  "example.com/item",
		URL:         "https://example.com/item",
		Title:       "Item",
		Site:        tracker.SiteGeneric,
		TargetPrice: &target,
		CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(entry)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO wishlist").
		WithArgs(entry.ProductKey, payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, st.PutEntry(context.Background(), entry))

	mock.ExpectQuery("SELECT entry FROM wishlist").
		WithArgs(entry.ProductKey).
		WillReturnRows(pgxmock.NewRows([]string{"entry"}).AddRow(payload))
	got, err := st.Entry(context.Background(), entry.ProductKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, entry.URL, got.URL)
	require.NotNil(t, got.TargetPrice)
	require.Equal(t, 85.0, *got.TargetPrice)

	mock.ExpectExec("DELETE FROM wishlist").
		WithArgs(entry.ProductKey).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, st.DeleteEntry(context.Background(), entry.ProductKey))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistListOrdered(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st, err := NewWithPool(mock)
	require.NoError(t, err)

	a, _ := json.Marshal(tracker.WishlistEntry{ProductKey: "a.example.com/x"})
	b, _ := json.Marshal(tracker.WishlistEntry{ProductKey: "b.example.com/y"})

	mock.ExpectQuery("SELECT entry FROM wishlist ORDER BY product_key").
		WillReturnRows(pgxmock.NewRows([]string{"entry"}).AddRow(a).AddRow(b))

	got, err := st.Wishlist(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a.example.com/x", got[0].ProductKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertLogRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st, err := NewWithPool(mock)
	require.NoError(t, err)

	log := []tracker.Alert{{
		ID:         "a-1",
		ProductKey: "example.com/item",
		Reason:     tracker.ReasonTargetReached,
		Price:      80,
		CreatedAt:  time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC),
	}}
	payload, err := json.Marshal(log)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO alert_log").
		WithArgs(payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, st.PutAlerts(context.Background(), log))

	mock.ExpectQuery("SELECT alerts FROM alert_log").
		WillReturnRows(pgxmock.NewRows([]string{"alerts"}).AddRow(payload))
	got, err := st.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, tracker.ReasonTargetReached, got[0].Reason)

	require.NoError(t, mock.ExpectationsWereMet())
}
