// Package notify delivers fired price alerts to external channels.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// Notification is the user-facing rendering of a fired alert.
type Notification struct {
	ID         string    `json:"id"`
	ProductKey string    `json:"product_key"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notifier delivers a single notification. Implementations must be
// safe for concurrent use; callers treat delivery as best effort.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// FromAlert renders an alert into a Notification.
func FromAlert(a tracker.Alert) Notification {
	return Notification{
		ID:         a.ID,
		ProductKey: a.ProductKey,
		Title:      a.Title,
		Body:       a.Reason,
		Price:      a.Price,
		Currency:   a.Currency,
		Reason:     a.Reason,
		CreatedAt:  a.CreatedAt,
	}
}

// LogNotifier writes notifications to the structured log. It is the
// default delivery channel when no external backend is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier wires a Zap logger to the Notifier interface.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the notification with structured fields.
func (n *LogNotifier) Send(_ context.Context, msg Notification) error {
	n.logger.Info("price alert",
		zap.String("id", msg.ID),
		zap.String("product_key", msg.ProductKey),
		zap.String("title", msg.Title),
		zap.Float64("price", msg.Price),
		zap.String("currency", msg.Currency),
		zap.String("reason", msg.Reason),
	)
	return nil
}
