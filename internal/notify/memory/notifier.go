// Package memory contains an in-memory notifier for tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/pricewatch/internal/notify"
)

// Notifier stores sent notifications for inspection.
type Notifier struct {
	mu   sync.RWMutex
	sent []notify.Notification
}

// New returns a memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Send records the notification.
func (n *Notifier) Send(_ context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

// Sent returns a copy of the recorded notifications.
func (n *Notifier) Sent() []notify.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]notify.Notification, len(n.sent))
	copy(out, n.sent)
	return out
}
