package memory

import (
	"context"
	"testing"

	"github.com/JakeFAU/pricewatch/internal/notify"
)

func TestNotifierRecordsSends(t *testing.T) {
	t.Parallel()

	n := New()
	if err := n.Send(context.Background(), notify.Notification{ID: "a-1", Title: "Item"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := n.Send(context.Background(), notify.Notification{ID: "a-2", Title: "Other"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	sent := n.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(sent))
	}
	if sent[0].ID != "a-1" || sent[1].ID != "a-2" {
		t.Fatalf("ids not recorded correctly: %+v", sent)
	}

	sent[0].ID = "modified"
	if n.Sent()[0].ID == "modified" {
		t.Fatal("expected Sent() to return a copy")
	}
}
