package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Bayazov/OrderManagement/internal/domain"
)

func TestNewStatusChangedEvent(t *testing.T) {
	occurred := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	event := NewStatusChangedEvent(domain.OrderStatusChanged{
		OrderID:    7,
		OldStatus:  domain.OrderStatusPending,
		NewStatus:  domain.OrderStatusConfirmed,
		OccurredAt: occurred,
	})

	if event.EventID == "" {
		t.Error("expected event ID to be assigned")
	}
	if event.OrderID != 7 {
		t.Errorf("order ID = %d, want 7", event.OrderID)
	}
	if event.OldStatus != "PENDING" || event.NewStatus != "CONFIRMED" {
		t.Errorf("unexpected statuses: %s -> %s", event.OldStatus, event.NewStatus)
	}
	if !event.OccurredAt.Equal(occurred) {
		t.Errorf("occurred at = %s, want %s", event.OccurredAt, occurred)
	}
}

func TestNewStatusChangedEventFillsMissingTimestamp(t *testing.T) {
	event := NewStatusChangedEvent(domain.OrderStatusChanged{OrderID: 1})
	if event.OccurredAt.IsZero() {
		t.Error("expected timestamp to be filled")
	}
}

func TestStatusChangedEventJSONShape(t *testing.T) {
	event := NewStatusChangedEvent(domain.OrderStatusChanged{
		OrderID:   7,
		OldStatus: domain.OrderStatusPending,
		NewStatus: domain.OrderStatusCancelled,
	})

	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"event_id", "order_id", "old_status", "new_status", "occurred_at"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q in payload", key)
		}
	}
}
