package kafka

import (
	"time"

	"github.com/google/uuid"

	"github.com/Bayazov/OrderManagement/internal/domain"
)

// TopicOrderStatusChanged — topic для уведомлений о смене статуса заказа.
const TopicOrderStatusChanged = "orders.status-changed"

// StatusChangedEvent — wire-представление доменного события OrderStatusChanged.
type StatusChangedEvent struct {
	EventID    string    `json:"event_id"`
	OrderID    int64     `json:"order_id"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewStatusChangedEvent конвертирует доменное событие в публикуемый payload.
func NewStatusChangedEvent(event domain.OrderStatusChanged) StatusChangedEvent {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return StatusChangedEvent{
		EventID:    uuid.NewString(),
		OrderID:    event.OrderID,
		OldStatus:  string(event.OldStatus),
		NewStatus:  string(event.NewStatus),
		OccurredAt: occurred,
	}
}
