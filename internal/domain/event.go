package domain

import "time"

// OrderStatusChanged — неизменяемая запись о смене статуса заказа.
// Публикуется только тогда, когда обновление действительно меняет статус.
type OrderStatusChanged struct {
	OrderID    int64
	OldStatus  OrderStatus
	NewStatus  OrderStatus
	OccurredAt time.Time
}
