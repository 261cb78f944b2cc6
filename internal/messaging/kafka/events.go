package kafka

import (
	"time"

	"github.com/google/uuid"
)

// EventType определяет тип события жизненного цикла.
type EventType string

const (
	// События заказа
	EventTypeOrderSubmitted EventType = "order.submitted"
	EventTypeOrderRejected  EventType = "order.rejected"

	// События оплаты
	EventTypePaymentConfirmed     EventType = "payment.confirmed"
	EventTypePaymentDeclined      EventType = "payment.declined"
	EventTypePaymentIndeterminate EventType = "payment.indeterminate"
	EventTypePaymentReconciled    EventType = "payment.reconciled"

	// События корзины
	EventTypeCartCleared EventType = "cart.cleared"
)

// Topics для Kafka
const (
	TopicOrderEvents = "storefront.order.events"
)

// LifecycleEvent представляет событие жизненного цикла заказа/корзины.
type LifecycleEvent struct {
	EventID   string                 `json:"event_id"`
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewLifecycleEvent создаёт новое событие жизненного цикла.
func NewLifecycleEvent(eventType EventType, orderID string, metadata map[string]interface{}) *LifecycleEvent {
	return &LifecycleEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		OrderID:   orderID,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
