package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderEventType names an order lifecycle event published to the broker.
type OrderEventType string

const (
	EventOrderCreated       OrderEventType = "order.created"
	EventOrderCancelled     OrderEventType = "order.cancelled"
	EventOrderStatusChanged OrderEventType = "order.status_changed"
	EventPaymentUnrecorded  OrderEventType = "payment.unrecorded"
)

// OrderEvent is the message body of every order lifecycle event.
type OrderEvent struct {
	Type           OrderEventType  `json:"type"`
	OrderID        uint            `json:"order_id,omitempty"`
	OrderRef       string          `json:"order_ref,omitempty"`
	UserID         *uint           `json:"user_id,omitempty"`
	Status         OrderStatus     `json:"status,omitempty"`
	Total          decimal.Decimal `json:"total"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// NewOrderEvent builds an event describing the current state of order.
func NewOrderEvent(eventType OrderEventType, order *Order) OrderEvent {
	return OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		OrderRef:   order.OrderRef,
		UserID:     order.UserID,
		Status:     order.Status,
		Total:      order.Total,
		OccurredAt: time.Now().UTC(),
	}
}
