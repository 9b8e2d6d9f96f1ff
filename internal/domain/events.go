package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EventType определяет тип события жизненного цикла заказа.
type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderDeleted       EventType = "order.deleted"
	EventTypeOrdersCleared      EventType = "orders.cleared"
)

// AggregateTypeOrder — тип агрегата в outbox для событий заказа.
const AggregateTypeOrder = "order"

// OrderEvent — полезная нагрузка события заказа в outbox.
type OrderEvent struct {
	EventType EventType `json:"event_type"`
	OrderID   int64     `json:"order_id,omitempty"`
	UserID    int64     `json:"user_id,omitempty"`
	ToadID    *int64    `json:"toad_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Removed   int64     `json:"removed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent собирает событие по текущему состоянию заказа.
func NewOrderEvent(eventType EventType, order Order) OrderEvent {
	return OrderEvent{
		EventType: eventType,
		OrderID:   order.ID,
		UserID:    order.UserID,
		ToadID:    order.ToadID,
		Status:    order.StatusName,
		Timestamp: time.Now().UTC(),
	}
}

// OutboxMessage сериализует событие в сообщение outbox.
func (e OrderEvent) OutboxMessage() (OutboxMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal %s event: %w", e.EventType, err)
	}

	aggregateID := "*"
	if e.OrderID != 0 {
		aggregateID = strconv.FormatInt(e.OrderID, 10)
	}

	return OutboxMessage{
		AggregateType: AggregateTypeOrder,
		AggregateID:   aggregateID,
		EventType:     string(e.EventType),
		Payload:       payload,
	}, nil
}
