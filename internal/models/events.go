package models

import "time"

// Event types
const (
	EventTypeOrderPlaced = "ORDER_PLACED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after the backend accepts an order. Stock
// has changed on the backend, so consumers treat it as a signal to refresh
// any cached catalog data.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     BigInt `json:"order_id"`
	SessionID   string `json:"session_id"`
	ProductID   BigInt `json:"product_id"`
	Quantity    BigInt `json:"quantity"`
	TotalAmount BigInt `json:"total_amount"`
	ItemCount   int    `json:"item_count"`
}
