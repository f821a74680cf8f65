package domain

import "time"

const EventTypeOrderPlaced = "order.placed"

type OutboxEvent struct {
	ID          string     `bson:"_id"`
	AggregateID string     `bson:"aggregate_id"`
	EventType   string     `bson:"event_type"`
	Payload     []byte     `bson:"payload"`
	CreatedAt   time.Time  `bson:"created_at"`
	PublishedAt *time.Time `bson:"published_at"`
}

type OrderPlacedItem struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// OrderPlacedEvent is consumed by the invoice generator.
type OrderPlacedEvent struct {
	EventID  string            `json:"event_id"`
	OrderID  string            `json:"order_id"`
	UserID   string            `json:"user_id"`
	Email    string            `json:"email"`
	Total    float64           `json:"total"`
	Items    []OrderPlacedItem `json:"items"`
	PlacedAt time.Time         `json:"placed_at"`
}
