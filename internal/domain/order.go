package domain

import "time"

// OrderStatus is the lifecycle state of a rental order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusOngoing   OrderStatus = "ongoing"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
	StatusReturned  OrderStatus = "returned"
)

// Occupying reports whether orders in this status still count against stock.
// Only pending and ongoing orders hold units; completed, cancelled and
// returned orders release them.
func (s OrderStatus) Occupying() bool {
	return s == StatusPending || s == StatusOngoing
}

type Order struct {
	ID         string      `bson:"_id,omitempty"`
	CustomerID string      `bson:"customer_id,omitempty"`
	Status     OrderStatus `bson:"status"`
	Items      []OrderItem `bson:"items"`
	CreatedAt  time.Time   `bson:"created_at"`
	UpdatedAt  time.Time   `bson:"updated_at"`
}

type OrderItem struct {
	ProductID    string    `bson:"product_id"`
	Quantity     int       `bson:"quantity"`
	DeliveryDate time.Time `bson:"delivery_date"`
	ReturnDate   time.Time `bson:"return_date"`
}
