package domain

import "time"

// Product carries the capacity fields the reservation engine works with.
// ReservedQuantity is denormalized from the set of occupying orders and may
// drift; the reconciliation job is the authoritative writer. Version backs
// the conditional update on ReservedQuantity.
type Product struct {
	ID               string    `bson:"_id,omitempty"`
	Name             string    `bson:"name,omitempty"`
	StockQuantity    int       `bson:"stock_quantity"`
	ReservedQuantity int       `bson:"reserved_quantity"`
	Version          int64     `bson:"version"`
	UpdatedAt        time.Time `bson:"updated_at"`
}
