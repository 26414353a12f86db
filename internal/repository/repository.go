package repository

import (
	"context"

	"github.com/omaressamii/high-class-sub002/internal/domain"
)

// OrderRepository is the read projection over the orders collection plus
// the order writes the HTTP reservation path delegates back to the store.
// The orders collection stays the single source of truth for intervals.
type OrderRepository interface {
	// IntervalsForProduct returns the occupying reservation intervals for
	// one product, sorted ascending by start date, ties broken by order id.
	IntervalsForProduct(ctx context.Context, productID string) ([]domain.Interval, error)

	// IntervalsByProduct returns the occupying intervals of every product
	// in a single scan, for batch reconciliation.
	IntervalsByProduct(ctx context.Context) (map[string][]domain.Interval, error)

	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	InsertOrder(ctx context.Context, order *domain.Order) error
	SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	UpsertOrderItem(ctx context.Context, orderID string, item domain.OrderItem) error
}

// ProductRepository reads product capacity fields and performs the
// version-checked counter write. Only UpdateReservedQuantity mutates.
type ProductRepository interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)

	// ListProducts returns the named products, or every product when ids
	// is empty.
	ListProducts(ctx context.Context, productIDs []string) ([]domain.Product, error)

	// UpdateReservedQuantity sets reserved_quantity iff the stored version
	// still matches. Returns ErrVersionConflict when another writer got
	// there first.
	UpdateReservedQuantity(ctx context.Context, productID string, version int64, reserved int) error
}
