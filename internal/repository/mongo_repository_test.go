package repository

import (
	"context"
	"testing"
	"time"

	"github.com/omaressamii/high-class-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	// Get connection string
	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Connect to MongoDB
	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func setupRepos(t *testing.T) (*MongoOrderRepository, *MongoProductRepository, func()) {
	db, cleanup := setupTestDB(t)
	ctx := context.Background()

	orders := NewMongoOrderRepository(db)
	require.NoError(t, orders.CreateIndexes(ctx))

	products := NewMongoProductRepository(db)
	require.NoError(t, products.CreateIndexes(ctx))

	return orders, products, cleanup
}

func day(d int) time.Time {
	return time.Date(2026, time.May, d, 0, 0, 0, 0, time.UTC)
}

func insertProduct(t *testing.T, db *MongoProductRepository, p domain.Product) {
	_, err := db.collection.InsertOne(context.Background(), p)
	require.NoError(t, err)
}

func TestGetProduct_NotFound(t *testing.T) {
	_, products, cleanup := setupRepos(t)
	defer cleanup()

	product, err := products.GetProduct(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Nil(t, product)
}

func TestUpdateReservedQuantity_VersionChecked(t *testing.T) {
	_, products, cleanup := setupRepos(t)
	defer cleanup()
	ctx := context.Background()

	insertProduct(t, products, domain.Product{ID: "p1", StockQuantity: 5, ReservedQuantity: 0, Version: 1})

	// Matching version succeeds and bumps the version.
	require.NoError(t, products.UpdateReservedQuantity(ctx, "p1", 1, 2))

	p, err := products.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.ReservedQuantity)
	assert.Equal(t, int64(2), p.Version)

	// Stale version conflicts.
	err = products.UpdateReservedQuantity(ctx, "p1", 1, 3)
	assert.ErrorIs(t, err, ErrVersionConflict)

	// Unknown product is not a conflict.
	err = products.UpdateReservedQuantity(ctx, "ghost", 1, 3)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListProducts(t *testing.T) {
	_, products, cleanup := setupRepos(t)
	defer cleanup()
	ctx := context.Background()

	insertProduct(t, products, domain.Product{ID: "p1", StockQuantity: 5, Version: 1})
	insertProduct(t, products, domain.Product{ID: "p2", StockQuantity: 3, Version: 1})
	insertProduct(t, products, domain.Product{ID: "p3", StockQuantity: 1, Version: 1})

	// Empty filter returns everything.
	all, err := products.ListProducts(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	subset, err := products.ListProducts(ctx, []string{"p1", "p3"})
	require.NoError(t, err)
	require.Len(t, subset, 2)
}

func TestIntervalsForProduct_FlattensAndSorts(t *testing.T) {
	orders, _, cleanup := setupRepos(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, orders.InsertOrder(ctx, &domain.Order{
		ID:     "order-b",
		Status: domain.StatusOngoing,
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 1, DeliveryDate: day(10), ReturnDate: day(15)},
			{ProductID: "p2", Quantity: 2, DeliveryDate: day(10), ReturnDate: day(15)},
		},
	}))
	require.NoError(t, orders.InsertOrder(ctx, &domain.Order{
		ID:     "order-a",
		Status: domain.StatusPending,
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 3, DeliveryDate: day(10), ReturnDate: day(12)},
		},
	}))
	// Cancelled orders never show up.
	require.NoError(t, orders.InsertOrder(ctx, &domain.Order{
		ID:     "order-c",
		Status: domain.StatusCancelled,
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 9, DeliveryDate: day(1), ReturnDate: day(28)},
		},
	}))

	intervals, err := orders.IntervalsForProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, intervals, 2)

	// Same start day: order id breaks the tie.
	assert.Equal(t, "order-a", intervals[0].OrderID)
	assert.Equal(t, "order-b", intervals[1].OrderID)
	assert.Equal(t, 3, intervals[0].Quantity)
	assert.Equal(t, day(10), intervals[0].Start)
	assert.Equal(t, day(12), intervals[0].End)
	assert.Equal(t, "p1", intervals[0].ProductID)
}

func TestIntervalsByProduct_SingleScan(t *testing.T) {
	orders, _, cleanup := setupRepos(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, orders.InsertOrder(ctx, &domain.Order{
		ID:     "order-1",
		Status: domain.StatusOngoing,
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 1, DeliveryDate: day(10), ReturnDate: day(15)},
			{ProductID: "p2", Quantity: 2, DeliveryDate: day(20), ReturnDate: day(25)},
		},
	}))

	byProduct, err := orders.IntervalsByProduct(ctx)
	require.NoError(t, err)
	assert.Len(t, byProduct, 2)
	require.Len(t, byProduct["p1"], 1)
	require.Len(t, byProduct["p2"], 1)
	assert.Equal(t, 2, byProduct["p2"][0].Quantity)
}

func TestSetOrderStatus(t *testing.T) {
	orders, _, cleanup := setupRepos(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, orders.InsertOrder(ctx, &domain.Order{
		ID:     "order-1",
		Status: domain.StatusOngoing,
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 1, DeliveryDate: day(10), ReturnDate: day(15)},
		},
	}))

	require.NoError(t, orders.SetOrderStatus(ctx, "order-1", domain.StatusReturned))

	// The interval drops out of the index immediately.
	intervals, err := orders.IntervalsForProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, intervals)

	assert.ErrorIs(t, orders.SetOrderStatus(ctx, "ghost", domain.StatusReturned), ErrOrderNotFound)
}

func TestUpsertOrderItem(t *testing.T) {
	orders, _, cleanup := setupRepos(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, orders.InsertOrder(ctx, &domain.Order{
		ID:     "order-1",
		Status: domain.StatusOngoing,
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 1, DeliveryDate: day(10), ReturnDate: day(15)},
		},
	}))

	// Replace the existing line for p1.
	require.NoError(t, orders.UpsertOrderItem(ctx, "order-1", domain.OrderItem{
		ProductID: "p1", Quantity: 2, DeliveryDate: day(12), ReturnDate: day(18),
	}))

	intervals, err := orders.IntervalsForProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, 2, intervals[0].Quantity)
	assert.Equal(t, day(12), intervals[0].Start)

	// A new product line is pushed.
	require.NoError(t, orders.UpsertOrderItem(ctx, "order-1", domain.OrderItem{
		ProductID: "p2", Quantity: 1, DeliveryDate: day(12), ReturnDate: day(18),
	}))

	order, err := orders.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, order.Items, 2)

	assert.ErrorIs(t, orders.UpsertOrderItem(ctx, "ghost", domain.OrderItem{ProductID: "p1"}), ErrOrderNotFound)
}
