package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/omaressamii/high-class-sub002/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrOrderNotFound = errors.New("order not found")

var occupyingStatuses = []domain.OrderStatus{domain.StatusPending, domain.StatusOngoing}

type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (m *MongoOrderRepository) IntervalsForProduct(ctx context.Context, productID string) ([]domain.Interval, error) {
	filter := bson.M{
		"status":           bson.M{"$in": occupyingStatuses},
		"items.product_id": productID,
	}

	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query occupying orders: %w", err)
	}
	defer cursor.Close(ctx)

	var intervals []domain.Interval
	for cursor.Next(ctx) {
		var order domain.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		intervals = append(intervals, flattenOrder(&order, productID)...)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	sortIntervals(intervals)
	return intervals, nil
}

func (m *MongoOrderRepository) IntervalsByProduct(ctx context.Context) (map[string][]domain.Interval, error) {
	filter := bson.M{"status": bson.M{"$in": occupyingStatuses}}

	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query occupying orders: %w", err)
	}
	defer cursor.Close(ctx)

	byProduct := make(map[string][]domain.Interval)
	for cursor.Next(ctx) {
		var order domain.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		for _, iv := range flattenOrder(&order, "") {
			byProduct[iv.ProductID] = append(byProduct[iv.ProductID], iv)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	for _, intervals := range byProduct {
		sortIntervals(intervals)
	}
	return byProduct, nil
}

func (m *MongoOrderRepository) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order

	err := m.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

func (m *MongoOrderRepository) InsertOrder(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	if _, err := m.collection.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *MongoOrderRepository) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		},
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": orderID}, update)
	if err != nil {
		return fmt.Errorf("failed to set order status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (m *MongoOrderRepository) UpsertOrderItem(ctx context.Context, orderID string, item domain.OrderItem) error {
	now := time.Now()

	// Replace the line for this product if the order already has one,
	// otherwise push a new line.
	filter := bson.M{"_id": orderID, "items.product_id": item.ProductID}
	update := bson.M{
		"$set": bson.M{
			"items.$[elem]": item,
			"updated_at":    now,
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product_id": item.ProductID},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update order item: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	push := bson.M{
		"$push": bson.M{"items": item},
		"$set":  bson.M{"updated_at": now},
	}
	result, err = m.collection.UpdateOne(ctx, bson.M{"_id": orderID}, push)
	if err != nil {
		return fmt.Errorf("failed to add order item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (m *MongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "items.product_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}

	return nil
}

// flattenOrder derives intervals from an order's line items. productID
// narrows the result to one product; empty keeps every line. Dates are
// normalized to UTC midnight on the way out.
func flattenOrder(order *domain.Order, productID string) []domain.Interval {
	var intervals []domain.Interval
	for _, item := range order.Items {
		if productID != "" && item.ProductID != productID {
			continue
		}
		intervals = append(intervals, domain.Interval{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Start:     domain.Day(item.DeliveryDate),
			End:       domain.Day(item.ReturnDate),
			Status:    order.Status,
		})
	}
	return intervals
}

func sortIntervals(intervals []domain.Interval) {
	sort.Slice(intervals, func(i, j int) bool {
		if !intervals[i].Start.Equal(intervals[j].Start) {
			return intervals[i].Start.Before(intervals[j].Start)
		}
		return intervals[i].OrderID < intervals[j].OrderID
	})
}
