package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omaressamii/high-class-sub002/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrVersionConflict means the conditional counter write lost a race:
	// the product's version moved between read and write.
	ErrVersionConflict = errors.New("product version conflict")
)

type MongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{
		collection: db.Collection("products"),
	}
}

func (m *MongoProductRepository) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var product domain.Product

	err := m.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

func (m *MongoProductRepository) ListProducts(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	filter := bson.M{}
	if len(productIDs) > 0 {
		filter = bson.M{"_id": bson.M{"$in": productIDs}}
	}

	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []domain.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, nil
}

func (m *MongoProductRepository) UpdateReservedQuantity(ctx context.Context, productID string, version int64, reserved int) error {
	filter := bson.M{"_id": productID, "version": version}
	update := bson.M{
		"$set": bson.M{
			"reserved_quantity": reserved,
			"updated_at":        time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update reserved quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		// Either the product is gone or its version moved. Re-check so the
		// caller can tell a conflict from a missing product.
		count, countErr := m.collection.CountDocuments(ctx, bson.M{"_id": productID})
		if countErr != nil {
			return fmt.Errorf("failed to check product existence: %w", countErr)
		}
		if count == 0 {
			return ErrProductNotFound
		}
		return ErrVersionConflict
	}

	return nil
}

func (m *MongoProductRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}

	return nil
}
