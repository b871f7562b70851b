package repositories

import (
	"context"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeliveryRepository is the dead-letter store for notification writes that
// ran out of retries.
type DeliveryRepository interface {
	SaveFailed(ctx context.Context, delivery *models.FailedDelivery) error
	// ListFailed returns up to limit deliveries, oldest first.
	ListFailed(ctx context.Context, limit int) ([]models.FailedDelivery, error)
	DeleteFailed(ctx context.Context, id string) error
}

type mongoDeliveryRepository struct {
	collection *mongo.Collection
}

func NewMongoDeliveryRepository(mongoDB *mongo.Database) DeliveryRepository {
	return &mongoDeliveryRepository{collection: mongoDB.Collection("failed_deliveries")}
}

// SaveFailed upserts by id so a delivery that fails again keeps one record.
func (r *mongoDeliveryRepository) SaveFailed(ctx context.Context, delivery *models.FailedDelivery) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": delivery.ID}, delivery, opts)
	if err != nil {
		return apperrors.Infrastructure("save failed delivery", err)
	}
	return nil
}

func (r *mongoDeliveryRepository) ListFailed(ctx context.Context, limit int) ([]models.FailedDelivery, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperrors.Infrastructure("list failed deliveries", err)
	}
	defer cursor.Close(ctx)

	var deliveries []models.FailedDelivery
	if err = cursor.All(ctx, &deliveries); err != nil {
		return nil, apperrors.Infrastructure("decode failed deliveries", err)
	}
	for i := range deliveries {
		deliveries[i].Notification.RecipientID = deliveries[i].RecipientID
	}
	return deliveries, nil
}

func (r *mongoDeliveryRepository) DeleteFailed(ctx context.Context, id string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return apperrors.Infrastructure("delete failed delivery", err)
	}
	return nil
}
