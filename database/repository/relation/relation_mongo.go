package relationRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classbridge/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "cal_stripe_relations"

// MongoRelationRepo implements RelationRepository using MongoDB.
type MongoRelationRepo struct {
	coll *mongo.Collection
}

func NewMongoRelationRepo(db *mongo.Database) (*MongoRelationRepo, error) {
	repo := &MongoRelationRepo{coll: db.Collection(collectionName)}
	if err := repo.ensureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MongoRelationRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "booking_uid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create relation index: %w", err)
	}
	return nil
}

// GetByBookingUID fetches the relation written when the booking was paid for.
func (r *MongoRelationRepo) GetByBookingUID(ctx context.Context, bookingUID string) (*models.CalStripeRelation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rel models.CalStripeRelation
	if err := r.coll.FindOne(ctx, bson.M{"booking_uid": bookingUID}).Decode(&rel); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch relation for booking %s: %w", bookingUID, err)
	}
	return &rel, nil
}
