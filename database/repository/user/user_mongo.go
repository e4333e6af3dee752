package userRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"classbridge/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const collectionName = "users"

// MongoUserRepo implements UserRepository using MongoDB.
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo creates a new instance of UserRepository using MongoDB.
func NewMongoUserRepo(db *mongo.Database) (*MongoUserRepo, error) {
	repo := &MongoUserRepo{coll: db.Collection(collectionName)}
	if err := repo.ensureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

// newContext bounds a single store call; the caller's deadline still applies.
func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByEmail retrieves a user by email address.
func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var user models.User
	if err := r.coll.FindOne(ctx, emailFilter(email)).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch user with email %s: %w", email, err)
	}
	return &user, nil
}

// SetFirstFreeClass flips the entitlement flag without rewriting the rest of
// the profile, so concurrent profile edits are not clobbered.
func (r *MongoUserRepo) SetFirstFreeClass(ctx context.Context, email string) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx, emailFilter(email), firstFreeClassUpdate())
	if err != nil {
		return false, fmt.Errorf("failed to set first_free_class for %s: %w", email, err)
	}
	return result.MatchedCount > 0, nil
}

func emailFilter(email string) bson.M {
	return bson.M{"email": normalizeEmail(email)}
}

func firstFreeClassUpdate() bson.M {
	return bson.M{"$set": bson.M{"first_free_class": true}}
}
