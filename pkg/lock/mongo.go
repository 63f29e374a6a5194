package lock

import (
	"context"
	"fmt"
	"time"

	"ambulance/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "locks"

// MongoLocker stores claims in the locks collection. The TTL index on expires_at only
// garbage collects; Acquire also takes over claims whose expiry has passed.
type MongoLocker struct {
	collection *mongo.Collection
	owner      string
	now        func() time.Time
}

func NewMongoLocker(db *mongo.Database) *MongoLocker {
	return &MongoLocker{
		collection: db.Collection(CollectionName),
		owner:      uuid.NewString(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (l *MongoLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := validate(key, ttl); err != nil {
		return false, err
	}

	now := l.now()
	claim := model.Claim{
		Key:       key,
		Owner:     l.owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := l.collection.InsertOne(ctx, claim)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("failed to insert lock %s: %w", key, err)
	}

	res, err := l.collection.UpdateOne(ctx,
		bson.M{"_id": key, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"owner": l.owner, "expires_at": claim.ExpiresAt, "created_at": now}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to take over expired lock %s: %w", key, err)
	}
	return res.ModifiedCount == 1, nil
}

func (l *MongoLocker) Release(ctx context.Context, key string) error {
	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": l.owner}); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}
