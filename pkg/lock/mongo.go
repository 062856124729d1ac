package lock

import (
	"context"
	"medibook/pkg/logger"
	"medibook/pkg/model"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Booking_locks"

// MongoLocker stores one document per held key. The unique _id makes the
// insert the acquisition; an expired row left by a crashed holder is removed
// before the next attempt.
type MongoLocker struct {
	collection *mongo.Collection
	ttl        time.Duration
	wait       time.Duration
	log        *logger.Logger
}

func NewMongoLocker(db *mongo.Database, ttl, wait time.Duration, log *logger.Logger) *MongoLocker {
	return &MongoLocker{
		collection: db.Collection(CollectionName),
		ttl:        ttl,
		wait:       wait,
		log:        log,
	}
}

func (l *MongoLocker) Acquire(ctx context.Context, key string) (Release, error) {
	owner := uuid.NewString()

	err := retry(ctx, l.wait, func(ctx context.Context) (bool, error) {
		now := time.Now().UTC()
		_, err := l.collection.InsertOne(ctx, &model.BookingLock{
			ID:        key,
			Owner:     owner,
			ExpiresAt: now.Add(l.ttl),
			CreatedAt: now,
		})
		if err == nil {
			return true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return false, err
		}

		if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lt": now}}); err != nil {
			l.log.Warn("failed to clear expired lock", "key", key, "error", err)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return once(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner}); err != nil {
			l.log.Error("failed to release lock", "key", key, "error", err)
		}
	}), nil
}
