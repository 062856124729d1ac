package repository

import (
	"context"
	"errors"
	"fmt"
	otperrors "medibook/internal/otp/errors"
	"medibook/pkg/config"
	"medibook/pkg/db"
	mongotx "medibook/pkg/db/mongo"
	"medibook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "OTP_challenges"
)

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *model.OTPChallenge) error
	FindByID(ctx context.Context, id string) (*model.OTPChallenge, error)
	FindPending(ctx context.Context, subjectRef string, purpose model.OTPPurpose) (*model.OTPChallenge, error)
	FindLatest(ctx context.Context, subjectRef string, purpose model.OTPPurpose) (*model.OTPChallenge, error)
	SupersedePending(ctx context.Context, subjectRef string, purpose model.OTPPurpose, at time.Time) (int64, error)
	SupersedeBooking(ctx context.Context, bookingID string, at time.Time) (int64, error)
	MarkValidated(ctx context.Context, id string, at time.Time) error
	MarkExpired(ctx context.Context, id string, at time.Time) error
	IncrementAttempts(ctx context.Context, id string, at time.Time) error
	SetDelivery(ctx context.Context, id string, status model.DeliveryStatus, deliveryErr string, at time.Time) error
	ExpireStale(ctx context.Context, before time.Time, at time.Time) (int64, error)
	ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error
}

type mongoChallengeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  db.TransactionManager
}

func NewMongoChallengeRepository(cfg *config.Config, txManager db.TransactionManager) ChallengeRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoChallengeRepository{
		cfg:        cfg,
		collection: database.Collection(CollectionName),
		txManager:  txManager,
	}
}

func (r *mongoChallengeRepository) Create(ctx context.Context, challenge *model.OTPChallenge) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, challenge); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return otperrors.ErrPendingExists
		}
		return fmt.Errorf("failed to create otp challenge: %w", err)
	}
	return nil
}

func (r *mongoChallengeRepository) FindByID(ctx context.Context, id string) (*model.OTPChallenge, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoChallengeRepository) FindPending(ctx context.Context, subjectRef string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{
		"subject_ref": subjectRef,
		"purpose":     purpose,
		"status":      model.ChallengePending,
	})
}

// FindLatest returns the most recently issued challenge for the subject in
// any status.
func (r *mongoChallengeRepository) FindLatest(ctx context.Context, subjectRef string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{
		"subject_ref": subjectRef,
		"purpose":     purpose,
	}, options.FindOne().SetSort(bson.D{{Key: "issued_at", Value: -1}}))
}

func (r *mongoChallengeRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*model.OTPChallenge, error) {
	var challenge model.OTPChallenge
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&challenge)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, otperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find otp challenge: %w", err)
	}
	return &challenge, nil
}

func (r *mongoChallengeRepository) SupersedePending(ctx context.Context, subjectRef string, purpose model.OTPPurpose, at time.Time) (int64, error) {
	return r.supersede(ctx, bson.M{
		"subject_ref": subjectRef,
		"purpose":     purpose,
		"status":      model.ChallengePending,
	}, at)
}

func (r *mongoChallengeRepository) SupersedeBooking(ctx context.Context, bookingID string, at time.Time) (int64, error) {
	return r.supersede(ctx, bson.M{
		"booking_id": bookingID,
		"status":     model.ChallengePending,
	}, at)
}

func (r *mongoChallengeRepository) supersede(ctx context.Context, filter bson.M, at time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{
			"status":        model.ChallengeSuperseded,
			"superseded_at": at,
			"updated_at":    at,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to supersede otp challenges: %w", err)
	}
	return result.ModifiedCount, nil
}

// MarkValidated flips a pending challenge to validated. The status predicate
// makes concurrent consumers race on the document, so exactly one wins.
func (r *mongoChallengeRepository) MarkValidated(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, bson.M{
		"status":       model.ChallengeValidated,
		"validated_at": at,
		"updated_at":   at,
	})
}

func (r *mongoChallengeRepository) MarkExpired(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, bson.M{
		"status":     model.ChallengeExpired,
		"updated_at": at,
	})
}

func (r *mongoChallengeRepository) transition(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": model.ChallengePending},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update otp challenge: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missingOrNotPending(ctx, id)
	}
	return nil
}

func (r *mongoChallengeRepository) missingOrNotPending(ctx context.Context, id string) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check otp challenge: %w", err)
	}
	if count == 0 {
		return otperrors.ErrNotFound
	}
	return otperrors.ErrNotPending
}

func (r *mongoChallengeRepository) IncrementAttempts(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"attempts": 1},
			"$set": bson.M{"updated_at": at},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to record otp attempt: %w", err)
	}
	if result.MatchedCount == 0 {
		return otperrors.ErrNotFound
	}
	return nil
}

func (r *mongoChallengeRepository) SetDelivery(ctx context.Context, id string, status model.DeliveryStatus, deliveryErr string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{
		"delivery_status": status,
		"updated_at":      at,
	}
	update := bson.M{"$set": set}
	if deliveryErr != "" {
		set["delivery_error"] = deliveryErr
	} else {
		update["$unset"] = bson.M{"delivery_error": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update otp delivery status: %w", err)
	}
	if result.MatchedCount == 0 {
		return otperrors.ErrNotFound
	}
	return nil
}

func (r *mongoChallengeRepository) ExpireStale(ctx context.Context, before time.Time, at time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx,
		bson.M{
			"status":     model.ChallengePending,
			"expires_at": bson.M{"$lt": before},
		},
		bson.M{"$set": bson.M{
			"status":     model.ChallengeExpired,
			"updated_at": at,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale otp challenges: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoChallengeRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
