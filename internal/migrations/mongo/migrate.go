// Package mongo creates the collections, JSON-schema validators and indexes
// the booking services rely on. Every step is idempotent.
package mongo

import (
	"context"
	"fmt"

	bookingrepository "medibook/internal/bookings/repository"
	"medibook/internal/migrations/mongo/validators"
	otprepository "medibook/internal/otp/repository"
	"medibook/pkg/lock"
	"medibook/pkg/logger"
	"medibook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collection struct {
	Name      string
	Validator bson.M
	Indexes   []mongo.IndexModel
}

var (
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_number", Value: 1}},
			Options: options.Index().SetName("uniq_booking_number").SetUnique(true),
		},
		{Keys: bson.D{{Key: "patient_ref", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "booking_status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{
			{Key: "services.practitioner_ref", Value: 1},
			{Key: "services.scheduled_date", Value: 1},
		}},
	}

	// One pending challenge per subject and purpose. Issuing supersedes the
	// old one first, so a violation means two issuers raced.
	OTPChallengesIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "subject_ref", Value: 1}, {Key: "purpose", Value: 1}},
			Options: options.Index().
				SetName("uniq_pending_subject_purpose").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": model.ChallengePending}),
		},
		{Keys: bson.D{{Key: "subject_ref", Value: 1}, {Key: "purpose", Value: 1}, {Key: "issued_at", Value: -1}}},
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
	}

	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
		},
	}
)

func Collections() []Collection {
	return []Collection{
		{Name: bookingrepository.CollectionName, Validator: validators.BookingValidator, Indexes: BookingsIndexes},
		{Name: otprepository.CollectionName, Validator: validators.OTPChallengeValidator, Indexes: OTPChallengesIndexes},
		{Name: lock.CollectionName, Validator: validators.BookingLockValidator, Indexes: BookingLocksIndexes},
	}
}

// RunMigration ensures every collection with its validator, then its indexes.
func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	if err := EnsureCollections(ctx, db, log); err != nil {
		return err
	}
	if err := EnsureIndexes(ctx, db, log); err != nil {
		return err
	}

	log.Info("All migrations applied")
	return nil
}

func EnsureCollections(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	for _, c := range Collections() {
		if err := ensureCollection(ctx, db, c.Name, c.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", c.Name, err)
		}
	}
	return nil
}

func EnsureIndexes(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	for _, c := range Collections() {
		if err := ensureIndexes(ctx, db, c.Name, c.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", c.Name, err)
		}
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
