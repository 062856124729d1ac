package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	bookingserrors "medibook/internal/bookings/errors"
	"medibook/pkg/config"
	"medibook/pkg/db"
	mongotx "medibook/pkg/db/mongo"
	"medibook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context) (int64, error)
	// Update replaces the stored booking if its version still matches and
	// bumps booking.Version.
	Update(ctx context.Context, booking *model.Booking) error
	// Search returns every booking matching filter, newest first.
	Search(ctx context.Context, filter SearchFilter) ([]*model.Booking, error)
	ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  db.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config, txManager db.TransactionManager) BookingRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: database.Collection(CollectionName),
		txManager:  txManager,
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrDuplicateNumber
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	return count, nil
}

func (r *mongoBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	expected := booking.Version
	next := booking.Clone()
	next.Version = expected + 1

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": booking.ID, "version": expected}, next)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": booking.ID}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("failed to check booking: %w", err)
		}
		if count == 0 {
			return bookingserrors.ErrNotFound
		}
		return bookingserrors.ErrVersionConflict
	}

	booking.Version = next.Version
	return nil
}

func (r *mongoBookingRepository) Search(ctx context.Context, filter SearchFilter) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, buildSearchFilter(filter), opts)
}

func buildSearchFilter(f SearchFilter) bson.M {
	filter := bson.M{}

	if f.Search != "" {
		pattern := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = []bson.M{
			{"booking_number": pattern},
			{"patient_ref": pattern},
		}
	}

	if f.Status != "" {
		filter["booking_status"] = f.Status
	}

	service := bson.M{}
	if f.Assignee != "" {
		service["practitioner_ref"] = f.Assignee
	}
	if f.From != nil || f.To != nil {
		dates := bson.M{}
		if f.From != nil {
			dates["$gte"] = *f.From
		}
		if f.To != nil {
			dates["$lt"] = *f.To
		}
		service["scheduled_date"] = dates
	}
	if len(service) > 0 {
		filter["services"] = bson.M{"$elemMatch": service}
	}

	return filter
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

// SearchFilter selects bookings for the worklist. Search is a
// case-insensitive prefix of the booking number or patient ref. Assignee and
// the [From, To) date range must hold for the same service.
type SearchFilter struct {
	Search   string
	Status   model.BookingStatus
	Assignee string
	From     *time.Time
	To       *time.Time
}

// Matches evaluates the filter in memory with the same semantics as the
// Mongo query.
func (f SearchFilter) Matches(b *model.Booking) bool {
	if f.Search != "" {
		prefix := strings.ToLower(f.Search)
		if !strings.HasPrefix(strings.ToLower(b.BookingNumber), prefix) &&
			!strings.HasPrefix(strings.ToLower(b.PatientRef), prefix) {
			return false
		}
	}
	if f.Status != "" && b.BookingStatus != f.Status {
		return false
	}
	if f.Assignee == "" && f.From == nil && f.To == nil {
		return true
	}
	for _, s := range b.Services {
		if f.Assignee != "" && s.PractitionerRef != f.Assignee {
			continue
		}
		if f.From != nil && s.ScheduledDate.Before(*f.From) {
			continue
		}
		if f.To != nil && !s.ScheduledDate.Before(*f.To) {
			continue
		}
		return true
	}
	return false
}
