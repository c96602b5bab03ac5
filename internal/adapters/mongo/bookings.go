package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tourstay/internal/domain"
	"tourstay/internal/observability"
)

type BookingRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger observability.Logger
}

func NewBookingRepository(client *mongo.Client, db *mongo.Database, logger observability.Logger) *BookingRepository {
	return &BookingRepository{
		client: client,
		coll:   db.Collection("bookings"),
		logger: logger,
	}
}

// Ping reports whether the persistence layer is reachable. The
// orchestrator fails fast on creation when it is not.
func (r *BookingRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Mark(err, domain.ErrUnavailable)
	}
	return nil
}

func (r *BookingRepository) Create(ctx context.Context, b domain.Booking) error {
	_, err := r.coll.InsertOne(ctx, b)
	if err != nil {
		r.logger.Error("failed to insert booking: ", err)
		return err
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Find returns bookings matching the filter, newest first, capped at limit.
func (r *BookingRepository) Find(ctx context.Context, filter domain.BookingFilter, limit int64) ([]domain.Booking, error) {
	query := bson.M{}
	if filter.UserID != nil {
		query["userId"] = *filter.UserID
	}
	if filter.HotelID != nil {
		query["hotelId"] = *filter.HotelID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	bookings := []domain.Booking{}
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		r.logger.Error("failed to update booking status: ", err)
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		r.logger.Error("failed to delete booking: ", err)
	}
	return err
}
