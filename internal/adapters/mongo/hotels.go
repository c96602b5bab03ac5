package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tourstay/internal/domain"
	"tourstay/internal/observability"
)

type HotelRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewHotelRepository(db *mongo.Database, logger observability.Logger) *HotelRepository {
	return &HotelRepository{
		coll:   db.Collection("hotels"),
		logger: logger,
	}
}

func (r *HotelRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Hotel, error) {
	var h domain.Hotel
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HotelRepository) Create(ctx context.Context, h domain.Hotel) error {
	_, err := r.coll.InsertOne(ctx, h)
	if err != nil {
		r.logger.Error("failed to insert hotel: ", err)
	}
	return err
}

func (r *HotelRepository) Update(ctx context.Context, h domain.Hotel) error {
	h.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": h.ID}, h)
	if err != nil {
		r.logger.Error("failed to update hotel: ", err)
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *HotelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *HotelRepository) List(ctx context.Context, limit int64) ([]domain.Hotel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	hotels := []domain.Hotel{}
	if err := cur.All(ctx, &hotels); err != nil {
		return nil, err
	}
	return hotels, nil
}
