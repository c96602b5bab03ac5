package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tourstay/internal/domain"
	"tourstay/internal/observability"
)

type StoreRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewStoreRepository(db *mongo.Database, logger observability.Logger) *StoreRepository {
	return &StoreRepository{
		coll:   db.Collection("stores"),
		logger: logger,
	}
}

func (r *StoreRepository) Create(ctx context.Context, s domain.Store) error {
	_, err := r.coll.InsertOne(ctx, s)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConflict
	}
	if err != nil {
		r.logger.Error("failed to insert store: ", err)
	}
	return err
}

func (r *StoreRepository) FindBySlug(ctx context.Context, slug string) (*domain.Store, error) {
	var s domain.Store
	err := r.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepository) List(ctx context.Context, category string, limit int64) ([]domain.Store, error) {
	query := bson.M{}
	if category != "" {
		query["category"] = category
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	stores := []domain.Store{}
	if err := cur.All(ctx, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// EnsureIndexes creates the unique slug index used for duplicate detection.
func (r *StoreRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
