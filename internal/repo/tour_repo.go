package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tazhibayda/tours-service/internal/domain"
	"github.com/tazhibayda/tours-service/internal/query"
)

var ErrDuplicateTourName = errors.New("tour name already exists")

func (s *Store) EnsureTourIndexes(ctx context.Context) error {
	if _, err := s.tours().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	// the list endpoint sorts and range-filters on price by default
	_, err := s.tours().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "price", Value: 1}},
	})
	return err
}

func (s *Store) InsertTour(ctx context.Context, t *domain.Tour) error {
	t.CreatedAt = time.Now().UTC()
	res, err := s.tours().InsertOne(ctx, t)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateTourName
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.ID = oid
	}
	return nil
}

func (s *Store) FindTourByID(ctx context.Context, id primitive.ObjectID) (*domain.Tour, error) {
	var t domain.Tour
	err := s.tours().FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) FindTours(ctx context.Context, f *query.Features) ([]domain.Tour, error) {
	cur, err := s.tours().Find(ctx, f.FilterDocument(), f.FindOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	tours := []domain.Tour{}
	if err := cur.All(ctx, &tours); err != nil {
		return nil, err
	}
	return tours, nil
}

// UpdateTour applies a partial $set and returns the updated document, or
// nil, nil when the id does not exist.
func (s *Store) UpdateTour(ctx context.Context, id primitive.ObjectID, set bson.M) (*domain.Tour, error) {
	res := s.tours().FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var t domain.Tour
	if err := res.Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateTourName
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) DeleteTour(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.tours().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
