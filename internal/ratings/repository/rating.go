package repository

import (
	"context"
	"errors"
	"fmt"

	ratingserrors "ambulance/internal/ratings/errors"
	"ambulance/pkg/config"
	dbmongo "ambulance/pkg/db/mongo"
	"ambulance/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "ratings"

type RatingRepository interface {
	Create(ctx context.Context, rating *model.Rating) error
	FindByBooking(ctx context.Context, bookingID string) (*model.Rating, error)
	FindByDriver(ctx context.Context, driverID string, limit int, offset int64) ([]*model.Rating, error)
	CountByDriver(ctx context.Context, driverID string) (int64, error)
	// AggregateByDriver computes the average stars and rating count for every rated driver.
	AggregateByDriver(ctx context.Context) ([]model.DriverRatingSummary, error)
}

type mongoRatingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRatingRepository(cfg *config.Config) RatingRepository {
	return &mongoRatingRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *mongoRatingRepository) Create(ctx context.Context, rating *model.Rating) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, rating)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ratingserrors.ErrAlreadyRated, rating.BookingID)
		}
		return fmt.Errorf("failed to create rating: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rating.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRatingRepository) FindByBooking(ctx context.Context, bookingID string) (*model.Rating, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var rating model.Rating
	if err := r.collection.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&rating); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ratingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find rating: %w", err)
	}
	return &rating, nil
}

func (r *mongoRatingRepository) FindByDriver(ctx context.Context, driverID string, limit int, offset int64) ([]*model.Rating, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"driver_id": driverID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var ratings []*model.Rating
	if err = cursor.All(ctx, &ratings); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}
	return ratings, nil
}

func (r *mongoRatingRepository) CountByDriver(ctx context.Context, driverID string) (int64, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"driver_id": driverID})
	if err != nil {
		return 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return count, nil
}

func (r *mongoRatingRepository) AggregateByDriver(ctx context.Context) ([]model.DriverRatingSummary, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"driver_id": bson.M{"$nin": bson.A{nil, ""}}}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$driver_id",
			"average": bson.M{"$avg": "$stars"},
			"count":   bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []model.DriverRatingSummary
	if err = cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode rating summaries: %w", err)
	}
	return summaries, nil
}
