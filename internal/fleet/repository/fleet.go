package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	fleeterrors "ambulance/internal/fleet/errors"
	"ambulance/pkg/config"
	dbmongo "ambulance/pkg/db/mongo"
	"ambulance/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DriversCollectionName    = "drivers"
	AmbulancesCollectionName = "ambulances"
)

type FleetRepository interface {
	CreateDriver(ctx context.Context, driver *model.Driver) error
	FindDriverByID(ctx context.Context, id string) (*model.Driver, error)
	FindDrivers(ctx context.Context, status string, limit int, offset int64) ([]*model.Driver, error)
	CountDrivers(ctx context.Context, status string) (int64, error)
	UpdateDriverRating(ctx context.Context, id string, average float64, count int64, at time.Time) error

	CreateAmbulance(ctx context.Context, ambulance *model.Ambulance) error
	FindAmbulanceByID(ctx context.Context, id string) (*model.Ambulance, error)
	FindAmbulances(ctx context.Context, status string, limit int, offset int64) ([]*model.Ambulance, error)
	CountAmbulances(ctx context.Context, status string) (int64, error)
	// FindMaintenanceDue returns ambulances whose next maintenance falls before the given time.
	FindMaintenanceDue(ctx context.Context, before time.Time, limit int) ([]*model.Ambulance, error)
}

type mongoFleetRepository struct {
	cfg        *config.Config
	drivers    *mongo.Collection
	ambulances *mongo.Collection
}

func NewMongoFleetRepository(cfg *config.Config) FleetRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoFleetRepository{
		cfg:        cfg,
		drivers:    db.Collection(DriversCollectionName),
		ambulances: db.Collection(AmbulancesCollectionName),
	}
}

func statusFilter(status string) bson.M {
	if status == "" {
		return bson.M{}
	}
	return bson.M{"status": status}
}

func (r *mongoFleetRepository) CreateDriver(ctx context.Context, driver *model.Driver) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.drivers.InsertOne(ctx, driver)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		driver.ID = oid.Hex()
	}
	return nil
}

func (r *mongoFleetRepository) FindDriverByID(ctx context.Context, id string) (*model.Driver, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", fleeterrors.ErrInvalidID, id)
	}

	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var driver model.Driver
	if err := r.drivers.FindOne(ctx, bson.M{"_id": objectID}).Decode(&driver); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fleeterrors.ErrDriverNotFound
		}
		return nil, fmt.Errorf("failed to find driver: %w", err)
	}
	return &driver, nil
}

func (r *mongoFleetRepository) FindDrivers(ctx context.Context, status string, limit int, offset int64) ([]*model.Driver, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.drivers.Find(ctx, statusFilter(status), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*model.Driver
	if err = cursor.All(ctx, &drivers); err != nil {
		return nil, fmt.Errorf("failed to decode drivers: %w", err)
	}
	return drivers, nil
}

func (r *mongoFleetRepository) CountDrivers(ctx context.Context, status string) (int64, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.drivers.CountDocuments(ctx, statusFilter(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count drivers: %w", err)
	}
	return count, nil
}

func (r *mongoFleetRepository) UpdateDriverRating(ctx context.Context, id string, average float64, count int64, at time.Time) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", fleeterrors.ErrInvalidID, id)
	}

	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"average_rating":    average,
		"rating_count":      count,
		"rating_updated_at": at,
	}}
	result, err := r.drivers.UpdateByID(ctx, objectID, update)
	if err != nil {
		return fmt.Errorf("failed to update driver rating: %w", err)
	}
	if result.MatchedCount == 0 {
		return fleeterrors.ErrDriverNotFound
	}
	return nil
}

func (r *mongoFleetRepository) CreateAmbulance(ctx context.Context, ambulance *model.Ambulance) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.ambulances.InsertOne(ctx, ambulance)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", fleeterrors.ErrDuplicatePlate, ambulance.PlateNumber)
		}
		return fmt.Errorf("failed to create ambulance: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		ambulance.ID = oid.Hex()
	}
	return nil
}

func (r *mongoFleetRepository) FindAmbulanceByID(ctx context.Context, id string) (*model.Ambulance, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", fleeterrors.ErrInvalidID, id)
	}

	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var ambulance model.Ambulance
	if err := r.ambulances.FindOne(ctx, bson.M{"_id": objectID}).Decode(&ambulance); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fleeterrors.ErrAmbulanceNotFound
		}
		return nil, fmt.Errorf("failed to find ambulance: %w", err)
	}
	return &ambulance, nil
}

func (r *mongoFleetRepository) FindAmbulances(ctx context.Context, status string, limit int, offset int64) ([]*model.Ambulance, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "plate_number", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.findAmbulances(ctx, statusFilter(status), opts)
}

func (r *mongoFleetRepository) CountAmbulances(ctx context.Context, status string) (int64, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.ambulances.CountDocuments(ctx, statusFilter(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count ambulances: %w", err)
	}
	return count, nil
}

func (r *mongoFleetRepository) FindMaintenanceDue(ctx context.Context, before time.Time, limit int) ([]*model.Ambulance, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "next_maintenance_at", Value: 1}}).
		SetLimit(int64(limit))
	return r.findAmbulances(ctx, bson.M{"next_maintenance_at": bson.M{"$lte": before}}, opts)
}

func (r *mongoFleetRepository) findAmbulances(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Ambulance, error) {
	cursor, err := r.ambulances.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find ambulances: %w", err)
	}
	defer cursor.Close(ctx)

	var ambulances []*model.Ambulance
	if err = cursor.All(ctx, &ambulances); err != nil {
		return nil, fmt.Errorf("failed to decode ambulances: %w", err)
	}
	return ambulances, nil
}
