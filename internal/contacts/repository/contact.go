package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	contactserrors "ambulance/internal/contacts/errors"
	"ambulance/pkg/config"
	dbmongo "ambulance/pkg/db/mongo"
	"ambulance/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "emergency_contacts"

// ContactRepository scopes every lookup and write by owner, so a foreign id reads as not found.
type ContactRepository interface {
	Create(ctx context.Context, contact *model.EmergencyContact) error
	FindByID(ctx context.Context, userID, id string) (*model.EmergencyContact, error)
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.EmergencyContact, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, contact *model.EmergencyContact) error
	Delete(ctx context.Context, userID, id string) error
	// ClearPrimary unsets is_primary on the owner's other contacts.
	ClearPrimary(ctx context.Context, userID, exceptID string) error
}

type mongoContactRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoContactRepository(cfg *config.Config) ContactRepository {
	return &mongoContactRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func ownedFilter(userID, id string) (bson.M, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", contactserrors.ErrInvalidID, id)
	}
	return bson.M{"_id": objectID, "user_id": userID}, nil
}

func (r *mongoContactRepository) Create(ctx context.Context, contact *model.EmergencyContact) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, contact)
	if err != nil {
		return fmt.Errorf("failed to create emergency contact: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		contact.ID = oid.Hex()
	}
	return nil
}

func (r *mongoContactRepository) FindByID(ctx context.Context, userID, id string) (*model.EmergencyContact, error) {
	filter, err := ownedFilter(userID, id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var contact model.EmergencyContact
	if err := r.collection.FindOne(ctx, filter).Decode(&contact); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", contactserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find emergency contact: %w", err)
	}
	return &contact, nil
}

func (r *mongoContactRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.EmergencyContact, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "is_primary", Value: -1}, {Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find emergency contacts: %w", err)
	}
	defer cursor.Close(ctx)

	var contacts []*model.EmergencyContact
	if err = cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode emergency contacts: %w", err)
	}
	return contacts, nil
}

func (r *mongoContactRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count emergency contacts: %w", err)
	}
	return count, nil
}

func (r *mongoContactRepository) Update(ctx context.Context, contact *model.EmergencyContact) error {
	filter, err := ownedFilter(contact.UserID, contact.ID)
	if err != nil {
		return err
	}

	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"name":         contact.Name,
		"relationship": contact.Relationship,
		"phone":        contact.Phone,
		"address":      contact.Address,
		"is_primary":   contact.IsPrimary,
		"updated_at":   contact.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update emergency contact: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", contactserrors.ErrNotFound, contact.ID)
	}
	return nil
}

func (r *mongoContactRepository) Delete(ctx context.Context, userID, id string) error {
	filter, err := ownedFilter(userID, id)
	if err != nil {
		return err
	}

	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete emergency contact: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", contactserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoContactRepository) ClearPrimary(ctx context.Context, userID, exceptID string) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID, "is_primary": true}
	if exceptID != "" {
		if objectID, err := primitive.ObjectIDFromHex(exceptID); err == nil {
			filter["_id"] = bson.M{"$ne": objectID}
		}
	}

	update := bson.M{"$set": bson.M{"is_primary": false, "updated_at": time.Now().UTC()}}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to clear primary emergency contact: %w", err)
	}
	return nil
}
