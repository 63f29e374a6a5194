package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	paymentserrors "ambulance/internal/payments/errors"
	"ambulance/pkg/config"
	dbmongo "ambulance/pkg/db/mongo"
	"ambulance/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "payments"

type mongoPaymentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id string) (*model.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error)
	FindByBooking(ctx context.Context, bookingID string) ([]*model.Payment, error)
	// UpdateStatus writes the transition only if the stored status still equals t.From.
	// It reports whether this call applied the change.
	UpdateStatus(ctx context.Context, id string, t model.StatusTransition) (bool, error)
	HasPaid(ctx context.Context, bookingID string) (bool, error)
	FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Payment, error)
	FindPendingCreatedBetween(ctx context.Context, from, to time.Time, limit int) ([]*model.Payment, error)
}

func NewMongoPaymentRepository(cfg *config.Config) PaymentRepository {
	return &mongoPaymentRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *mongoPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, payment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", paymentserrors.ErrDuplicateTransaction, payment.TransactionID)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		payment.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPaymentRepository) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", paymentserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoPaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	return r.findOne(ctx, bson.M{"transaction_id": transactionID})
}

func (r *mongoPaymentRepository) findOne(ctx context.Context, filter bson.M) (*model.Payment, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var payment model.Payment
	if err := r.collection.FindOne(ctx, filter).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, paymentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return &payment, nil
}

func (r *mongoPaymentRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.Payment, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"booking_id": bookingID}, opts)
}

func (r *mongoPaymentRepository) UpdateStatus(ctx context.Context, id string, t model.StatusTransition) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", paymentserrors.ErrInvalidID, id)
	}

	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{
		"status":       t.To,
		"raw_status":   t.RawStatus,
		"processed_at": t.ProcessedAt,
		"updated_at":   t.ProcessedAt,
	}
	if t.PaidAt != nil {
		set["paid_at"] = *t.PaidAt
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "status": t.From}, bson.M{"$set": set})
	if err != nil {
		// the partial unique index on paid payments rejects a second paid row per booking
		if mongo.IsDuplicateKeyError(err) {
			return false, paymentserrors.ErrAlreadyPaid
		}
		return false, fmt.Errorf("failed to update payment status: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoPaymentRepository) HasPaid(ctx context.Context, bookingID string) (bool, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx,
		bson.M{"booking_id": bookingID, "status": model.PaymentPaid},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check paid payments: %w", err)
	}
	return count > 0, nil
}

func (r *mongoPaymentRepository) FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Payment, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.PaymentPending,
		"created_at": bson.M{"$lt": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoPaymentRepository) FindPendingCreatedBetween(ctx context.Context, from, to time.Time, limit int) ([]*model.Payment, error) {
	ctx, cancel := dbmongo.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.PaymentPending,
		"created_at": bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoPaymentRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Payment, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find payments: %w", err)
	}
	defer cursor.Close(ctx)

	var payments []*model.Payment
	if err = cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}

