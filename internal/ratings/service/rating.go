package service

import (
	"context"
	"errors"
	"sync"
	"time"

	ratingserrors "ambulance/internal/ratings/errors"
	"ambulance/internal/ratings/repository"
	"ambulance/internal/ratings/validator"
	"ambulance/pkg/config"
	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/model"
	"ambulance/pkg/sanitizer"
)

type RatingService interface {
	// Create records the owner's rating of a completed booking. A booking is rated once.
	Create(ctx context.Context, actor model.Actor, rating *model.Rating) error
	GetByBooking(ctx context.Context, actor model.Actor, bookingID string) (*model.Rating, error)
	ListByDriver(ctx context.Context, driverID string, limit int, offset int64) ([]*model.Rating, int64, error)
	AggregateByDriver(ctx context.Context) ([]model.DriverRatingSummary, error)
}

// BookingReader resolves a booking with the caller's visibility rules applied.
type BookingReader interface {
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
}

type ratingService struct {
	repo      repository.RatingRepository
	validator *validator.RatingValidator
	bookings  BookingReader
	cfg       *config.Config
	now       func() time.Time
}

func NewRatingService(repo repository.RatingRepository, validator *validator.RatingValidator, bookings BookingReader, cfg *config.Config) RatingService {
	return &ratingService{
		repo:      repo,
		validator: validator,
		bookings:  bookings,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ratingService) Create(ctx context.Context, actor model.Actor, rating *model.Rating) error {
	if rating == nil {
		return apperrors.InvalidInput("Rating cannot be empty")
	}
	if actor.Role != model.RoleUser {
		return apperrors.Forbidden("Only the booking owner can rate a booking")
	}

	rating.Comments = sanitizer.NormalizeText(rating.Comments)
	if err := s.validator.Validate(rating); err != nil {
		return apperrors.Validation("Rating validation failed", map[string]any{"error": err.Error()})
	}

	booking, err := s.bookings.GetByID(ctx, actor, rating.BookingID)
	if err != nil {
		return err
	}
	if booking.UserID != actor.ID {
		return apperrors.Forbidden("Only the booking owner can rate a booking")
	}
	if booking.Status != model.StatusCompleted {
		return apperrors.Validation("Only completed bookings can be rated", map[string]any{
			"booking_id": booking.ID,
			"status":     string(booking.Status),
		})
	}

	rating.ID = ""
	rating.UserID = actor.ID
	rating.DriverID = ""
	if booking.DriverID != nil {
		rating.DriverID = *booking.DriverID
	}
	rating.CreatedAt = s.now()

	if err := s.repo.Create(ctx, rating); err != nil {
		if errors.Is(err, ratingserrors.ErrAlreadyRated) {
			return apperrors.Conflict("Booking has already been rated")
		}
		s.cfg.Log.Error("Failed to create rating", "booking_id", rating.BookingID, "error", err)
		return apperrors.Internal("Failed to create rating", err)
	}

	s.cfg.Log.Info("Booking rated",
		"booking_id", rating.BookingID,
		"driver_id", rating.DriverID,
		"stars", rating.Stars,
	)
	return nil
}

func (s *ratingService) GetByBooking(ctx context.Context, actor model.Actor, bookingID string) (*model.Rating, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if _, err := s.bookings.GetByID(ctx, actor, bookingID); err != nil {
		return nil, err
	}

	rating, err := s.repo.FindByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ratingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Rating", bookingID)
		}
		s.cfg.Log.Error("Failed to retrieve rating", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve rating", err)
	}

	if actor.IsAdmin() || rating.UserID == actor.ID {
		return rating, nil
	}
	public := rating.Public()
	return &public, nil
}

func (s *ratingService) ListByDriver(ctx context.Context, driverID string, limit int, offset int64) ([]*model.Rating, int64, error) {
	if driverID == "" {
		return nil, 0, apperrors.InvalidInput("Driver ID cannot be empty")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		ratings           []*model.Rating
		count             int64
		errFind, errCount error
		wg                sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ratings, errFind = s.repo.FindByDriver(ctx, driverID, limit, offset)
	}()
	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByDriver(ctx, driverID)
	}()
	wg.Wait()

	if err := errors.Join(errFind, errCount); err != nil {
		s.cfg.Log.Error("Failed to list ratings", "driver_id", driverID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve ratings", err)
	}

	for i, r := range ratings {
		public := r.Public()
		ratings[i] = &public
	}
	return ratings, count, nil
}

func (s *ratingService) AggregateByDriver(ctx context.Context) ([]model.DriverRatingSummary, error) {
	summaries, err := s.repo.AggregateByDriver(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate driver ratings", "error", err)
		return nil, apperrors.Internal("Failed to aggregate driver ratings", err)
	}
	return summaries, nil
}
