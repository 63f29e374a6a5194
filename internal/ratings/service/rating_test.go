package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	ratingserrors "ambulance/internal/ratings/errors"
	"ambulance/internal/ratings/validator"
	"ambulance/pkg/config"
	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/logger"
	"ambulance/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBookingID = "65f1c0ffee0000000000000a"

type mockRatingRepository struct {
	created []*model.Rating

	createFunc        func(ctx context.Context, rating *model.Rating) error
	findByBookingFunc func(ctx context.Context, bookingID string) (*model.Rating, error)
	findByDriverFunc  func(ctx context.Context, driverID string, limit int, offset int64) ([]*model.Rating, error)
	countByDriverFunc func(ctx context.Context, driverID string) (int64, error)
	aggregateFunc     func(ctx context.Context) ([]model.DriverRatingSummary, error)
}

func (m *mockRatingRepository) Create(ctx context.Context, rating *model.Rating) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, rating)
	}
	copied := *rating
	m.created = append(m.created, &copied)
	rating.ID = "65f1c0ffee00000000000099"
	return nil
}

func (m *mockRatingRepository) FindByBooking(ctx context.Context, bookingID string) (*model.Rating, error) {
	if m.findByBookingFunc != nil {
		return m.findByBookingFunc(ctx, bookingID)
	}
	return nil, ratingserrors.ErrNotFound
}

func (m *mockRatingRepository) FindByDriver(ctx context.Context, driverID string, limit int, offset int64) ([]*model.Rating, error) {
	if m.findByDriverFunc != nil {
		return m.findByDriverFunc(ctx, driverID, limit, offset)
	}
	return []*model.Rating{}, nil
}

func (m *mockRatingRepository) CountByDriver(ctx context.Context, driverID string) (int64, error) {
	if m.countByDriverFunc != nil {
		return m.countByDriverFunc(ctx, driverID)
	}
	return 0, nil
}

func (m *mockRatingRepository) AggregateByDriver(ctx context.Context) ([]model.DriverRatingSummary, error) {
	if m.aggregateFunc != nil {
		return m.aggregateFunc(ctx)
	}
	return nil, nil
}

type fakeBookings struct {
	booking *model.Booking
}

func (f *fakeBookings) GetByID(_ context.Context, actor model.Actor, id string) (*model.Booking, error) {
	if f.booking == nil || f.booking.ID != id {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}
	if !actor.IsAdmin() && actor.ID != f.booking.UserID {
		return nil, apperrors.Forbidden("Booking is not visible to this actor")
	}
	copied := *f.booking
	return &copied, nil
}

func completedBooking() *model.Booking {
	driverID := "7"
	return &model.Booking{
		ID:       testBookingID,
		UserID:   "user-1",
		DriverID: &driverID,
		Status:   model.StatusCompleted,
	}
}

func newRating() *model.Rating {
	return &model.Rating{
		BookingID:             testBookingID,
		Stars:                 5,
		ResponseTime:          4,
		DriverProfessionalism: 5,
		AmbulanceCondition:    3,
		Comments:              "  Cepat   dan ramah  ",
	}
}

func newTestService(repo *mockRatingRepository, booking *model.Booking) RatingService {
	cfg := &config.Config{Log: logger.Discard()}
	svc := NewRatingService(repo, validator.NewRatingValidator(cfg.Log), &fakeBookings{booking: booking}, cfg).(*ratingService)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreate_CompletedBooking(t *testing.T) {
	repo := &mockRatingRepository{}
	svc := newTestService(repo, completedBooking())

	rating := newRating()
	rating.UserID = "someone-else"
	rating.DriverID = "99"

	require.NoError(t, svc.Create(context.Background(), model.Actor{ID: "user-1", Role: model.RoleUser}, rating))
	require.Len(t, repo.created, 1)

	stored := repo.created[0]
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, "7", stored.DriverID)
	assert.Equal(t, "Cepat dan ramah", stored.Comments)
	assert.Equal(t, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC), stored.CreatedAt)
	assert.Equal(t, "65f1c0ffee00000000000099", rating.ID)
}

func TestCreate_Rejections(t *testing.T) {
	owner := model.Actor{ID: "user-1", Role: model.RoleUser}

	tests := []struct {
		name     string
		actor    model.Actor
		booking  func() *model.Booking
		mutate   func(r *model.Rating)
		repoErr  error
		wantCode string
	}{
		{
			name:     "admin cannot rate",
			actor:    model.Actor{ID: "admin-1", Role: model.RoleAdmin},
			booking:  completedBooking,
			wantCode: apperrors.CodeForbidden,
		},
		{
			name:     "other user",
			actor:    model.Actor{ID: "user-2", Role: model.RoleUser},
			booking:  completedBooking,
			wantCode: apperrors.CodeForbidden,
		},
		{
			name:  "booking not completed",
			actor: owner,
			booking: func() *model.Booking {
				b := completedBooking()
				b.Status = model.StatusInProgress
				return b
			},
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "stars out of range",
			actor:    owner,
			booking:  completedBooking,
			mutate:   func(r *model.Rating) { r.Stars = 6 },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "missing sub-rating",
			actor:    owner,
			booking:  completedBooking,
			mutate:   func(r *model.Rating) { r.AmbulanceCondition = 0 },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "already rated",
			actor:    owner,
			booking:  completedBooking,
			repoErr:  fmt.Errorf("%w: %s", ratingserrors.ErrAlreadyRated, testBookingID),
			wantCode: apperrors.CodeConflict,
		},
		{
			name:     "unknown booking",
			actor:    owner,
			booking:  func() *model.Booking { return nil },
			wantCode: apperrors.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRatingRepository{}
			if tt.repoErr != nil {
				repo.createFunc = func(context.Context, *model.Rating) error { return tt.repoErr }
			}
			svc := newTestService(repo, tt.booking())

			rating := newRating()
			if tt.mutate != nil {
				tt.mutate(rating)
			}

			err := svc.Create(context.Background(), tt.actor, rating)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
			assert.Empty(t, repo.created)
		})
	}
}

func TestGetByBooking_HidesAnonymousAuthor(t *testing.T) {
	stored := &model.Rating{BookingID: testBookingID, UserID: "user-1", DriverID: "7", Stars: 4, Anonymous: true}
	repo := &mockRatingRepository{
		findByBookingFunc: func(context.Context, string) (*model.Rating, error) {
			copied := *stored
			return &copied, nil
		},
	}
	svc := newTestService(repo, completedBooking())

	own, err := svc.GetByBooking(context.Background(), model.Actor{ID: "user-1", Role: model.RoleUser}, testBookingID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", own.UserID)

	admin, err := svc.GetByBooking(context.Background(), model.Actor{ID: "admin-1", Role: model.RoleAdmin}, testBookingID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", admin.UserID)

	_, err = svc.GetByBooking(context.Background(), model.Actor{ID: "user-2", Role: model.RoleUser}, testBookingID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestGetByBooking_NotRated(t *testing.T) {
	svc := newTestService(&mockRatingRepository{}, completedBooking())

	_, err := svc.GetByBooking(context.Background(), model.Actor{ID: "user-1", Role: model.RoleUser}, testBookingID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListByDriver(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	repo := &mockRatingRepository{
		findByDriverFunc: func(_ context.Context, driverID string, limit int, offset int64) ([]*model.Rating, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Rating{
				{DriverID: driverID, UserID: "user-1", Anonymous: true, Stars: 5},
				{DriverID: driverID, UserID: "user-2", Stars: 3},
			}, nil
		},
		countByDriverFunc: func(context.Context, string) (int64, error) { return 12, nil },
	}
	svc := newTestService(repo, nil)

	ratings, total, err := svc.ListByDriver(context.Background(), "7", 500, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Equal(t, 100, gotLimit)
	assert.Equal(t, int64(0), gotOffset)
	require.Len(t, ratings, 2)
	assert.Empty(t, ratings[0].UserID)
	assert.Equal(t, "user-2", ratings[1].UserID)
}

func TestListByDriver_CountFailure(t *testing.T) {
	repo := &mockRatingRepository{
		countByDriverFunc: func(context.Context, string) (int64, error) { return 0, fmt.Errorf("connection reset") },
	}
	svc := newTestService(repo, nil)

	_, _, err := svc.ListByDriver(context.Background(), "7", 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	_, _, err = svc.ListByDriver(context.Background(), "", 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestAggregateByDriver(t *testing.T) {
	want := []model.DriverRatingSummary{{DriverID: "7", Average: 4.5, Count: 2}}
	repo := &mockRatingRepository{
		aggregateFunc: func(context.Context) ([]model.DriverRatingSummary, error) { return want, nil },
	}
	svc := newTestService(repo, nil)

	got, err := svc.AggregateByDriver(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
