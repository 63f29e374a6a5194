package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	fleeterrors "ambulance/internal/fleet/errors"
	"ambulance/internal/fleet/validator"
	"ambulance/pkg/config"
	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/logger"
	"ambulance/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFleetRepository struct {
	createDriverFunc       func(ctx context.Context, driver *model.Driver) error
	findDriverFunc         func(ctx context.Context, id string) (*model.Driver, error)
	findDriversFunc        func(ctx context.Context, status string, limit int, offset int64) ([]*model.Driver, error)
	countDriversFunc       func(ctx context.Context, status string) (int64, error)
	updateRatingFunc       func(ctx context.Context, id string, average float64, count int64, at time.Time) error
	createAmbulanceFunc    func(ctx context.Context, ambulance *model.Ambulance) error
	findAmbulanceFunc      func(ctx context.Context, id string) (*model.Ambulance, error)
	findMaintenanceDueFunc func(ctx context.Context, before time.Time, limit int) ([]*model.Ambulance, error)
}

func (m *mockFleetRepository) CreateDriver(ctx context.Context, driver *model.Driver) error {
	if m.createDriverFunc != nil {
		return m.createDriverFunc(ctx, driver)
	}
	driver.ID = "65f1c0ffee00000000000001"
	return nil
}

func (m *mockFleetRepository) FindDriverByID(ctx context.Context, id string) (*model.Driver, error) {
	if m.findDriverFunc != nil {
		return m.findDriverFunc(ctx, id)
	}
	return nil, fleeterrors.ErrDriverNotFound
}

func (m *mockFleetRepository) FindDrivers(ctx context.Context, status string, limit int, offset int64) ([]*model.Driver, error) {
	if m.findDriversFunc != nil {
		return m.findDriversFunc(ctx, status, limit, offset)
	}
	return []*model.Driver{}, nil
}

func (m *mockFleetRepository) CountDrivers(ctx context.Context, status string) (int64, error) {
	if m.countDriversFunc != nil {
		return m.countDriversFunc(ctx, status)
	}
	return 0, nil
}

func (m *mockFleetRepository) UpdateDriverRating(ctx context.Context, id string, average float64, count int64, at time.Time) error {
	if m.updateRatingFunc != nil {
		return m.updateRatingFunc(ctx, id, average, count, at)
	}
	return nil
}

func (m *mockFleetRepository) CreateAmbulance(ctx context.Context, ambulance *model.Ambulance) error {
	if m.createAmbulanceFunc != nil {
		return m.createAmbulanceFunc(ctx, ambulance)
	}
	return nil
}

func (m *mockFleetRepository) FindAmbulanceByID(ctx context.Context, id string) (*model.Ambulance, error) {
	if m.findAmbulanceFunc != nil {
		return m.findAmbulanceFunc(ctx, id)
	}
	return nil, fleeterrors.ErrAmbulanceNotFound
}

func (m *mockFleetRepository) FindAmbulances(ctx context.Context, status string, limit int, offset int64) ([]*model.Ambulance, error) {
	return []*model.Ambulance{}, nil
}

func (m *mockFleetRepository) CountAmbulances(ctx context.Context, status string) (int64, error) {
	return 0, nil
}

func (m *mockFleetRepository) FindMaintenanceDue(ctx context.Context, before time.Time, limit int) ([]*model.Ambulance, error) {
	if m.findMaintenanceDueFunc != nil {
		return m.findMaintenanceDueFunc(ctx, before, limit)
	}
	return nil, nil
}

var (
	fixedNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	admin    = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
)

func newTestService(repo *mockFleetRepository) *fleetService {
	log := logger.Discard()
	svc := NewFleetService(repo, validator.NewFleetValidator(log), &config.Config{Log: log}).(*fleetService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestCreateDriver_NormalizesAndDefaults(t *testing.T) {
	svc := newTestService(&mockFleetRepository{})

	driver := &model.Driver{
		Name:          "  budi   santoso ",
		Phone:         "0812-3456-7890",
		LicenseNumber: " sim-a 1234 ",
		AverageRating: 5,
	}
	require.NoError(t, svc.CreateDriver(context.Background(), admin, driver))

	assert.Equal(t, "+6281234567890", driver.Phone)
	assert.Equal(t, "SIM-A 1234", driver.LicenseNumber)
	assert.Equal(t, model.DriverOffDuty, driver.Status)
	assert.Zero(t, driver.AverageRating, "ratings only come from the aggregation sweep")
	assert.Equal(t, fixedNow, driver.CreatedAt)
}

func TestCreateDriver_Rejections(t *testing.T) {
	svc := newTestService(&mockFleetRepository{})

	err := svc.CreateDriver(context.Background(), model.Actor{ID: "u1", Role: model.RoleUser}, &model.Driver{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	err = svc.CreateDriver(context.Background(), admin, &model.Driver{Name: "Budi", Phone: "not a phone", LicenseNumber: "SIM-1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestGetDriver_MapsRepositoryErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"not found", fleeterrors.ErrDriverNotFound, apperrors.CodeNotFound},
		{"bad id", fmt.Errorf("%w: x", fleeterrors.ErrInvalidID), apperrors.CodeInvalidInput},
		{"database down", fmt.Errorf("connection refused"), apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockFleetRepository{
				findDriverFunc: func(context.Context, string) (*model.Driver, error) { return nil, tt.err },
			})
			_, err := svc.GetDriver(context.Background(), "x")
			assert.True(t, apperrors.HasCode(err, tt.code), "expected %s, got %v", tt.code, err)
		})
	}
}

func TestCreateAmbulance_DuplicatePlate(t *testing.T) {
	svc := newTestService(&mockFleetRepository{
		createAmbulanceFunc: func(_ context.Context, a *model.Ambulance) error {
			return fmt.Errorf("%w: %s", fleeterrors.ErrDuplicatePlate, a.PlateNumber)
		},
	})

	err := svc.CreateAmbulance(context.Background(), admin, &model.Ambulance{PlateNumber: "d 1234 abc", Type: "Basic"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestCreateAmbulance_Normalizes(t *testing.T) {
	var stored *model.Ambulance
	svc := newTestService(&mockFleetRepository{
		createAmbulanceFunc: func(_ context.Context, a *model.Ambulance) error {
			stored = a
			return nil
		},
	})

	require.NoError(t, svc.CreateAmbulance(context.Background(), admin, &model.Ambulance{PlateNumber: "d 1234 abc", Type: " Advanced "}))
	require.NotNil(t, stored)
	assert.Equal(t, "D 1234 ABC", stored.PlateNumber)
	assert.Equal(t, model.AmbulanceAdvanced, stored.Type)
	assert.Equal(t, model.AmbulanceAvailable, stored.Status)
}

func TestListDrivers_NormalizesPaginationAndFailsOnCount(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	svc := newTestService(&mockFleetRepository{
		findDriversFunc: func(_ context.Context, _ string, limit int, offset int64) ([]*model.Driver, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Driver{{ID: "d1"}}, nil
		},
		countDriversFunc: func(context.Context, string) (int64, error) { return 1, nil },
	})

	drivers, total, err := svc.ListDrivers(context.Background(), "", 0, -1)
	require.NoError(t, err)
	assert.Len(t, drivers, 1)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, config.DefaultPageSize, gotLimit)
	assert.Equal(t, int64(0), gotOffset)

	svc = newTestService(&mockFleetRepository{
		countDriversFunc: func(context.Context, string) (int64, error) { return 0, fmt.Errorf("timeout") },
	})
	_, _, err = svc.ListDrivers(context.Background(), "", 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestFindMaintenanceDue_UsesWindow(t *testing.T) {
	var gotBefore time.Time
	svc := newTestService(&mockFleetRepository{
		findMaintenanceDueFunc: func(_ context.Context, before time.Time, _ int) ([]*model.Ambulance, error) {
			gotBefore = before
			return []*model.Ambulance{{ID: "a1"}}, nil
		},
	})

	due, err := svc.FindMaintenanceDue(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, due, 1)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour), gotBefore)
}

func TestUpdateDriverRating(t *testing.T) {
	var gotAvg float64
	var gotCount int64
	svc := newTestService(&mockFleetRepository{
		updateRatingFunc: func(_ context.Context, _ string, avg float64, count int64, _ time.Time) error {
			gotAvg, gotCount = avg, count
			return nil
		},
	})

	require.NoError(t, svc.UpdateDriverRating(context.Background(), model.DriverRatingSummary{DriverID: "d1", Average: 4.5, Count: 12}))
	assert.Equal(t, 4.5, gotAvg)
	assert.Equal(t, int64(12), gotCount)

	err := svc.UpdateDriverRating(context.Background(), model.DriverRatingSummary{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}
