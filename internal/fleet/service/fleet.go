package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	fleeterrors "ambulance/internal/fleet/errors"
	"ambulance/internal/fleet/repository"
	"ambulance/internal/fleet/validator"
	"ambulance/pkg/config"
	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/model"
	"ambulance/pkg/sanitizer"
)

type FleetService interface {
	CreateDriver(ctx context.Context, actor model.Actor, driver *model.Driver) error
	GetDriver(ctx context.Context, id string) (*model.Driver, error)
	ListDrivers(ctx context.Context, status string, limit int, offset int64) ([]*model.Driver, int64, error)
	UpdateDriverRating(ctx context.Context, summary model.DriverRatingSummary) error

	CreateAmbulance(ctx context.Context, actor model.Actor, ambulance *model.Ambulance) error
	GetAmbulance(ctx context.Context, id string) (*model.Ambulance, error)
	ListAmbulances(ctx context.Context, status string, limit int, offset int64) ([]*model.Ambulance, int64, error)
	// FindMaintenanceDue lists ambulances due for maintenance within the given window.
	FindMaintenanceDue(ctx context.Context, within time.Duration) ([]*model.Ambulance, error)
}

const maintenanceBatchSize = 500

type fleetService struct {
	repo      repository.FleetRepository
	validator *validator.FleetValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewFleetService(repo repository.FleetRepository, validator *validator.FleetValidator, cfg *config.Config) FleetService {
	return &fleetService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *fleetService) CreateDriver(ctx context.Context, actor model.Actor, driver *model.Driver) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can register drivers")
	}
	if driver == nil {
		return apperrors.InvalidInput("Driver cannot be empty")
	}

	driver.ID = ""
	driver.Name = sanitizer.NormalizeName(driver.Name)
	if phone := sanitizer.NormalizePhone(driver.Phone); phone != "" {
		driver.Phone = phone
	}
	driver.LicenseNumber = strings.ToUpper(sanitizer.TrimAndNormalize(driver.LicenseNumber))
	if driver.Status == "" {
		driver.Status = model.DriverOffDuty
	}
	driver.AverageRating, driver.RatingCount, driver.RatingUpdatedAt = 0, 0, nil
	driver.CreatedAt = s.now()

	if err := s.validator.Validate(driver); err != nil {
		return apperrors.Validation("Driver validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.CreateDriver(ctx, driver); err != nil {
		s.cfg.Log.Error("Failed to create driver", "name", driver.Name, "error", err)
		return apperrors.Internal("Failed to create driver", err)
	}

	s.cfg.Log.Info("Driver registered", "id", driver.ID, "status", driver.Status)
	return nil
}

func (s *fleetService) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Driver ID cannot be empty")
	}
	driver, err := s.repo.FindDriverByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "Driver", id)
	}
	return driver, nil
}

func (s *fleetService) ListDrivers(ctx context.Context, status string, limit int, offset int64) ([]*model.Driver, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		drivers           []*model.Driver
		count             int64
		errFind, errCount error
		wg                sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		drivers, errFind = s.repo.FindDrivers(ctx, status, limit, offset)
	}()
	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountDrivers(ctx, status)
	}()
	wg.Wait()

	if err := errors.Join(errFind, errCount); err != nil {
		s.cfg.Log.Error("Failed to list drivers", "status", status, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve drivers", err)
	}
	return drivers, count, nil
}

func (s *fleetService) UpdateDriverRating(ctx context.Context, summary model.DriverRatingSummary) error {
	if summary.DriverID == "" {
		return apperrors.InvalidInput("Driver ID cannot be empty")
	}
	if err := s.repo.UpdateDriverRating(ctx, summary.DriverID, summary.Average, summary.Count, s.now()); err != nil {
		return s.mapRepoError(err, "Driver", summary.DriverID)
	}
	return nil
}

func (s *fleetService) CreateAmbulance(ctx context.Context, actor model.Actor, ambulance *model.Ambulance) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can register ambulances")
	}
	if ambulance == nil {
		return apperrors.InvalidInput("Ambulance cannot be empty")
	}

	ambulance.ID = ""
	ambulance.PlateNumber = sanitizer.NormalizePlate(ambulance.PlateNumber)
	ambulance.Type = sanitizer.NormalizeLabel(ambulance.Type)
	if ambulance.Status == "" {
		ambulance.Status = model.AmbulanceAvailable
	}
	ambulance.CreatedAt = s.now()

	if err := s.validator.Validate(ambulance); err != nil {
		return apperrors.Validation("Ambulance validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.CreateAmbulance(ctx, ambulance); err != nil {
		if errors.Is(err, fleeterrors.ErrDuplicatePlate) {
			return apperrors.Conflict("Plate number " + ambulance.PlateNumber + " is already registered")
		}
		s.cfg.Log.Error("Failed to create ambulance", "plate_number", ambulance.PlateNumber, "error", err)
		return apperrors.Internal("Failed to create ambulance", err)
	}

	s.cfg.Log.Info("Ambulance registered", "id", ambulance.ID, "plate_number", ambulance.PlateNumber)
	return nil
}

func (s *fleetService) GetAmbulance(ctx context.Context, id string) (*model.Ambulance, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Ambulance ID cannot be empty")
	}
	ambulance, err := s.repo.FindAmbulanceByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "Ambulance", id)
	}
	return ambulance, nil
}

func (s *fleetService) ListAmbulances(ctx context.Context, status string, limit int, offset int64) ([]*model.Ambulance, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		ambulances        []*model.Ambulance
		count             int64
		errFind, errCount error
		wg                sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ambulances, errFind = s.repo.FindAmbulances(ctx, status, limit, offset)
	}()
	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountAmbulances(ctx, status)
	}()
	wg.Wait()

	if err := errors.Join(errFind, errCount); err != nil {
		s.cfg.Log.Error("Failed to list ambulances", "status", status, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve ambulances", err)
	}
	return ambulances, count, nil
}

func (s *fleetService) FindMaintenanceDue(ctx context.Context, within time.Duration) ([]*model.Ambulance, error) {
	ambulances, err := s.repo.FindMaintenanceDue(ctx, s.now().Add(within), maintenanceBatchSize)
	if err != nil {
		s.cfg.Log.Error("Failed to find ambulances due for maintenance", "error", err)
		return nil, apperrors.Internal("Failed to find ambulances due for maintenance", err)
	}
	return ambulances, nil
}

func (s *fleetService) mapRepoError(err error, resource, id string) error {
	switch {
	case errors.Is(err, fleeterrors.ErrDriverNotFound), errors.Is(err, fleeterrors.ErrAmbulanceNotFound):
		return apperrors.NotFoundWithID(resource, id)
	case errors.Is(err, fleeterrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid " + strings.ToLower(resource) + " ID format")
	}
	s.cfg.Log.Error("Fleet repository error", "resource", resource, "id", id, "error", err)
	return apperrors.Internal("Failed to access "+strings.ToLower(resource), err)
}
