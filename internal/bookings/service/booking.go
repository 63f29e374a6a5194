package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	bookingserrors "ambulance/internal/bookings/errors"
	"ambulance/internal/bookings/repository"
	"ambulance/internal/bookings/validator"
	"ambulance/internal/lifecycle"
	"ambulance/internal/notifier"
	"ambulance/pkg/config"
	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/model"
	"ambulance/pkg/sanitizer"
)

const CodePrefix = "AMB"

type BookingService interface {
	Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	GetByCode(ctx context.Context, actor model.Actor, code string) (*model.Booking, error)
	List(ctx context.Context, actor model.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	AssignCrew(ctx context.Context, actor model.Actor, id string, assignment *model.CrewAssignment) (*model.Booking, error)
	UpdateStatus(ctx context.Context, actor model.Actor, id string, update *model.StatusUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, actor model.Actor, id string, reason string) (*model.Booking, error)
	AdjustPrice(ctx context.Context, actor model.Actor, id string, adjustment *model.PriceAdjustment) (*model.Booking, error)
	// Transition is the single path for status changes. It persists with optimistic
	// versioning and notifies on success.
	Transition(ctx context.Context, id string, target model.BookingStatus, tc lifecycle.Context) (*model.Booking, error)
}

// CrewDirectory resolves drivers and ambulances for assignment.
type CrewDirectory interface {
	GetDriver(ctx context.Context, id string) (*model.Driver, error)
	GetAmbulance(ctx context.Context, id string) (*model.Ambulance, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	validator *validator.BookingValidator
	crew      CrewDirectory
	notifier  notifier.Emitter
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	crew CrewDirectory,
	emitter notifier.Emitter,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		validator: validator,
		crew:      crew,
		notifier:  emitter,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *bookingService) Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Booking request cannot be empty")
	}
	switch actor.Role {
	case model.RoleUser:
		if req.UserID != "" && req.UserID != actor.ID {
			return nil, apperrors.Forbidden("Users can only create bookings for themselves")
		}
		req.UserID = actor.ID
	case model.RoleAdmin, model.RoleSystem:
	default:
		return nil, apperrors.Forbidden("Only users and admins can create bookings")
	}

	now := s.now().Truncate(time.Millisecond)
	booking := s.fromRequest(req, now)
	s.applyPricing(booking)

	if err := s.validator.Validate(booking, now); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "user_id", booking.UserID, "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	code, err := s.nextCode(ctx, now)
	if err != nil {
		return nil, err
	}
	booking.BookingCode = code

	if err := s.repo.Create(ctx, booking); err != nil {
		if errors.Is(err, bookingserrors.ErrDuplicateCode) {
			s.cfg.Log.Error("Booking code collision", "booking_code", code, "error", err)
			return nil, apperrors.Conflict("Booking code already exists, retry the request")
		}
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"booking_code", booking.BookingCode,
		"user_id", booking.UserID,
		"type", booking.Type,
		"total_amount", booking.TotalAmount,
	)
	s.notifier.Emit(model.EventBookingCreated, model.BookingChannels(booking), booking)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "Failed to retrieve booking", id)
	}
	if !canView(actor, booking) {
		return nil, apperrors.Forbidden("Booking belongs to another user")
	}
	return booking, nil
}

func (s *bookingService) GetByCode(ctx context.Context, actor model.Actor, code string) (*model.Booking, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperrors.InvalidInput("Booking code cannot be empty")
	}

	booking, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, s.mapRepoError(err, "Failed to retrieve booking", code)
	}
	if !canView(actor, booking) {
		return nil, apperrors.Forbidden("Booking belongs to another user")
	}
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, actor model.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.Validation("Unknown booking status", map[string]any{
			"status":  string(filter.Status),
			"allowed": model.BookingStatuses,
		})
	}
	switch actor.Role {
	case model.RoleUser:
		filter.UserID = actor.ID
	case model.RoleDriver:
		filter.DriverID = actor.ID
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "filter", filter, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindAll(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings", "filter", filter, "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) AssignCrew(ctx context.Context, actor model.Actor, id string, assignment *model.CrewAssignment) (*model.Booking, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can assign crew")
	}
	if assignment == nil {
		return nil, apperrors.InvalidInput("Assignment cannot be empty")
	}
	assignment.DriverID = strings.TrimSpace(assignment.DriverID)
	assignment.AmbulanceID = strings.TrimSpace(assignment.AmbulanceID)
	if err := s.validator.ValidateStruct(assignment); err != nil {
		return nil, apperrors.Validation("Driver and ambulance must be assigned together", map[string]any{"error": err.Error()})
	}

	driver, err := s.crew.GetDriver(ctx, assignment.DriverID)
	if err != nil {
		return nil, err
	}
	if driver.Status == model.DriverOffDuty {
		return nil, apperrors.Validation("Driver is off duty", map[string]any{"driver_id": driver.ID})
	}
	ambulance, err := s.crew.GetAmbulance(ctx, assignment.AmbulanceID)
	if err != nil {
		return nil, err
	}
	if ambulance.Status == model.AmbulanceMaintenance {
		return nil, apperrors.Validation("Ambulance is under maintenance", map[string]any{"ambulance_id": ambulance.ID})
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "Failed to retrieve booking", id)
	}

	tc := s.transitionContext(lifecycle.Context{Actor: actor})
	var event lifecycle.Event
	next, err := s.commit(ctx, current, func(b *model.Booking) (*model.Booking, error) {
		res, err := lifecycle.Assign(b, assignment.DriverID, assignment.AmbulanceID, tc)
		if err != nil {
			return nil, err
		}
		event = res.Event
		return res.Booking, nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Crew assigned",
		"id", next.ID,
		"driver_id", assignment.DriverID,
		"ambulance_id", assignment.AmbulanceID,
		"actor_id", actor.ID,
	)
	s.notifier.Emit(model.EventBookingStatusChanged, model.BookingChannels(next), event)
	return next, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, actor model.Actor, id string, update *model.StatusUpdate) (*model.Booking, error) {
	if update == nil {
		return nil, apperrors.InvalidInput("Status update cannot be empty")
	}
	if err := s.validator.ValidateStruct(update); err != nil {
		return nil, apperrors.Validation("Invalid status update", map[string]any{"error": err.Error()})
	}

	if !actor.IsAdmin() {
		if actor.Role != model.RoleDriver {
			return nil, apperrors.Forbidden("Only admins and the assigned driver can update booking status")
		}
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, s.mapRepoError(err, "Failed to retrieve booking", id)
		}
		if !current.IsAssignedDriver(actor.ID) {
			return nil, apperrors.Forbidden("Driver is not assigned to this booking")
		}
		if !driverMayMoveTo(update.Status) {
			return nil, apperrors.Forbidden(fmt.Sprintf("Drivers cannot move a booking to %s", update.Status))
		}
	}

	return s.Transition(ctx, id, update.Status, lifecycle.Context{
		Actor:            actor,
		Reason:           update.Reason,
		Override:         update.Override,
		EstimatedArrival: update.EstimatedArrival,
	})
}

func (s *bookingService) Cancel(ctx context.Context, actor model.Actor, id string, reason string) (*model.Booking, error) {
	if !actor.IsAdmin() {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, s.mapRepoError(err, "Failed to retrieve booking", id)
		}
		if current.UserID != actor.ID {
			return nil, apperrors.Forbidden("Only the booking owner or an admin can cancel")
		}
	}

	return s.Transition(ctx, id, model.StatusCancelled, lifecycle.Context{
		Actor:  actor,
		Reason: reason,
	})
}

func (s *bookingService) AdjustPrice(ctx context.Context, actor model.Actor, id string, adjustment *model.PriceAdjustment) (*model.Booking, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can adjust prices")
	}
	if adjustment == nil {
		return nil, apperrors.InvalidInput("Price adjustment cannot be empty")
	}
	adjustment.Reason = sanitizer.NormalizeText(adjustment.Reason)
	if err := s.validator.ValidateStruct(adjustment); err != nil {
		return nil, apperrors.Validation("Invalid price adjustment", map[string]any{"error": err.Error()})
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "Failed to retrieve booking", id)
	}

	var previous int64
	next, err := s.commit(ctx, current, func(b *model.Booking) (*model.Booking, error) {
		if b.Status.Terminal() {
			return nil, apperrors.Conflict(fmt.Sprintf("Price cannot be adjusted on a %s booking", b.Status))
		}
		previous = b.PayableAmount()
		adjusted := b.Clone()
		price := adjustment.AdjustedPrice
		adjusted.AdjustedPrice = &price
		adjusted.UpdatedAt = s.now()
		return adjusted, nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking price adjusted",
		"id", next.ID,
		"previous_amount", previous,
		"adjusted_price", adjustment.AdjustedPrice,
		"reason", adjustment.Reason,
		"actor_id", actor.ID,
	)
	s.notifier.Emit(model.EventBookingPriceAdjusted, model.BookingChannels(next), map[string]any{
		"booking_id":      next.ID,
		"booking_code":    next.BookingCode,
		"previous_amount": previous,
		"adjusted_price":  adjustment.AdjustedPrice,
		"reason":          adjustment.Reason,
	})
	return next, nil
}

func (s *bookingService) Transition(ctx context.Context, id string, target model.BookingStatus, tc lifecycle.Context) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "Failed to retrieve booking", id)
	}

	tc = s.transitionContext(tc)
	var event lifecycle.Event
	next, err := s.commit(ctx, current, func(b *model.Booking) (*model.Booking, error) {
		res, err := lifecycle.Transition(b, target, tc)
		if err != nil {
			return nil, err
		}
		event = res.Event
		return res.Booking, nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeInvalidTransition) || apperrors.HasCode(err, apperrors.CodeValidation) {
			s.cfg.Log.Info("Booking transition rejected", "id", id, "from", current.Status, "to", target, "actor_id", tc.Actor.ID, "error", err)
		}
		return nil, err
	}

	if event.Override {
		s.cfg.Log.Warn("Terminal booking status overridden",
			"id", next.ID,
			"from", event.From,
			"to", event.To,
			"actor_id", tc.Actor.ID,
			"reason", event.Reason,
		)
	}
	s.cfg.Log.Info("Booking transitioned",
		"id", next.ID,
		"from", event.From,
		"to", event.To,
		"actor_id", tc.Actor.ID,
		"actor_role", tc.Actor.Role,
		"version", next.Version,
	)
	s.notifier.Emit(model.EventBookingStatusChanged, model.BookingChannels(next), event)
	return next, nil
}

// commit applies mutate to current and writes the result against current's version. On a
// version conflict it reloads once: if the competing write left the status unchanged the
// mutation is applied again to the fresh booking, otherwise the caller has lost the race.
func (s *bookingService) commit(ctx context.Context, current *model.Booking, mutate func(*model.Booking) (*model.Booking, error)) (*model.Booking, error) {
	next, err := mutate(current)
	if err != nil {
		return nil, err
	}

	err = s.repo.UpdateVersioned(ctx, next, current.Version)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, bookingserrors.ErrVersionConflict) {
		return nil, s.mapRepoError(err, "Failed to update booking", current.ID)
	}

	fresh, err := s.repo.FindByID(ctx, current.ID)
	if err != nil {
		return nil, s.mapRepoError(err, "Failed to reload booking", current.ID)
	}
	if fresh.Status != current.Status {
		s.cfg.Log.Warn("Booking status changed concurrently",
			"id", current.ID,
			"expected_status", current.Status,
			"actual_status", fresh.Status,
		)
		return nil, apperrors.ConcurrentModification("Booking", current.ID)
	}

	next, err = mutate(fresh)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, next, fresh.Version); err != nil {
		if errors.Is(err, bookingserrors.ErrVersionConflict) {
			s.cfg.Log.Warn("Booking modified concurrently after retry", "id", current.ID)
			return nil, apperrors.ConcurrentModification("Booking", current.ID)
		}
		return nil, s.mapRepoError(err, "Failed to update booking", current.ID)
	}
	return next, nil
}

// --- Helpers ---

func (s *bookingService) transitionContext(tc lifecycle.Context) lifecycle.Context {
	if tc.Now.IsZero() {
		tc.Now = s.now()
	}
	if tc.DefaultETA <= 0 {
		tc.DefaultETA = s.cfg.DefaultETA
	}
	return tc
}

func (s *bookingService) mapRepoError(err error, message, id string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}

func (s *bookingService) fromRequest(req *model.BookingRequest, now time.Time) *model.Booking {
	b := &model.Booking{
		Type:               req.Type,
		Priority:           strings.ToLower(strings.TrimSpace(req.Priority)),
		UserID:             strings.TrimSpace(req.UserID),
		Status:             model.StatusPending,
		PatientName:        sanitizer.NormalizeName(req.PatientName),
		PatientCondition:   sanitizer.NormalizeText(req.PatientCondition),
		PickupAddress:      sanitizer.NormalizeAddress(req.PickupAddress),
		DestinationAddress: sanitizer.NormalizeAddress(req.DestinationAddress),
		DistanceKm:         req.DistanceKm,
		ContactPhone:       sanitizer.NormalizePhone(req.ContactPhone),
		Notes:              sanitizer.NormalizeText(req.Notes),
		RequestedAt:        now,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.ContactPhone != "" && b.ContactPhone == "" {
		// keep the raw value so validation reports it
		b.ContactPhone = strings.TrimSpace(req.ContactPhone)
	}

	if b.Type == "" {
		if req.ScheduledAt != nil {
			b.Type = model.BookingScheduled
		} else {
			b.Type = model.BookingEmergency
		}
	}
	if b.Priority == "" {
		if b.Type == model.BookingEmergency {
			b.Priority = model.PriorityUrgent
		} else {
			b.Priority = model.PriorityNormal
		}
	}
	if req.ScheduledAt != nil {
		at := req.ScheduledAt.UTC()
		b.ScheduledAt = &at
	}
	return b
}

func (s *bookingService) applyPricing(b *model.Booking) {
	base := s.cfg.BasePriceEmergency
	if b.Type == model.BookingScheduled {
		base = s.cfg.BasePriceScheduled
	}
	b.BasePrice = base
	b.DistancePrice = int64(math.Round(b.DistanceKm * float64(s.cfg.PricePerKm)))
	b.TotalAmount = b.BasePrice + b.DistancePrice
}

// nextCode builds AMB + YYYYMMDD + a zero padded per-day sequence, with the day taken in
// the booking timezone.
func (s *bookingService) nextCode(ctx context.Context, now time.Time) (string, error) {
	loc := s.cfg.BookingLocation
	if loc == nil {
		loc = time.UTC
	}
	day := now.In(loc).Format("20060102")

	seq, err := s.repo.NextSequence(ctx, day)
	if err != nil {
		s.cfg.Log.Error("Failed to allocate booking code", "day", day, "error", err)
		return "", apperrors.Internal("Failed to allocate booking code", err)
	}
	return fmt.Sprintf("%s%s%03d", CodePrefix, day, seq), nil
}

func canView(actor model.Actor, b *model.Booking) bool {
	switch actor.Role {
	case model.RoleAdmin, model.RoleSystem:
		return true
	case model.RoleDriver:
		return b.IsAssignedDriver(actor.ID) || b.UserID == actor.ID
	default:
		return b.UserID == actor.ID
	}
}

func driverMayMoveTo(target model.BookingStatus) bool {
	switch target {
	case model.StatusDispatched, model.StatusInProgress, model.StatusCompleted:
		return true
	}
	return false
}
