package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ambulance/internal/lifecycle"
	"ambulance/internal/notifier"
	"ambulance/internal/payments"
	paymentserrors "ambulance/internal/payments/errors"
	"ambulance/internal/payments/repository"
	"ambulance/internal/payments/validator"
	"ambulance/pkg/config"
	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/model"
	"ambulance/pkg/sanitizer"

	"github.com/google/uuid"
)

// RawStatusExpired is recorded on payments closed by the expiry sweep.
const RawStatusExpired = "expire"

type PaymentService interface {
	Create(ctx context.Context, actor model.Actor, req *model.PaymentRequest) (*model.Payment, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Payment, error)
	ListByBooking(ctx context.Context, actor model.Actor, bookingID string) ([]*model.Payment, error)
	// Reconcile applies a gateway notification. Redelivery of an already applied status
	// is a no-op and reports Changed=false.
	Reconcile(ctx context.Context, event *model.PaymentWebhookEvent) (*ReconcileResult, error)
	// ExpirePayment fails a payment that is still pending. It reports whether this call
	// performed the change.
	ExpirePayment(ctx context.Context, payment *model.Payment) (bool, error)
}

// Bookings is the part of the booking service payments depend on.
type Bookings interface {
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	Transition(ctx context.Context, id string, target model.BookingStatus, tc lifecycle.Context) (*model.Booking, error)
}

type ReconcileResult struct {
	Payment  *model.Payment
	Previous model.PaymentStatus
	Changed  bool
}

type paymentService struct {
	repo      repository.PaymentRepository
	validator *validator.PaymentValidator
	bookings  Bookings
	notifier  notifier.Emitter
	cfg       *config.Config
	actor     model.Actor
	now       func() time.Time
}

func NewPaymentService(
	repo repository.PaymentRepository,
	validator *validator.PaymentValidator,
	bookings Bookings,
	emitter notifier.Emitter,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		repo:      repo,
		validator: validator,
		bookings:  bookings,
		notifier:  emitter,
		cfg:       cfg,
		actor:     model.SystemActor("payments"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *paymentService) Create(ctx context.Context, actor model.Actor, req *model.PaymentRequest) (*model.Payment, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Payment request cannot be empty")
	}
	if actor.Role != model.RoleUser && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only the booking owner or an admin can create payments")
	}

	req.BookingID = strings.TrimSpace(req.BookingID)
	req.Gateway = model.Gateway(strings.ToLower(strings.TrimSpace(string(req.Gateway))))
	req.PaymentMethod = sanitizer.NormalizeLabel(req.PaymentMethod)
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, apperrors.Validation("Payment validation failed", map[string]any{"error": err.Error()})
	}

	booking, err := s.bookings.GetByID(ctx, actor, req.BookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleUser && booking.UserID != actor.ID {
		return nil, apperrors.Forbidden("Only the booking owner can pay for it")
	}
	if booking.Status == model.StatusCancelled {
		return nil, apperrors.Conflict("Cannot create a payment for a cancelled booking")
	}

	paid, err := s.repo.HasPaid(ctx, booking.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to check paid payments", "booking_id", booking.ID, "error", err)
		return nil, apperrors.Internal("Failed to create payment", err)
	}
	if paid {
		return nil, apperrors.Conflict("Booking is already paid")
	}

	now := s.now().Truncate(time.Millisecond)
	payment := &model.Payment{
		TransactionID: req.TransactionID,
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		Gateway:       req.Gateway,
		Amount:        booking.PayableAmount(),
		PaymentMethod: req.PaymentMethod,
		Status:        model.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if payment.TransactionID == "" {
		payment.TransactionID = NewTransactionID(booking.BookingCode)
	}

	if err := s.validator.Validate(payment); err != nil {
		s.cfg.Log.Warn("Payment validation failed", "booking_id", booking.ID, "error", err)
		return nil, apperrors.Validation("Payment validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		if errors.Is(err, paymentserrors.ErrDuplicateTransaction) {
			return nil, apperrors.Conflict(fmt.Sprintf("Transaction %s already exists", payment.TransactionID))
		}
		s.cfg.Log.Error("Failed to create payment", "booking_id", booking.ID, "error", err)
		return nil, apperrors.Internal("Failed to create payment", err)
	}

	// A new attempt puts the booking back in line, only once the attempt is stored.
	if booking.Status == model.StatusPaymentFailed {
		if _, err := s.bookings.Transition(ctx, booking.ID, model.StatusPending, lifecycle.Context{
			Actor:  actor,
			Reason: "new payment attempt",
		}); err != nil {
			s.cfg.Log.Error("Failed to reopen booking for new payment attempt",
				"booking_id", booking.ID,
				"transaction_id", payment.TransactionID,
				"error", err,
			)
			return nil, err
		}
	}

	s.cfg.Log.Info("Payment created",
		"id", payment.ID,
		"transaction_id", payment.TransactionID,
		"booking_id", payment.BookingID,
		"gateway", payment.Gateway,
		"amount", payment.Amount,
	)
	s.notifier.Emit(model.EventPaymentCreated, model.PaymentChannels(payment), payment)
	return payment, nil
}

func (s *paymentService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Payment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Payment ID cannot be empty")
	}

	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "Failed to retrieve payment", id)
	}
	if !actor.IsAdmin() && !actor.IsSystem() {
		// visibility follows the booking
		if _, err := s.bookings.GetByID(ctx, actor, payment.BookingID); err != nil {
			return nil, err
		}
	}
	return payment, nil
}

func (s *paymentService) ListByBooking(ctx context.Context, actor model.Actor, bookingID string) ([]*model.Payment, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if _, err := s.bookings.GetByID(ctx, actor, bookingID); err != nil {
		return nil, err
	}

	list, err := s.repo.FindByBooking(ctx, bookingID)
	if err != nil {
		s.cfg.Log.Error("Failed to list payments", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve payments", err)
	}
	return list, nil
}

func (s *paymentService) Reconcile(ctx context.Context, event *model.PaymentWebhookEvent) (*ReconcileResult, error) {
	if event == nil || event.TransactionID == "" {
		return nil, apperrors.InvalidInput("Webhook event has no transaction id")
	}

	payment, err := s.repo.FindByTransactionID(ctx, event.TransactionID)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrNotFound) {
			s.cfg.Log.Warn("Webhook for unknown transaction",
				"gateway", event.Gateway,
				"transaction_id", event.TransactionID,
				"raw_status", event.RawStatus,
			)
			return nil, apperrors.NotFoundWithID("Payment", event.TransactionID)
		}
		return nil, s.mapRepoError(err, "Failed to retrieve payment", event.TransactionID)
	}

	if payment.Gateway != event.Gateway {
		s.cfg.Log.Warn("Webhook gateway does not match payment",
			"transaction_id", event.TransactionID,
			"payment_gateway", payment.Gateway,
			"webhook_gateway", event.Gateway,
		)
		return nil, apperrors.Validation("Webhook gateway does not match payment", map[string]any{
			"transaction_id": event.TransactionID,
			"gateway":        string(event.Gateway),
		})
	}

	next := payments.MapStatus(event.Gateway, event.RawStatus)
	result := &ReconcileResult{Payment: payment, Previous: payment.Status}

	switch {
	case next == payment.Status:
		s.cfg.Log.Debug("Webhook status already applied",
			"transaction_id", payment.TransactionID,
			"status", next,
			"raw_status", event.RawStatus,
		)
		return result, nil
	case payment.Status == model.PaymentPaid:
		s.cfg.Log.Warn("Ignoring status change on paid payment",
			"transaction_id", payment.TransactionID,
			"incoming_status", next,
			"raw_status", event.RawStatus,
		)
		return result, nil
	case next == model.PaymentPending:
		s.cfg.Log.Info("Ignoring pending status on settled payment",
			"transaction_id", payment.TransactionID,
			"status", payment.Status,
			"raw_status", event.RawStatus,
		)
		return result, nil
	}

	changed, err := s.apply(ctx, payment, next, event.RawStatus)
	if err != nil {
		return nil, err
	}
	result.Changed = changed
	return result, nil
}

func (s *paymentService) ExpirePayment(ctx context.Context, payment *model.Payment) (bool, error) {
	if payment == nil {
		return false, apperrors.InvalidInput("payment is required")
	}
	if payment.Status != model.PaymentPending {
		return false, nil
	}
	return s.apply(ctx, payment, model.PaymentFailed, RawStatusExpired)
}

// apply performs the conditional status write and its side effects. The write is filtered
// on the payment's current status so only one of several concurrent deliveries wins.
func (s *paymentService) apply(ctx context.Context, payment *model.Payment, next model.PaymentStatus, raw string) (bool, error) {
	now := s.now().Truncate(time.Millisecond)
	transition := model.StatusTransition{
		From:        payment.Status,
		To:          next,
		RawStatus:   raw,
		ProcessedAt: now,
	}
	if next == model.PaymentPaid {
		transition.PaidAt = &now
	}

	applied, err := s.repo.UpdateStatus(ctx, payment.ID, transition)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrAlreadyPaid) {
			s.cfg.Log.Error("Second paid payment for booking rejected",
				"transaction_id", payment.TransactionID,
				"booking_id", payment.BookingID,
			)
			return false, apperrors.Conflict("Booking already has a paid payment")
		}
		return false, s.mapRepoError(err, "Failed to update payment", payment.ID)
	}
	if !applied {
		s.cfg.Log.Info("Payment status already changed by a concurrent delivery",
			"transaction_id", payment.TransactionID,
			"from", transition.From,
			"to", next,
		)
		return false, nil
	}

	payment.Status = next
	payment.RawStatus = raw
	payment.ProcessedAt = &now
	payment.UpdatedAt = now
	if transition.PaidAt != nil {
		payment.PaidAt = transition.PaidAt
	}

	s.cfg.Log.Info("Payment status updated",
		"transaction_id", payment.TransactionID,
		"booking_id", payment.BookingID,
		"from", transition.From,
		"to", next,
		"raw_status", raw,
	)

	switch next {
	case model.PaymentPaid:
		s.notifier.Emit(model.EventPaymentCompleted, model.PaymentChannels(payment), payment)
	case model.PaymentFailed:
		s.failBooking(ctx, payment)
		s.notifier.Emit(model.EventPaymentFailed, model.PaymentChannels(payment), payment)
	}
	return true, nil
}

// failBooking moves the booking to payment_failed unless another payment already covers it.
// The payment write has already happened, so problems here are logged rather than returned.
func (s *paymentService) failBooking(ctx context.Context, payment *model.Payment) {
	paid, err := s.repo.HasPaid(ctx, payment.BookingID)
	if err != nil {
		s.cfg.Log.Error("Failed to check paid payments", "booking_id", payment.BookingID, "error", err)
		return
	}
	if paid {
		s.cfg.Log.Info("Booking has another paid payment, leaving status unchanged",
			"booking_id", payment.BookingID,
			"transaction_id", payment.TransactionID,
		)
		return
	}

	booking, err := s.bookings.GetByID(ctx, s.actor, payment.BookingID)
	if err != nil {
		s.cfg.Log.Error("Failed to load booking for failed payment", "booking_id", payment.BookingID, "error", err)
		return
	}
	if booking.Status.Terminal() || booking.Status == model.StatusPaymentFailed {
		s.cfg.Log.Info("Skipping payment_failed transition",
			"booking_id", booking.ID,
			"status", booking.Status,
			"transaction_id", payment.TransactionID,
		)
		return
	}

	if _, err := s.bookings.Transition(ctx, booking.ID, model.StatusPaymentFailed, lifecycle.Context{
		Actor:  s.actor,
		Reason: fmt.Sprintf("payment %s %s", payment.TransactionID, payment.RawStatus),
	}); err != nil {
		s.cfg.Log.Error("Failed to mark booking payment_failed",
			"booking_id", booking.ID,
			"transaction_id", payment.TransactionID,
			"error", err,
		)
	}
}

func (s *paymentService) mapRepoError(err error, message, id string) error {
	if errors.Is(err, paymentserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Payment", id)
	}
	if errors.Is(err, paymentserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid payment ID format")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}

// NewTransactionID returns <booking_code>-<8 hex>.
func NewTransactionID(bookingCode string) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%x", bookingCode, id[:4])
}
