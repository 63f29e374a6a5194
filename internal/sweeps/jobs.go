package sweeps

import (
	"context"
	"fmt"
	"time"

	"ambulance/internal/lifecycle"
	"ambulance/internal/notifier"
	"ambulance/pkg/config"
	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/lock"
	"ambulance/pkg/model"
)

type PendingPayments interface {
	FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Payment, error)
	FindPendingCreatedBetween(ctx context.Context, from, to time.Time, limit int) ([]*model.Payment, error)
}

type PaymentExpirer interface {
	ExpirePayment(ctx context.Context, payment *model.Payment) (bool, error)
}

type StaleBookings interface {
	FindStale(ctx context.Context, createdBefore, now time.Time, limit int) ([]*model.Booking, error)
	MarkPaymentReminded(ctx context.Context, id string, since, now time.Time) (bool, error)
}

type PaidBookings interface {
	HasPaid(ctx context.Context, bookingID string) (bool, error)
}

type BookingTransitioner interface {
	Transition(ctx context.Context, id string, target model.BookingStatus, tc lifecycle.Context) (*model.Booking, error)
}

type RatingAggregator interface {
	AggregateByDriver(ctx context.Context) ([]model.DriverRatingSummary, error)
}

type Fleet interface {
	UpdateDriverRating(ctx context.Context, summary model.DriverRatingSummary) error
	FindMaintenanceDue(ctx context.Context, within time.Duration) ([]*model.Ambulance, error)
}

// ExpiredPaymentsJob fails payments left pending past the expiry window. The payment service
// moves the booking to payment_failed.
type ExpiredPaymentsJob struct {
	base
	payments PendingPayments
	expirer  PaymentExpirer
	window   time.Duration
}

func NewExpiredPaymentsJob(payments PendingPayments, expirer PaymentExpirer, locker lock.Locker, cfg *config.Config) *ExpiredPaymentsJob {
	return &ExpiredPaymentsJob{
		base:     newBase(JobExpiredPayments, cfg.ExpiredPaymentInterval, locker, cfg.ClaimTTL, cfg.SweepBatchSize, cfg.Log),
		payments: payments,
		expirer:  expirer,
		window:   cfg.PaymentExpiryWindow,
	}
}

func (j *ExpiredPaymentsJob) Run(ctx context.Context) (Report, error) {
	report := Report{Job: j.name}

	payments, err := j.payments.FindPendingOlderThan(ctx, j.now().Add(-j.window), j.batch)
	if err != nil {
		return report, fmt.Errorf("failed to find expired payments: %w", err)
	}

	for _, p := range payments {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		if !j.claim(ctx, p.ID) {
			report.Skipped++
			continue
		}

		changed, err := j.expirer.ExpirePayment(ctx, p)
		if err != nil {
			report.Failed++
			j.log.Error("Failed to expire payment", "transaction_id", p.TransactionID, "error", err)
			j.release(ctx, p.ID)
			continue
		}
		if !changed {
			report.Skipped++
			continue
		}
		report.Processed++
		j.log.Info("Payment expired", "transaction_id", p.TransactionID, "booking_id", p.BookingID)
	}
	return report, nil
}

// AutoCancelJob cancels bookings that were never paid, and unpaid pending bookings whose
// scheduled time has passed. Paid bookings wait for an admin.
type AutoCancelJob struct {
	base
	bookings    StaleBookings
	payments    PaidBookings
	transitions BookingTransitioner
	after       time.Duration
}

func NewAutoCancelJob(bookings StaleBookings, payments PaidBookings, transitions BookingTransitioner, locker lock.Locker, cfg *config.Config) *AutoCancelJob {
	return &AutoCancelJob{
		base:        newBase(JobAutoCancel, cfg.AutoCancelInterval, locker, cfg.ClaimTTL, cfg.SweepBatchSize, cfg.Log),
		bookings:    bookings,
		payments:    payments,
		transitions: transitions,
		after:       cfg.AutoCancelAfter,
	}
}

func (j *AutoCancelJob) Run(ctx context.Context) (Report, error) {
	report := Report{Job: j.name}
	now := j.now()
	cutoff := now.Add(-j.after)

	bookings, err := j.bookings.FindStale(ctx, cutoff, now, j.batch)
	if err != nil {
		return report, fmt.Errorf("failed to find stale bookings: %w", err)
	}

	for _, b := range bookings {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		paid, err := j.payments.HasPaid(ctx, b.ID)
		if err != nil {
			report.Failed++
			j.log.Error("Failed to check booking payments", "booking_id", b.ID, "error", err)
			continue
		}
		if paid {
			report.Skipped++
			j.log.Debug("Skipping paid booking", "booking_id", b.ID, "status", b.Status)
			continue
		}

		if !j.claim(ctx, b.ID) {
			report.Skipped++
			continue
		}

		reason := fmt.Sprintf("auto-cancelled: unpaid for more than %s", j.after)
		if b.CreatedAt.After(cutoff) {
			reason = "auto-cancelled: scheduled time passed while unpaid"
		}

		_, err = j.transitions.Transition(ctx, b.ID, model.StatusCancelled, lifecycle.Context{
			Actor:  SweeperActor,
			Now:    now,
			Reason: reason,
		})
		switch {
		case err == nil:
			report.Processed++
		case apperrors.HasCode(err, apperrors.CodeInvalidTransition),
			apperrors.HasCode(err, apperrors.CodeConcurrentModification):
			report.Skipped++
			j.log.Info("Booking moved on before auto-cancel", "booking_id", b.ID, "error", err)
		default:
			report.Failed++
			j.log.Error("Failed to auto-cancel booking", "booking_id", b.ID, "error", err)
			j.release(ctx, b.ID)
		}
	}
	return report, nil
}

type paymentReminder struct {
	BookingID     string        `json:"booking_id"`
	TransactionID string        `json:"transaction_id"`
	Gateway       model.Gateway `json:"gateway"`
	Amount        int64         `json:"amount"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

// PaymentRemindersJob notifies users whose pending payment expires within the lead time. The
// booking's reminder watermark keeps it to one reminder per payment.
type PaymentRemindersJob struct {
	base
	payments PendingPayments
	bookings StaleBookings
	emitter  notifier.Emitter
	window   time.Duration
	lead     time.Duration
}

func NewPaymentRemindersJob(payments PendingPayments, bookings StaleBookings, emitter notifier.Emitter, locker lock.Locker, cfg *config.Config) *PaymentRemindersJob {
	return &PaymentRemindersJob{
		base:     newBase(JobPaymentReminders, cfg.PaymentReminderInterval, locker, cfg.ClaimTTL, cfg.SweepBatchSize, cfg.Log),
		payments: payments,
		bookings: bookings,
		emitter:  emitter,
		window:   cfg.PaymentExpiryWindow,
		lead:     cfg.PaymentReminderLead,
	}
}

func (j *PaymentRemindersJob) Run(ctx context.Context) (Report, error) {
	report := Report{Job: j.name}
	now := j.now()
	from := now.Add(-j.window)
	to := from.Add(j.lead)

	payments, err := j.payments.FindPendingCreatedBetween(ctx, from, to, j.batch)
	if err != nil {
		return report, fmt.Errorf("failed to find payments due for reminder: %w", err)
	}

	for _, p := range payments {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		if !j.claim(ctx, p.ID) {
			report.Skipped++
			continue
		}

		marked, err := j.bookings.MarkPaymentReminded(ctx, p.BookingID, p.CreatedAt, now)
		if err != nil {
			report.Failed++
			j.log.Error("Failed to mark payment reminder", "booking_id", p.BookingID, "error", err)
			j.release(ctx, p.ID)
			continue
		}
		if !marked {
			report.Skipped++
			continue
		}

		j.emitter.Emit(model.EventPaymentReminder,
			[]string{model.UserChannel(p.UserID), model.BookingChannel(p.BookingID)},
			paymentReminder{
				BookingID:     p.BookingID,
				TransactionID: p.TransactionID,
				Gateway:       p.Gateway,
				Amount:        p.Amount,
				ExpiresAt:     p.CreatedAt.Add(j.window),
			})
		report.Processed++
	}
	return report, nil
}

// DriverRatingsJob recomputes every rated driver's average and count.
type DriverRatingsJob struct {
	base
	ratings RatingAggregator
	fleet   Fleet
	emitter notifier.Emitter
}

func NewDriverRatingsJob(ratings RatingAggregator, fleet Fleet, emitter notifier.Emitter, locker lock.Locker, cfg *config.Config) *DriverRatingsJob {
	return &DriverRatingsJob{
		base:    newBase(JobDriverRatings, cfg.DriverRatingInterval, locker, cfg.ClaimTTL, cfg.SweepBatchSize, cfg.Log),
		ratings: ratings,
		fleet:   fleet,
		emitter: emitter,
	}
}

func (j *DriverRatingsJob) Run(ctx context.Context) (Report, error) {
	report := Report{Job: j.name}

	summaries, err := j.ratings.AggregateByDriver(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to aggregate driver ratings: %w", err)
	}

	for _, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		if summary.DriverID == "" || !j.claim(ctx, summary.DriverID) {
			report.Skipped++
			continue
		}

		if err := j.fleet.UpdateDriverRating(ctx, summary); err != nil {
			report.Failed++
			j.log.Error("Failed to update driver rating", "driver_id", summary.DriverID, "error", err)
			j.release(ctx, summary.DriverID)
			continue
		}

		j.emitter.Emit(model.EventDriverRatingUpdated,
			[]string{model.DriverChannel(summary.DriverID), model.ChannelAdminFleet},
			summary)
		report.Processed++
	}
	return report, nil
}

type maintenanceDue struct {
	AmbulanceID       string     `json:"ambulance_id"`
	PlateNumber       string     `json:"plate_number"`
	NextMaintenanceAt *time.Time `json:"next_maintenance_at"`
}

// MaintenanceRemindersJob tells fleet admins about upcoming maintenance. It changes no state.
type MaintenanceRemindersJob struct {
	base
	fleet   Fleet
	emitter notifier.Emitter
	within  time.Duration
}

func NewMaintenanceRemindersJob(fleet Fleet, emitter notifier.Emitter, locker lock.Locker, cfg *config.Config) *MaintenanceRemindersJob {
	return &MaintenanceRemindersJob{
		base:    newBase(JobMaintenanceReminders, cfg.MaintenanceInterval, locker, cfg.ClaimTTL, cfg.SweepBatchSize, cfg.Log),
		fleet:   fleet,
		emitter: emitter,
		within:  time.Duration(cfg.MaintenanceWindowDays) * 24 * time.Hour,
	}
}

func (j *MaintenanceRemindersJob) Run(ctx context.Context) (Report, error) {
	report := Report{Job: j.name}

	ambulances, err := j.fleet.FindMaintenanceDue(ctx, j.within)
	if err != nil {
		return report, fmt.Errorf("failed to find ambulances due for maintenance: %w", err)
	}

	for _, a := range ambulances {
		report.Scanned++
		if !j.claim(ctx, a.ID) {
			report.Skipped++
			continue
		}
		j.emitter.Emit(model.EventAmbulanceMaintenance, []string{model.ChannelAdminFleet}, maintenanceDue{
			AmbulanceID:       a.ID,
			PlateNumber:       a.PlateNumber,
			NextMaintenanceAt: a.NextMaintenanceAt,
		})
		report.Processed++
	}
	return report, nil
}
