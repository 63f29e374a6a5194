// Package sweeps holds the periodic reconciliation jobs. Each job claims every entity it
// touches through a lock.Locker and relies on state-conditional writes, so overlapping runs
// on several instances process each entity at most once.
package sweeps

import (
	"context"
	"time"

	"ambulance/pkg/lock"
	"ambulance/pkg/logger"
	"ambulance/pkg/model"
)

const (
	JobDriverRatings        = "driver-ratings"
	JobMaintenanceReminders = "maintenance-reminders"
	JobExpiredPayments      = "expired-payments"
	JobAutoCancel           = "auto-cancel"
	JobPaymentReminders     = "payment-reminders"
)

// SweeperActor is the actor recorded on transitions made by sweeps.
var SweeperActor = model.SystemActor("sweeper")

type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) (Report, error)
}

// Report summarizes one pass. Skipped counts entities claimed elsewhere or already reconciled.
type Report struct {
	Job       string `json:"job"`
	Scanned   int    `json:"scanned"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

type base struct {
	name     string
	interval time.Duration
	locker   lock.Locker
	claimTTL time.Duration
	batch    int
	log      *logger.Logger
	now      func() time.Time
}

func newBase(name string, interval time.Duration, locker lock.Locker, claimTTL time.Duration, batch int, log *logger.Logger) base {
	return base{
		name:     name,
		interval: interval,
		locker:   locker,
		claimTTL: claimTTL,
		batch:    batch,
		log:      log.Component(name),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (b *base) Name() string            { return b.name }
func (b *base) Interval() time.Duration { return b.interval }

// claim reports whether this run owns id. A locker failure counts as not owned.
func (b *base) claim(ctx context.Context, id string) bool {
	ok, err := b.locker.Acquire(ctx, lock.SweepKey(b.name, id), b.claimTTL)
	if err != nil {
		b.log.Warn("Failed to claim entity", "id", id, "error", err)
		return false
	}
	return ok
}

// release frees a claim after a failure so the next run can retry the entity.
func (b *base) release(ctx context.Context, id string) {
	if err := b.locker.Release(ctx, lock.SweepKey(b.name, id)); err != nil {
		b.log.Warn("Failed to release claim", "id", id, "error", err)
	}
}
