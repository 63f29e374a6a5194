// Package lifecycle holds the booking status state machine. It is pure: it
// computes the next booking state and the event describing the change, and
// leaves persistence and delivery to its callers.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/model"
)

const DefaultETA = 15 * time.Minute

var AllowedTransitions = map[model.BookingStatus][]model.BookingStatus{
	model.StatusPending:       {model.StatusConfirmed, model.StatusCancelled, model.StatusPaymentFailed},
	model.StatusConfirmed:     {model.StatusDispatched, model.StatusCancelled, model.StatusPaymentFailed},
	model.StatusDispatched:    {model.StatusInProgress, model.StatusCancelled, model.StatusPaymentFailed},
	model.StatusInProgress:    {model.StatusCompleted, model.StatusCancelled, model.StatusPaymentFailed},
	model.StatusPaymentFailed: {model.StatusPending, model.StatusCancelled},
	model.StatusCompleted:     {},
	model.StatusCancelled:     {},
}

var transitionSet = buildTransitionSet(AllowedTransitions)

func buildTransitionSet(m map[model.BookingStatus][]model.BookingStatus) map[model.BookingStatus]map[model.BookingStatus]struct{} {
	out := make(map[model.BookingStatus]map[model.BookingStatus]struct{}, len(m))
	for from, targets := range m {
		set := make(map[model.BookingStatus]struct{}, len(targets))
		for _, to := range targets {
			set[to] = struct{}{}
		}
		out[from] = set
	}
	return out
}

// CanTransition reports whether from -> to is allowed without an override.
func CanTransition(from, to model.BookingStatus) bool {
	targets, ok := transitionSet[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

func AllowedTargets(from model.BookingStatus) []model.BookingStatus {
	return append([]model.BookingStatus(nil), AllowedTransitions[from]...)
}

// Context carries everything a transition depends on besides the booking.
type Context struct {
	Actor            model.Actor
	Now              time.Time
	Reason           string
	Override         bool
	EstimatedArrival *time.Time
	DefaultETA       time.Duration
}

// Event is emitted for every successful transition.
type Event struct {
	BookingID            string              `json:"booking_id"`
	BookingCode          string              `json:"booking_code"`
	UserID               string              `json:"user_id"`
	DriverID             *string             `json:"driver_id,omitempty"`
	AmbulanceID          *string             `json:"ambulance_id,omitempty"`
	From                 model.BookingStatus `json:"old_status"`
	To                   model.BookingStatus `json:"new_status"`
	Actor                model.Actor         `json:"actor"`
	Override             bool                `json:"override,omitempty"`
	Reason               string              `json:"reason,omitempty"`
	At                   time.Time           `json:"at"`
	EstimatedArrivalTime *time.Time          `json:"estimated_arrival_time,omitempty"`
	CompletionTime       *time.Time          `json:"completion_time,omitempty"`
}

type Result struct {
	Booking *model.Booking
	Event   Event
}

// Transition computes the booking that results from moving b to target.
// b itself is never modified.
func Transition(b *model.Booking, target model.BookingStatus, tc Context) (*Result, error) {
	if b == nil {
		return nil, apperrors.InvalidInput("booking is required")
	}
	if !target.Valid() {
		return nil, apperrors.Validation("Unknown booking status", map[string]any{
			"status":  string(target),
			"allowed": model.BookingStatuses,
		})
	}

	from := b.Status
	override := false
	switch {
	case from == target:
		return nil, apperrors.InvalidTransition(string(from), string(target))
	case from.Terminal():
		if !tc.Override || !tc.Actor.IsAdmin() {
			return nil, apperrors.InvalidTransition(string(from), string(target))
		}
		override = true
	case !CanTransition(from, target):
		return nil, apperrors.InvalidTransition(string(from), string(target))
	}

	reason := strings.TrimSpace(tc.Reason)
	if target == model.StatusCancelled && reason == "" {
		return nil, apperrors.Validation("Cancellation reason is required", map[string]any{
			"field": "cancellation_reason",
		})
	}
	if target == model.StatusConfirmed && !b.HasCrew() {
		return nil, apperrors.Validation("Driver and ambulance must be assigned before confirmation", map[string]any{
			"field": "driver_id,ambulance_id",
		})
	}

	now := tc.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	next := b.Clone()
	next.Status = target
	next.UpdatedAt = now

	if override {
		leaveTerminal(next, from)
	}
	if err := stamp(next, target, reason, now, tc); err != nil {
		return nil, err
	}

	next.StatusHistory = append(next.StatusHistory, model.StatusChange{
		From:      from,
		To:        target,
		ActorID:   tc.Actor.ID,
		ActorRole: tc.Actor.Role,
		Override:  override,
		Reason:    reason,
		At:        now,
	})

	return &Result{
		Booking: next,
		Event: Event{
			BookingID:            next.ID,
			BookingCode:          next.BookingCode,
			UserID:               next.UserID,
			DriverID:             next.DriverID,
			AmbulanceID:          next.AmbulanceID,
			From:                 from,
			To:                   target,
			Actor:                tc.Actor,
			Override:             override,
			Reason:               reason,
			At:                   now,
			EstimatedArrivalTime: next.EstimatedArrivalTime,
			CompletionTime:       next.CompletionTime,
		},
	}, nil
}

// Assign sets driver and ambulance together and confirms the booking in the same step.
func Assign(b *model.Booking, driverID, ambulanceID string, tc Context) (*Result, error) {
	if b == nil {
		return nil, apperrors.InvalidInput("booking is required")
	}
	driverID = strings.TrimSpace(driverID)
	ambulanceID = strings.TrimSpace(ambulanceID)
	if driverID == "" || ambulanceID == "" {
		return nil, apperrors.Validation("Driver and ambulance must be assigned together", map[string]any{
			"driver_id":    driverID,
			"ambulance_id": ambulanceID,
		})
	}
	if b.Status != model.StatusPending {
		return nil, apperrors.InvalidTransition(string(b.Status), string(model.StatusConfirmed))
	}

	withCrew := b.Clone()
	withCrew.DriverID = &driverID
	withCrew.AmbulanceID = &ambulanceID
	return Transition(withCrew, model.StatusConfirmed, tc)
}

func stamp(b *model.Booking, target model.BookingStatus, reason string, now time.Time, tc Context) error {
	switch target {
	case model.StatusDispatched:
		b.DispatchedAt = &now
		eta := tc.EstimatedArrival
		if eta == nil {
			d := tc.DefaultETA
			if d <= 0 {
				d = DefaultETA
			}
			computed := now.Add(d)
			eta = &computed
		} else if eta.Before(now) {
			return apperrors.Validation("Estimated arrival time cannot be in the past", map[string]any{
				"field": "estimated_arrival_time",
				"value": eta.Format(time.RFC3339),
			})
		}
		v := *eta
		b.EstimatedArrivalTime = &v
	case model.StatusInProgress:
		b.StartedAt = &now
	case model.StatusCompleted:
		b.CompletionTime = &now
	case model.StatusCancelled:
		b.CancelledAt = &now
		b.CancellationReason = reason
	}
	return nil
}

func leaveTerminal(b *model.Booking, from model.BookingStatus) {
	switch from {
	case model.StatusCancelled:
		b.CancelledAt = nil
		b.CancellationReason = ""
	case model.StatusCompleted:
		b.CompletionTime = nil
	}
}

func (e Event) String() string {
	return fmt.Sprintf("booking %s: %s -> %s", e.BookingID, e.From, e.To)
}
