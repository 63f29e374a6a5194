package model

import (
	"time"
)

type BookingStatus string

const (
	StatusPending       BookingStatus = "pending"
	StatusConfirmed     BookingStatus = "confirmed"
	StatusDispatched    BookingStatus = "dispatched"
	StatusInProgress    BookingStatus = "in_progress"
	StatusCompleted     BookingStatus = "completed"
	StatusCancelled     BookingStatus = "cancelled"
	StatusPaymentFailed BookingStatus = "payment_failed"
)

var BookingStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusDispatched,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusPaymentFailed,
}

func (s BookingStatus) Valid() bool {
	for _, known := range BookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s BookingStatus) String() string {
	return string(s)
}

type BookingType string

const (
	BookingEmergency BookingType = "emergency"
	BookingScheduled BookingType = "scheduled"
)

const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

type Booking struct {
	ID          string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookingCode string        `json:"booking_code" bson:"booking_code"`
	Type        BookingType   `json:"type" bson:"type" validate:"required,oneof=emergency scheduled"`
	Priority    string        `json:"priority" bson:"priority" validate:"required,oneof=urgent high normal low"`
	UserID      string        `json:"user_id" bson:"user_id" validate:"required"`
	DriverID    *string       `json:"driver_id" bson:"driver_id"`
	AmbulanceID *string       `json:"ambulance_id" bson:"ambulance_id"`
	Status      BookingStatus `json:"status" bson:"status" validate:"required,booking_status"`

	PatientName        string  `json:"patient_name" bson:"patient_name" validate:"required,min=2,max=100"`
	PatientCondition   string  `json:"patient_condition,omitempty" bson:"patient_condition,omitempty" validate:"omitempty,max=500"`
	PickupAddress      string  `json:"pickup_address" bson:"pickup_address" validate:"required,min=5,max=255"`
	DestinationAddress string  `json:"destination_address" bson:"destination_address" validate:"required,min=5,max=255"`
	DistanceKm         float64 `json:"distance_km" bson:"distance_km" validate:"gte=0,lte=1000"`
	ContactPhone       string  `json:"contact_phone,omitempty" bson:"contact_phone,omitempty" validate:"omitempty,e164"`
	Notes              string  `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=1000"`

	RequestedAt          time.Time  `json:"requested_at" bson:"requested_at"`
	ScheduledAt          *time.Time `json:"scheduled_at,omitempty" bson:"scheduled_at,omitempty"`
	EstimatedArrivalTime *time.Time `json:"estimated_arrival_time,omitempty" bson:"estimated_arrival_time,omitempty"`
	DispatchedAt         *time.Time `json:"dispatched_at,omitempty" bson:"dispatched_at,omitempty"`
	StartedAt            *time.Time `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletionTime       *time.Time `json:"completion_time,omitempty" bson:"completion_time,omitempty"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CancellationReason   string     `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`

	BasePrice     int64  `json:"base_price" bson:"base_price" validate:"gte=0"`
	DistancePrice int64  `json:"distance_price" bson:"distance_price" validate:"gte=0"`
	TotalAmount   int64  `json:"total_amount" bson:"total_amount" validate:"gte=0"`
	AdjustedPrice *int64 `json:"adjusted_price,omitempty" bson:"adjusted_price,omitempty" validate:"omitempty,gte=0"`

	LastPaymentReminderAt *time.Time `json:"last_payment_reminder_at,omitempty" bson:"last_payment_reminder_at,omitempty"`

	StatusHistory []StatusChange `json:"status_history,omitempty" bson:"status_history,omitempty"`
	Version       int64          `json:"version" bson:"version"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
}

// PayableAmount is the admin adjusted price when set, otherwise the computed total.
func (b *Booking) PayableAmount() int64 {
	if b.AdjustedPrice != nil {
		return *b.AdjustedPrice
	}
	return b.TotalAmount
}

func (b *Booking) HasCrew() bool {
	return b.DriverID != nil && *b.DriverID != "" && b.AmbulanceID != nil && *b.AmbulanceID != ""
}

func (b *Booking) IsAssignedDriver(driverID string) bool {
	return driverID != "" && b.DriverID != nil && *b.DriverID == driverID
}

// Clone returns a copy that shares no pointers with b.
func (b *Booking) Clone() *Booking {
	c := *b
	c.DriverID = cloneString(b.DriverID)
	c.AmbulanceID = cloneString(b.AmbulanceID)
	c.ScheduledAt = cloneTime(b.ScheduledAt)
	c.EstimatedArrivalTime = cloneTime(b.EstimatedArrivalTime)
	c.DispatchedAt = cloneTime(b.DispatchedAt)
	c.StartedAt = cloneTime(b.StartedAt)
	c.CompletionTime = cloneTime(b.CompletionTime)
	c.CancelledAt = cloneTime(b.CancelledAt)
	c.LastPaymentReminderAt = cloneTime(b.LastPaymentReminderAt)
	if b.AdjustedPrice != nil {
		v := *b.AdjustedPrice
		c.AdjustedPrice = &v
	}
	if b.StatusHistory != nil {
		c.StatusHistory = append([]StatusChange(nil), b.StatusHistory...)
	}
	return &c
}

// StatusChange is one entry of a booking's status audit trail.
type StatusChange struct {
	From      BookingStatus `json:"from" bson:"from"`
	To        BookingStatus `json:"to" bson:"to"`
	ActorID   string        `json:"actor_id" bson:"actor_id"`
	ActorRole Role          `json:"actor_role" bson:"actor_role"`
	Override  bool          `json:"override,omitempty" bson:"override,omitempty"`
	Reason    string        `json:"reason,omitempty" bson:"reason,omitempty"`
	At        time.Time     `json:"at" bson:"at"`
}

type BookingRequest struct {
	Type               BookingType `json:"type"`
	Priority           string      `json:"priority"`
	UserID             string      `json:"user_id"`
	PatientName        string      `json:"patient_name"`
	PatientCondition   string      `json:"patient_condition"`
	PickupAddress      string      `json:"pickup_address"`
	DestinationAddress string      `json:"destination_address"`
	DistanceKm         float64     `json:"distance_km"`
	ContactPhone       string      `json:"contact_phone"`
	Notes              string      `json:"notes"`
	ScheduledAt        *time.Time  `json:"scheduled_at"`
}

type CrewAssignment struct {
	DriverID    string `json:"driver_id" validate:"required"`
	AmbulanceID string `json:"ambulance_id" validate:"required"`
}

type StatusUpdate struct {
	Status           BookingStatus `json:"status" validate:"required"`
	Reason           string        `json:"reason,omitempty" validate:"omitempty,max=500"`
	Override         bool          `json:"override,omitempty"`
	EstimatedArrival *time.Time    `json:"estimated_arrival_time,omitempty"`
}

type PriceAdjustment struct {
	AdjustedPrice int64  `json:"adjusted_price" validate:"gte=0"`
	Reason        string `json:"reason" validate:"required,min=3,max=500"`
}

type BookingFilter struct {
	Status   BookingStatus
	UserID   string
	DriverID string
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
