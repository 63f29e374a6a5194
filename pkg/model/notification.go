package model

import (
	"encoding/json"
	"time"
)

const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingPriceAdjusted = "booking.price_adjusted"
	EventPaymentCreated       = "payment.created"
	EventPaymentCompleted     = "payment.completed"
	EventPaymentFailed        = "payment.failed"
	EventPaymentReminder      = "payment.reminder"
	EventAmbulanceMaintenance = "ambulance.maintenance_due"
	EventDriverRatingUpdated  = "driver.rating_updated"

	ChannelAdminBookings = "admin.bookings"
	ChannelAdminPayments = "admin.payments"
	ChannelAdminFleet    = "admin.fleet"
)

// Notification is the envelope every sink receives. Payload is encoded once at emit time.
type Notification struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Channels  []string        `json:"channels"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func BookingChannel(id string) string { return "booking." + id }
func UserChannel(id string) string    { return "user." + id }
func DriverChannel(id string) string  { return "driver." + id }

// BookingChannels lists the channels that follow a booking.
func BookingChannels(b *Booking) []string {
	channels := []string{BookingChannel(b.ID), UserChannel(b.UserID)}
	if b.DriverID != nil && *b.DriverID != "" {
		channels = append(channels, DriverChannel(*b.DriverID))
	}
	return append(channels, ChannelAdminBookings)
}

// PaymentChannels lists the channels that follow a payment.
func PaymentChannels(p *Payment) []string {
	return []string{BookingChannel(p.BookingID), UserChannel(p.UserID), ChannelAdminPayments}
}
