package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatus_Valid(t *testing.T) {
	for _, status := range BookingStatuses {
		assert.True(t, status.Valid(), status)
	}
	assert.False(t, BookingStatus("approved").Valid())
	assert.False(t, BookingStatus("").Valid())
}

func TestBookingStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   BookingStatus
		terminal bool
	}{
		{StatusPending, false},
		{StatusConfirmed, false},
		{StatusDispatched, false},
		{StatusInProgress, false},
		{StatusPaymentFailed, false},
		{StatusCompleted, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}

func TestBooking_PayableAmount(t *testing.T) {
	b := &Booking{TotalAmount: 250000}
	assert.Equal(t, int64(250000), b.PayableAmount())

	adjusted := int64(0)
	b.AdjustedPrice = &adjusted
	assert.Equal(t, int64(0), b.PayableAmount(), "a zero adjustment still overrides the total")
}

func TestBooking_HasCrew(t *testing.T) {
	driver, ambulance, empty := "d1", "a1", ""

	assert.False(t, (&Booking{}).HasCrew())
	assert.False(t, (&Booking{DriverID: &driver}).HasCrew())
	assert.False(t, (&Booking{DriverID: &driver, AmbulanceID: &empty}).HasCrew())
	assert.True(t, (&Booking{DriverID: &driver, AmbulanceID: &ambulance}).HasCrew())
}

func TestBooking_IsAssignedDriver(t *testing.T) {
	driver := "d1"
	b := &Booking{DriverID: &driver}

	assert.True(t, b.IsAssignedDriver("d1"))
	assert.False(t, b.IsAssignedDriver("d2"))
	assert.False(t, b.IsAssignedDriver(""))
	assert.False(t, (&Booking{}).IsAssignedDriver("d1"))
}

func TestBooking_CloneSharesNoPointers(t *testing.T) {
	driver := "d1"
	price := int64(100)
	at := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	original := &Booking{
		ID:            "b1",
		DriverID:      &driver,
		AdjustedPrice: &price,
		DispatchedAt:  &at,
		StatusHistory: []StatusChange{{From: StatusPending, To: StatusConfirmed}},
	}

	clone := original.Clone()
	*clone.DriverID = "d2"
	*clone.AdjustedPrice = 5
	*clone.DispatchedAt = at.Add(time.Hour)
	clone.StatusHistory[0].To = StatusCancelled

	assert.Equal(t, "d1", *original.DriverID)
	assert.Equal(t, int64(100), *original.AdjustedPrice)
	assert.Equal(t, at, *original.DispatchedAt)
	assert.Equal(t, StatusConfirmed, original.StatusHistory[0].To)
	assert.Nil(t, clone.AmbulanceID)
}

func TestRating_Public(t *testing.T) {
	named := Rating{UserID: "u1", Stars: 5}
	assert.Equal(t, "u1", named.Public().UserID)

	anonymous := Rating{UserID: "u1", Stars: 4, Anonymous: true}
	public := anonymous.Public()
	assert.Empty(t, public.UserID)
	assert.Equal(t, 4, public.Stars)
	assert.Equal(t, "u1", anonymous.UserID, "Public must not modify the receiver")
}

func TestGateway_Valid(t *testing.T) {
	for _, g := range Gateways {
		assert.True(t, g.Valid(), g)
	}
	assert.False(t, Gateway("stripe").Valid())
	assert.False(t, Gateway("Midtrans").Valid())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleDriver.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleSystem.Valid())
	assert.False(t, Role("superuser").Valid())
}

func TestSystemActor(t *testing.T) {
	actor := SystemActor("sweeper")
	assert.Equal(t, "system:sweeper", actor.ID)
	assert.True(t, actor.IsSystem())
	assert.False(t, actor.IsAdmin())
}

func TestBookingChannels(t *testing.T) {
	b := &Booking{ID: "b1", UserID: "u1"}
	assert.Equal(t, []string{"booking.b1", "user.u1", ChannelAdminBookings}, BookingChannels(b))

	driver := "d1"
	b.DriverID = &driver
	channels := BookingChannels(b)
	require.Len(t, channels, 4)
	assert.Contains(t, channels, "driver.d1")
}

func TestPaymentChannels(t *testing.T) {
	p := &Payment{BookingID: "b1", UserID: "u1"}
	assert.Equal(t, []string{"booking.b1", "user.u1", ChannelAdminPayments}, PaymentChannels(p))
}
