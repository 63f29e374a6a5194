package model

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Gateway string

const (
	GatewayMidtrans Gateway = "midtrans"
	GatewayXendit   Gateway = "xendit"
	GatewayGoPay    Gateway = "gopay"
)

var Gateways = []Gateway{GatewayMidtrans, GatewayXendit, GatewayGoPay}

func (g Gateway) Valid() bool {
	for _, known := range Gateways {
		if g == known {
			return true
		}
	}
	return false
}

type Payment struct {
	ID            string        `json:"id,omitempty" bson:"_id,omitempty"`
	TransactionID string        `json:"transaction_id" bson:"transaction_id" validate:"required,max=100"`
	BookingID     string        `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	UserID        string        `json:"user_id" bson:"user_id" validate:"required"`
	Gateway       Gateway       `json:"gateway" bson:"gateway" validate:"required,oneof=midtrans xendit gopay"`
	Amount        int64         `json:"amount" bson:"amount" validate:"gt=0"`
	PaymentMethod string        `json:"payment_method" bson:"payment_method" validate:"required,max=50"`
	Status        PaymentStatus `json:"status" bson:"status" validate:"required,oneof=pending paid failed"`
	RawStatus     string        `json:"raw_status,omitempty" bson:"raw_status,omitempty"`
	ProcessedAt   *time.Time    `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
}

type PaymentRequest struct {
	BookingID     string  `json:"booking_id" validate:"required"`
	Gateway       Gateway `json:"gateway" validate:"required,gateway"`
	PaymentMethod string  `json:"payment_method" validate:"required,max=50"`
	TransactionID string  `json:"transaction_id,omitempty" validate:"omitempty,max=100"`
}

// PaymentWebhookEvent is the gateway-independent form of an inbound payment notification.
type PaymentWebhookEvent struct {
	Gateway       Gateway   `json:"gateway"`
	TransactionID string    `json:"transaction_id"`
	RawStatus     string    `json:"raw_status"`
	ReceivedAt    time.Time `json:"received_at"`
}

// StatusTransition describes a conditional payment status write.
type StatusTransition struct {
	From        PaymentStatus
	To          PaymentStatus
	RawStatus   string
	ProcessedAt time.Time
	PaidAt      *time.Time
}
