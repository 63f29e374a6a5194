package payments

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/model"
)

type midtransNotification struct {
	TransactionID     string `json:"transaction_id"`
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	GrossAmount       string `json:"gross_amount"`
}

type xenditCallback struct {
	ID            string `json:"id"`
	ExternalID    string `json:"external_id"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	PaidAmount    int64  `json:"paid_amount"`
}

type gopayNotification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
}

// DecodeWebhook parses a gateway notification body into a PaymentWebhookEvent.
func DecodeWebhook(gateway model.Gateway, body []byte, receivedAt time.Time) (*model.PaymentWebhookEvent, error) {
	var txID, raw string

	switch gateway {
	case model.GatewayMidtrans:
		var n midtransNotification
		if err := json.Unmarshal(body, &n); err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid %s payload: %v", gateway, err))
		}
		txID, raw = n.TransactionID, n.TransactionStatus
		if strings.EqualFold(raw, "capture") && strings.EqualFold(n.FraudStatus, "challenge") {
			raw = "challenge"
		}
	case model.GatewayXendit:
		var n xenditCallback
		if err := json.Unmarshal(body, &n); err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid %s payload: %v", gateway, err))
		}
		txID, raw = n.ExternalID, n.Status
	case model.GatewayGoPay:
		var n gopayNotification
		if err := json.Unmarshal(body, &n); err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid %s payload: %v", gateway, err))
		}
		txID, raw = n.OrderID, n.TransactionStatus
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported payment gateway: %s", gateway))
	}

	// transaction ids are matched exactly, only surrounding whitespace is dropped
	txID = strings.TrimSpace(txID)
	if txID == "" {
		return nil, apperrors.Validation("Webhook payload has no transaction reference", map[string]any{
			"gateway": string(gateway),
		})
	}

	return &model.PaymentWebhookEvent{
		Gateway:       gateway,
		TransactionID: txID,
		RawStatus:     strings.ToLower(strings.TrimSpace(raw)),
		ReceivedAt:    receivedAt,
	}, nil
}
