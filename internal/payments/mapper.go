// Package payments normalizes gateway payment notifications.
package payments

import (
	"strings"

	"ambulance/pkg/model"
)

var gatewayStatuses = map[model.Gateway]map[string]model.PaymentStatus{
	model.GatewayMidtrans: {
		"settlement": model.PaymentPaid,
		"capture":    model.PaymentPaid,
		"pending":    model.PaymentPending,
		"deny":       model.PaymentFailed,
		"cancel":     model.PaymentFailed,
		"expire":     model.PaymentFailed,
		"failure":    model.PaymentFailed,
	},
	model.GatewayXendit: {
		"paid":    model.PaymentPaid,
		"settled": model.PaymentPaid,
		"pending": model.PaymentPending,
		"expired": model.PaymentFailed,
		"failed":  model.PaymentFailed,
	},
	model.GatewayGoPay: {
		"settlement": model.PaymentPaid,
		"capture":    model.PaymentPaid,
		"success":    model.PaymentPaid,
		"pending":    model.PaymentPending,
		"deny":       model.PaymentFailed,
		"cancel":     model.PaymentFailed,
		"expire":     model.PaymentFailed,
		"failure":    model.PaymentFailed,
	},
}

// MapStatus translates a gateway's raw status into the internal payment status.
// Unknown gateways and unrecognized statuses map to pending.
func MapStatus(gateway model.Gateway, raw string) model.PaymentStatus {
	statuses, ok := gatewayStatuses[gateway]
	if !ok {
		return model.PaymentPending
	}
	if status, ok := statuses[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}
	return model.PaymentPending
}
