package payments

import (
	"testing"

	"ambulance/pkg/model"

	"github.com/stretchr/testify/assert"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		gateway model.Gateway
		raw     string
		want    model.PaymentStatus
	}{
		{model.GatewayMidtrans, "settlement", model.PaymentPaid},
		{model.GatewayMidtrans, "capture", model.PaymentPaid},
		{model.GatewayMidtrans, "pending", model.PaymentPending},
		{model.GatewayMidtrans, "deny", model.PaymentFailed},
		{model.GatewayMidtrans, "cancel", model.PaymentFailed},
		{model.GatewayMidtrans, "expire", model.PaymentFailed},
		{model.GatewayMidtrans, "failure", model.PaymentFailed},
		{model.GatewayMidtrans, "challenge", model.PaymentPending},
		{model.GatewayMidtrans, "paid", model.PaymentPending},

		{model.GatewayXendit, "PAID", model.PaymentPaid},
		{model.GatewayXendit, "settled", model.PaymentPaid},
		{model.GatewayXendit, "pending", model.PaymentPending},
		{model.GatewayXendit, "EXPIRED", model.PaymentFailed},
		{model.GatewayXendit, "failed", model.PaymentFailed},
		{model.GatewayXendit, "settlement", model.PaymentPending},

		{model.GatewayGoPay, "success", model.PaymentPaid},
		{model.GatewayGoPay, "settlement", model.PaymentPaid},
		{model.GatewayGoPay, "capture", model.PaymentPaid},
		{model.GatewayGoPay, "pending", model.PaymentPending},
		{model.GatewayGoPay, "deny", model.PaymentFailed},
		{model.GatewayGoPay, "expire", model.PaymentFailed},

		{model.GatewayMidtrans, "  Settlement \n", model.PaymentPaid},
		{model.GatewayMidtrans, "", model.PaymentPending},
		{model.Gateway("stripe"), "settlement", model.PaymentPending},
		{model.Gateway(""), "", model.PaymentPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.gateway)+"/"+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MapStatus(tt.gateway, tt.raw))
		})
	}
}

func TestMapStatus_IsTotalAndDeterministic(t *testing.T) {
	gateways := append([]model.Gateway{"unknown"}, model.Gateways...)
	raws := []string{"", "settlement", "paid", "success", "pending", "expire", "???", "ßettlement"}

	for _, g := range gateways {
		for _, raw := range raws {
			first := MapStatus(g, raw)
			assert.Contains(t, []model.PaymentStatus{model.PaymentPending, model.PaymentPaid, model.PaymentFailed}, first)
			assert.Equal(t, first, MapStatus(g, raw))
		}
	}
}
