package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ambulance/internal/payments/service"
	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/logger"
	"ambulance/pkg/middleware"
	"ambulance/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPaymentService struct {
	reconcileFunc func(ctx context.Context, event *model.PaymentWebhookEvent) (*service.ReconcileResult, error)
}

func (m *mockPaymentService) Create(ctx context.Context, actor model.Actor, req *model.PaymentRequest) (*model.Payment, error) {
	return &model.Payment{BookingID: req.BookingID, Gateway: req.Gateway}, nil
}

func (m *mockPaymentService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Payment, error) {
	return &model.Payment{ID: id}, nil
}

func (m *mockPaymentService) ListByBooking(ctx context.Context, actor model.Actor, bookingID string) ([]*model.Payment, error) {
	return []*model.Payment{{BookingID: bookingID}}, nil
}

func (m *mockPaymentService) Reconcile(ctx context.Context, event *model.PaymentWebhookEvent) (*service.ReconcileResult, error) {
	return m.reconcileFunc(ctx, event)
}

func (m *mockPaymentService) ExpirePayment(ctx context.Context, payment *model.Payment) (bool, error) {
	return false, nil
}

func newRouter(svc *mockPaymentService, secrets map[string]string) http.Handler {
	router := httprouter.New()
	NewPaymentHandler(svc, logger.Discard()).RegisterRoutes(router)
	var h http.Handler = middleware.ActorContext()(router)
	return middleware.GatewaySignatureVerification(secrets, logger.Discard())(h)
}

func TestWebhook_ReconcilesNormalizedEvent(t *testing.T) {
	var got *model.PaymentWebhookEvent
	svc := &mockPaymentService{
		reconcileFunc: func(_ context.Context, event *model.PaymentWebhookEvent) (*service.ReconcileResult, error) {
			got = event
			return &service.ReconcileResult{
				Payment: &model.Payment{TransactionID: event.TransactionID, Status: model.PaymentPaid},
				Changed: true,
			}, nil
		},
	}

	body := `{"transaction_id":"TX123","transaction_status":"settlement","fraud_status":"accept"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments/midtrans", strings.NewReader(body))
	w := httptest.NewRecorder()
	newRouter(svc, nil).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, model.GatewayMidtrans, got.Gateway)
	assert.Equal(t, "TX123", got.TransactionID)
	assert.Equal(t, "settlement", got.RawStatus)

	var resp struct {
		Data webhookResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Changed)
	assert.Equal(t, model.PaymentPaid, resp.Data.Status)
}

func TestWebhook_Errors(t *testing.T) {
	svc := &mockPaymentService{
		reconcileFunc: func(_ context.Context, event *model.PaymentWebhookEvent) (*service.ReconcileResult, error) {
			return nil, apperrors.NotFoundWithID("Payment", event.TransactionID)
		},
	}

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"unknown gateway", "/api/v1/webhooks/payments/stripe", `{}`, http.StatusBadRequest},
		{"malformed body", "/api/v1/webhooks/payments/xendit", `{"external_id":`, http.StatusBadRequest},
		{"missing reference", "/api/v1/webhooks/payments/gopay", `{"transaction_status":"settlement"}`, http.StatusUnprocessableEntity},
		{"unknown transaction", "/api/v1/webhooks/payments/gopay", `{"order_id":"nope","transaction_status":"settlement"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			newRouter(svc, nil).ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestWebhook_UnknownGatewayIsInvalidInput(t *testing.T) {
	called := false
	svc := &mockPaymentService{
		reconcileFunc: func(_ context.Context, _ *model.PaymentWebhookEvent) (*service.ReconcileResult, error) {
			called = true
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments/Stripe", strings.NewReader(`{"id":"evt_1"}`))
	w := httptest.NewRecorder()
	newRouter(svc, nil).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeInvalidInput, body.Code)
	assert.Contains(t, body.Message, "stripe")
	assert.False(t, called)
}

func TestWebhook_SignatureChecked(t *testing.T) {
	calls := 0
	svc := &mockPaymentService{
		reconcileFunc: func(_ context.Context, event *model.PaymentWebhookEvent) (*service.ReconcileResult, error) {
			calls++
			return &service.ReconcileResult{Payment: &model.Payment{TransactionID: event.TransactionID}}, nil
		},
	}
	secrets := map[string]string{"xendit": "s3cret"}
	body := `{"external_id":"TX9","status":"PAID"}`

	unsigned := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments/xendit", strings.NewReader(body))
	w := httptest.NewRecorder()
	newRouter(svc, secrets).ServeHTTP(w, unsigned)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	signed := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments/xendit", strings.NewReader(body))
	signed.Header.Set(middleware.WebhookSignatureHeader, middleware.Sign([]byte(body), "s3cret"))
	w = httptest.NewRecorder()
	newRouter(svc, secrets).ServeHTTP(w, signed)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, calls)
}

func TestListByBooking_RequiresActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/b1/payments", nil)
	w := httptest.NewRecorder()
	newRouter(&mockPaymentService{}, nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/b1/payments", nil)
	req.Header.Set(middleware.ActorIDHeader, "user-1")
	req.Header.Set(middleware.ActorRoleHeader, "user")
	w = httptest.NewRecorder()
	newRouter(&mockPaymentService{}, nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
