package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ambulance/internal/payments"
	"ambulance/internal/payments/service"
	apperrors "ambulance/pkg/errors"
	httputil "ambulance/pkg/http"
	"ambulance/pkg/logger"
	"ambulance/pkg/middleware"
	"ambulance/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

type webhookResponse struct {
	TransactionID string              `json:"transaction_id"`
	Status        model.PaymentStatus `json:"status"`
	Changed       bool                `json:"changed"`
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var req model.PaymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	payment, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, payment); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *PaymentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	payment, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, payment); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) ListByBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "ListByBooking", err)
		return
	}

	list, err := h.service.ListByBooking(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ListByBooking", err)
		return
	}

	if err := httputil.WriteSuccess(w, list); err != nil {
		h.log.Error("failed to write success response", "handler", "ListByBooking", "operation", "WriteSuccess", "error", err)
	}
}

// Webhook receives gateway notifications. Signatures are checked by middleware before
// the request gets here.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gateway := model.Gateway(strings.ToLower(ps.ByName("gateway")))
	if !gateway.Valid() {
		h.writeError(w, "Webhook", apperrors.InvalidInput(fmt.Sprintf("unsupported payment gateway: %s", gateway)))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "Webhook", apperrors.InvalidInput("failed to read request body"))
		return
	}

	event, err := payments.DecodeWebhook(gateway, body, time.Now().UTC())
	if err != nil {
		h.log.Warn("Rejected payment webhook", "gateway", gateway, "error", err)
		h.writeError(w, "Webhook", err)
		return
	}

	result, err := h.service.Reconcile(r.Context(), event)
	if err != nil {
		h.writeError(w, "Webhook", err)
		return
	}

	if err := httputil.WriteSuccess(w, webhookResponse{
		TransactionID: result.Payment.TransactionID,
		Status:        result.Payment.Status,
		Changed:       result.Changed,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments", h.Create)
	router.GET("/api/v1/payments/id/:id", h.GetByID)
	router.GET("/api/v1/bookings/id/:id/payments", h.ListByBooking)
	router.POST(middleware.WebhookPathPrefix+":gateway", h.Webhook)
}
