package handler

import (
	"net/http"

	"ambulance/internal/ratings/service"
	httputil "ambulance/pkg/http"
	"ambulance/pkg/logger"
	"ambulance/pkg/middleware"
	"ambulance/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RatingHandler struct {
	service service.RatingService
	log     *logger.Logger
}

func NewRatingHandler(service service.RatingService, log *logger.Logger) *RatingHandler {
	return &RatingHandler{
		service: service,
		log:     log,
	}
}

func (h *RatingHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var rating model.Rating
	if err := httputil.DecodeJSON(r, &rating); err != nil {
		h.writeError(w, "Create", err)
		return
	}
	rating.BookingID = ps.ByName("id")

	if err := h.service.Create(r.Context(), actor, &rating); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, rating); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *RatingHandler) GetByBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "GetByBooking", err)
		return
	}

	rating, err := h.service.GetByBooking(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByBooking", err)
		return
	}

	if err := httputil.WriteSuccess(w, rating); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByBooking", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RatingHandler) ListByDriver(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := middleware.RequireActor(r); err != nil {
		h.writeError(w, "ListByDriver", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListByDriver", err)
		return
	}

	ratings, total, err := h.service.ListByDriver(r.Context(), ps.ByName("id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListByDriver", err)
		return
	}

	if err := httputil.WritePaginated(w, ratings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByDriver", "operation", "WritePaginated", "error", err)
	}
}

func (h *RatingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *RatingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings/id/:id/rating", h.Create)
	router.GET("/api/v1/bookings/id/:id/rating", h.GetByBooking)
	router.GET("/api/v1/drivers/id/:id/ratings", h.ListByDriver)
}
