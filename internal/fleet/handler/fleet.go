package handler

import (
	"net/http"

	"ambulance/internal/fleet/service"
	httputil "ambulance/pkg/http"
	"ambulance/pkg/logger"
	"ambulance/pkg/middleware"
	"ambulance/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type FleetHandler struct {
	service service.FleetService
	log     *logger.Logger
}

func NewFleetHandler(service service.FleetService, log *logger.Logger) *FleetHandler {
	return &FleetHandler{
		service: service,
		log:     log,
	}
}

func (h *FleetHandler) CreateDriver(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "CreateDriver", err)
		return
	}

	var driver model.Driver
	if err := httputil.DecodeJSON(r, &driver); err != nil {
		h.writeError(w, "CreateDriver", err)
		return
	}

	if err := h.service.CreateDriver(r.Context(), actor, &driver); err != nil {
		h.writeError(w, "CreateDriver", err)
		return
	}

	if err := httputil.WriteCreated(w, driver); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateDriver", "operation", "WriteCreated", "error", err)
	}
}

func (h *FleetHandler) GetDriver(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := middleware.RequireActor(r); err != nil {
		h.writeError(w, "GetDriver", err)
		return
	}

	driver, err := h.service.GetDriver(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetDriver", err)
		return
	}

	if err := httputil.WriteSuccess(w, driver); err != nil {
		h.log.Error("failed to write success response", "handler", "GetDriver", "operation", "WriteSuccess", "error", err)
	}
}

func (h *FleetHandler) ListDrivers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, err := middleware.RequireActor(r); err != nil {
		h.writeError(w, "ListDrivers", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListDrivers", err)
		return
	}

	drivers, total, err := h.service.ListDrivers(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		h.writeError(w, "ListDrivers", err)
		return
	}

	if err := httputil.WritePaginated(w, drivers, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListDrivers", "operation", "WritePaginated", "error", err)
	}
}

func (h *FleetHandler) CreateAmbulance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		h.writeError(w, "CreateAmbulance", err)
		return
	}

	var ambulance model.Ambulance
	if err := httputil.DecodeJSON(r, &ambulance); err != nil {
		h.writeError(w, "CreateAmbulance", err)
		return
	}

	if err := h.service.CreateAmbulance(r.Context(), actor, &ambulance); err != nil {
		h.writeError(w, "CreateAmbulance", err)
		return
	}

	if err := httputil.WriteCreated(w, ambulance); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateAmbulance", "operation", "WriteCreated", "error", err)
	}
}

func (h *FleetHandler) GetAmbulance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := middleware.RequireActor(r); err != nil {
		h.writeError(w, "GetAmbulance", err)
		return
	}

	ambulance, err := h.service.GetAmbulance(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetAmbulance", err)
		return
	}

	if err := httputil.WriteSuccess(w, ambulance); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAmbulance", "operation", "WriteSuccess", "error", err)
	}
}

func (h *FleetHandler) ListAmbulances(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, err := middleware.RequireActor(r); err != nil {
		h.writeError(w, "ListAmbulances", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAmbulances", err)
		return
	}

	ambulances, total, err := h.service.ListAmbulances(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		h.writeError(w, "ListAmbulances", err)
		return
	}

	if err := httputil.WritePaginated(w, ambulances, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAmbulances", "operation", "WritePaginated", "error", err)
	}
}

func (h *FleetHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *FleetHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/drivers", h.CreateDriver)
	router.GET("/api/v1/drivers", h.ListDrivers)
	router.GET("/api/v1/drivers/id/:id", h.GetDriver)
	router.POST("/api/v1/ambulances", h.CreateAmbulance)
	router.GET("/api/v1/ambulances", h.ListAmbulances)
	router.GET("/api/v1/ambulances/id/:id", h.GetAmbulance)
}
