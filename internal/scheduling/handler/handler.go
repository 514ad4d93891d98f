// Package handler exposes the scheduling API over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dormdesk_backend/internal/scheduling/service"
	"dormdesk_backend/internal/scheduling/transport"
	"dormdesk_backend/platform/httpkit"
	"dormdesk_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc      *service.Service
	validate *validator.Validator
}

func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, validate: validate}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/recommendations", h.Recommend)
	rg.GET("/contractors/:id/availability", h.ContractorAvailability)
}

// Recommend runs the optimizer for a case and returns ranked appointment
// candidates. An unsuccessful result is still a 200; it carries its reason.
func (h *Handler) Recommend(c *gin.Context) {
	var req transport.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	res, err := h.svc.Recommend(c.Request.Context(), req.ToServiceRequest())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, res)
}

// ContractorAvailability returns a contractor's open slots over the coming
// days, derived from their weekly rules minus bookings and blackouts.
func (h *Handler) ContractorAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	orgID, err := uuid.Parse(c.Query("organizationId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "organizationId query parameter is required", nil)
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	availability, err := h.svc.ContractorAvailability(c.Request.Context(), id, orgID, days)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAvailabilityResponse(availability))
}
