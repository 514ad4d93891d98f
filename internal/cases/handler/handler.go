// Package handler exposes the staff case API over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dormdesk_backend/internal/cases/domain"
	"dormdesk_backend/internal/cases/repository"
	"dormdesk_backend/internal/cases/service"
	"dormdesk_backend/internal/cases/transport"
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
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id/status", h.UpdateStatus)
}

func (h *Handler) List(c *gin.Context) {
	orgID, err := uuid.Parse(c.Query("organizationId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "organizationId query parameter is required", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.svc.ListCases(c.Request.Context(), orgID, repository.ListFilter{
		Status:       c.Query("status"),
		Category:     c.Query("category"),
		UrgencyLevel: c.Query("urgency"),
		BuildingCode: c.Query("building"),
		Limit:        limit,
		Offset:       offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromCases(items))
}

func (h *Handler) Get(c *gin.Context) {
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

	item, err := h.svc.GetCase(c.Request.Context(), id, orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromCase(item))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.UpdateStatus(c.Request.Context(), id, req.OrganizationID, domain.Status(req.Status)); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
