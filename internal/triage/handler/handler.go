// Package handler exposes the triage conversation API over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dormdesk_backend/internal/triage/service"
	"dormdesk_backend/internal/triage/transport"
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
	rg.POST("", h.Start)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/messages", h.Continue)
}

// Start opens a conversation with the student's first message.
func (h *Handler) Start(c *gin.Context) {
	var req transport.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	res, err := h.svc.StartConversation(c.Request.Context(), service.StartParams{
		StudentID:      req.StudentID,
		OrganizationID: req.OrganizationID,
		Message:        req.Message,
		MediaRefs:      req.MediaRefs,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.FromTurnResult(res))
}

// Continue processes one more student message on an open conversation.
func (h *Handler) Continue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ContinueConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	res, err := h.svc.ContinueConversation(c.Request.Context(), id, req.OrganizationID, req.Message, req.MediaRefs)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromTurnResult(res))
}

// Get returns the full conversation state.
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

	conv, err := h.svc.GetConversation(c.Request.Context(), id, orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromConversation(conv))
}
