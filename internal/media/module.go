package media

import (
	apphttp "dormdesk_backend/internal/http"
)

// Module mounts the photo upload endpoints next to the triage conversation
// routes.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(svc *Service) *Module {
	return &Module{
		handler: NewHandler(svc),
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "media"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	conversations := ctx.V1.Group("/triage/conversations")
	m.handler.RegisterRoutes(conversations)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
