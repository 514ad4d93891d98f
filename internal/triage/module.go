// Package triage provides the conversational intake domain module.
package triage

import (
	apphttp "dormdesk_backend/internal/http"
	"dormdesk_backend/internal/triage/handler"
	"dormdesk_backend/internal/triage/location"
	"dormdesk_backend/internal/triage/repository"
	"dormdesk_backend/internal/triage/service"
	"dormdesk_backend/platform/events"
	"dormdesk_backend/platform/logger"
	"dormdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the triage domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new triage module with all dependencies wired.
// The generator and materializer are injected by the composition root so
// the module never imports the AI client or the cases vertical directly.
func NewModule(pool *pgxpool.Pool, generator service.Generator, materializer service.CaseMaterializer,
	resolver *location.Resolver, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {

	repo := repository.New(pool)
	svc := service.New(repo, generator, materializer, resolver, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "triage"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	conversations := ctx.V1.Group("/triage/conversations")
	m.handler.RegisterRoutes(conversations)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
