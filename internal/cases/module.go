// Package cases provides the maintenance case domain module.
package cases

import (
	"dormdesk_backend/internal/cases/handler"
	"dormdesk_backend/internal/cases/repository"
	"dormdesk_backend/internal/cases/service"
	apphttp "dormdesk_backend/internal/http"
	"dormdesk_backend/internal/triage/location"
	"dormdesk_backend/platform/events"
	"dormdesk_backend/platform/logger"
	"dormdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the cases domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new cases module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, resolver *location.Resolver, eventBus events.Bus,
	val *validator.Validator, log *logger.Logger) *Module {

	repo := repository.New(pool)
	svc := service.New(repo, resolver, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "cases"
}

// Service returns the service layer for external use. The triage module
// consumes it as the case materializer and scheduling as the case reader.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	casesGroup := ctx.V1.Group("/cases")
	m.handler.RegisterRoutes(casesGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
