// Package scheduling provides the appointment optimization domain module.
package scheduling

import (
	apphttp "dormdesk_backend/internal/http"
	"dormdesk_backend/internal/scheduling/handler"
	"dormdesk_backend/internal/scheduling/repository"
	"dormdesk_backend/internal/scheduling/service"
	"dormdesk_backend/platform/events"
	"dormdesk_backend/platform/logger"
	"dormdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the scheduling domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new scheduling module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, cases service.CaseReader, eventBus events.Bus,
	val *validator.Validator, log *logger.Logger) *Module {

	repo := repository.New(pool)
	svc := service.New(repo, cases, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "scheduling"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	scheduling := ctx.V1.Group("/scheduling")
	m.handler.RegisterRoutes(scheduling)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
