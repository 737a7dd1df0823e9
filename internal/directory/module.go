package directory

import (
	apphttp "estate_portal_backend/internal/http"
	"estate_portal_backend/platform/logger"
	"estate_portal_backend/platform/validator"
)

// Module represents the agent directory domain module
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates a new directory module with all dependencies wired
func NewModule(val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(log)
	return &Module{
		handler: NewHandler(svc, val),
		service: svc,
	}
}

// Service exposes the registry to the claim coordinator.
func (m *Module) Service() *Service {
	return m.service
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "directory"
}

// RegisterRoutes registers the module's routes under /api/v1/admin/agents
// (directory mutation is back-office only).
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	agents := ctx.Admin.Group("/agents")
	m.handler.RegisterRoutes(agents)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
