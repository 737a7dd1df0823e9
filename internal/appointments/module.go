// Package appointments manages viewing appointments and their lifecycle.
package appointments

import (
	"estate_portal_backend/internal/appointments/handler"
	"estate_portal_backend/internal/appointments/service"
	"estate_portal_backend/internal/events"
	apphttp "estate_portal_backend/internal/http"
	"estate_portal_backend/platform/logger"
	"estate_portal_backend/platform/validator"
)

// Module wires the appointment service and its HTTP handler.
type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

// New creates the appointments module.
func New(agents service.AgentProvider, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(agents, bus, log)
	return &Module{
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

// Service exposes the appointment service for tests and the composition root.
func (m *Module) Service() *service.Service {
	return m.svc
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers the module's routes under /api/v1/appointments
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	appointments := ctx.Protected.Group("/appointments")
	m.handler.RegisterRoutes(appointments)
}
