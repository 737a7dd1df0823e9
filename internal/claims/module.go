// Package claims owns the lead claim lifecycle: intake, channel broadcast,
// atomic claim arbitration, expiry and cancellation. State lives in memory
// with a best-effort redis journal for restart recovery.
package claims

import (
	"context"

	"estate_portal_backend/internal/claims/handler"
	"estate_portal_backend/internal/claims/service"
	"estate_portal_backend/internal/events"
	apphttp "estate_portal_backend/internal/http"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"
)

// Module glues the coordinator to the HTTP layer.
type Module struct {
	coord   *service.Coordinator
	handler *handler.HTTPHandler
	log     *logger.Logger
}

// New creates the claims module. journal may be nil when redis is not
// configured; sender must route to the right channel per contact handle.
func New(cfg config.ClaimsConfig, agents service.AgentProvider, sender service.ChannelSender, bus events.Bus, journal service.Journal, log *logger.Logger) *Module {
	coord := service.NewCoordinator(cfg, agents, sender, bus, journal, log)

	return &Module{
		coord:   coord,
		handler: handler.NewHTTPHandler(coord),
		log:     log,
	}
}

// Coordinator exposes the coordinator for the scheduler and tests.
func (m *Module) Coordinator() *service.Coordinator {
	return m.coord
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "claims"
}

// RegisterRoutes registers the module's routes under /api/v1/claims.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	claims := ctx.Protected.Group("/claims")
	m.handler.RegisterRoutes(claims, ctx.ClaimRateLimiter.RateLimit())
}

// Restore rehydrates non-terminal requests from the journal on startup.
func (m *Module) Restore(ctx context.Context) error {
	return m.coord.Restore(ctx)
}
