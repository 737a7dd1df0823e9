// Package notification wires domain events to the role-scoped feed.
// The module owns the feed store and subscribes one handler per event the
// rest of the system reports; the HTTP handler only reads and mutates the
// read/removed lifecycle.
package notification

import (
	"context"
	"fmt"

	"estate_portal_backend/internal/events"
	apphttp "estate_portal_backend/internal/http"
	"estate_portal_backend/internal/notification/feed"
	"estate_portal_backend/internal/notification/handler"
	"estate_portal_backend/internal/roles"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"
)

// Module glues the feed to the event bus and the HTTP layer.
type Module struct {
	svc     *feed.Service
	handler *handler.HTTPHandler
	log     *logger.Logger
}

// New creates the notification module with its own feed store.
func New(cfg config.FeedConfig, log *logger.Logger) *Module {
	store := feed.NewStore(cfg.GetFeedMaxNotifications())
	svc := feed.NewService(store, log)

	return &Module{
		svc:     svc,
		handler: handler.NewHTTPHandler(svc),
		log:     log,
	}
}

// Service exposes the feed service for other modules (tests, composition root).
func (m *Module) Service() *feed.Service {
	return m.svc
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes registers the module's routes under /api/v1/notifications
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	notifications := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(notifications)
}

// RegisterHandlers subscribes the feed publishers to the domain events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(m.handleLeadCreated))
	bus.Subscribe(events.LeadClaimed{}.EventName(), events.HandlerFunc(m.handleLeadClaimed))
	bus.Subscribe(events.LeadExpired{}.EventName(), events.HandlerFunc(m.handleLeadExpired))
	bus.Subscribe(events.LeadCancelled{}.EventName(), events.HandlerFunc(m.handleLeadCancelled))
	bus.Subscribe(events.DeliveryFailed{}.EventName(), events.HandlerFunc(m.handleDeliveryFailed))
	bus.Subscribe(events.AppointmentStatusChanged{}.EventName(), events.HandlerFunc(m.handleAppointmentStatusChanged))
}

func (m *Module) handleLeadCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadCreated)
	if !ok {
		return nil
	}

	_, err := m.svc.Publish(ctx, feed.PublishParams{
		Kind:       feed.KindNewLead,
		Title:      "New lead received",
		Body:       e.Payload,
		Priority:   feed.PriorityHigh,
		TargetRole: roles.Agent,
		ActionRef:  e.RequestID.String(),
		Metadata:   map[string]string{"candidates": fmt.Sprintf("%d", e.CandidateCount)},
	})
	return err
}

func (m *Module) handleLeadClaimed(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadClaimed)
	if !ok {
		return nil
	}

	// Claim outcomes are business-wide: every role sees who won.
	_, err := m.svc.Publish(ctx, feed.PublishParams{
		Kind:       feed.KindNewLead,
		Title:      fmt.Sprintf("Lead claimed by %s", e.AgentName),
		Body:       e.Payload,
		Priority:   feed.PriorityHigh,
		TargetRole: roles.All,
		ActionRef:  e.RequestID.String(),
		Metadata:   map[string]string{"agentId": e.AgentID.String()},
	})
	return err
}

func (m *Module) handleLeadExpired(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadExpired)
	if !ok {
		return nil
	}

	_, err := m.svc.Publish(ctx, feed.PublishParams{
		Kind:       feed.KindSystemAlert,
		Title:      "Lead expired unclaimed",
		Body:       e.Payload,
		Priority:   feed.PriorityLow,
		TargetRole: roles.All,
		ActionRef:  e.RequestID.String(),
	})
	return err
}

func (m *Module) handleLeadCancelled(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadCancelled)
	if !ok {
		return nil
	}

	_, err := m.svc.Publish(ctx, feed.PublishParams{
		Kind:       feed.KindSystemAlert,
		Title:      "Lead cancelled",
		Body:       e.Payload,
		Priority:   feed.PriorityMedium,
		TargetRole: roles.Admin,
		ActionRef:  e.RequestID.String(),
	})
	return err
}

func (m *Module) handleDeliveryFailed(ctx context.Context, event events.Event) error {
	e, ok := event.(events.DeliveryFailed)
	if !ok {
		return nil
	}

	_, err := m.svc.Publish(ctx, feed.PublishParams{
		Kind:       feed.KindSystemAlert,
		Title:      "Candidate could not be reached",
		Body:       fmt.Sprintf("delivery to %s failed: %s", e.ContactHandle, e.Reason),
		Priority:   feed.PriorityHigh,
		TargetRole: roles.Admin,
		ActionRef:  e.RequestID.String(),
		Metadata:   map[string]string{"agentId": e.AgentID.String()},
	})
	return err
}

func (m *Module) handleAppointmentStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AppointmentStatusChanged)
	if !ok {
		return nil
	}

	kind := feed.KindVisitScheduled
	priority := feed.PriorityMedium
	target := e.AgentRole

	switch e.NewStatus {
	case "confirmed":
		kind = feed.KindVisitConfirmed
	case "completed":
		// Completed and cancelled are business-significant outcomes; the
		// whole office sees them.
		kind = feed.KindSaleCompleted
		priority = feed.PriorityHigh
		target = roles.All
	case "cancelled":
		kind = feed.KindSystemAlert
		target = roles.All
	}

	_, err := m.svc.Publish(ctx, feed.PublishParams{
		Kind:       kind,
		Title:      fmt.Sprintf("Visit %s", e.NewStatus),
		Body:       e.SubjectRef,
		Priority:   priority,
		TargetRole: target,
		ActionRef:  e.AppointmentID.String(),
		Metadata:   map[string]string{"agentId": e.AssignedAgent.String()},
	})
	return err
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
