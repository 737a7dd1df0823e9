// Package service implements appointment lifecycle management over an
// in-memory store. Every successful transition is announced on the event
// bus; the notification module fans it out to the right roles.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"estate_portal_backend/internal/appointments/domain"
	"estate_portal_backend/internal/directory"
	"estate_portal_backend/internal/events"
	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	opCreate     = "appointments.create"
	opTransition = "appointments.transition"
	opGet        = "appointments.get"
)

// AgentProvider resolves the assigned agent against the directory.
type AgentProvider interface {
	Get(ctx context.Context, id uuid.UUID) (directory.Agent, error)
}

// Service owns the appointment store and enforces the transition table.
type Service struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]domain.Appointment

	agents AgentProvider
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

// New creates an empty appointment service.
func New(agents AgentProvider, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		appointments: make(map[uuid.UUID]domain.Appointment),
		agents:       agents,
		bus:          bus,
		log:          log,
		now:          time.Now,
	}
}

// Create schedules a new appointment and announces it so the assigned
// agent's role gets a feed entry.
func (s *Service) Create(ctx context.Context, subjectRef string, scheduledAt time.Time, assignedAgent uuid.UUID) (domain.Appointment, error) {
	subjectRef = strings.TrimSpace(subjectRef)
	if subjectRef == "" {
		return domain.Appointment{}, apperr.Validation("subject reference is required").WithOp(opCreate)
	}
	if scheduledAt.IsZero() {
		return domain.Appointment{}, apperr.Validation("scheduledAt is required").WithOp(opCreate)
	}

	agent, err := s.agents.Get(ctx, assignedAgent)
	if err != nil {
		return domain.Appointment{}, apperr.Validation("unknown assigned agent").WithOp(opCreate)
	}

	now := s.now()
	appt := domain.Appointment{
		ID:            uuid.New(),
		SubjectRef:    subjectRef,
		Status:        domain.StatusScheduled,
		AssignedAgent: agent.ID,
		AgentRole:     agent.Role,
		ScheduledAt:   scheduledAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.appointments[appt.ID] = appt
	s.mu.Unlock()

	s.publishChange(ctx, appt, "", domain.StatusScheduled)
	s.log.WithContext(ctx).Info("appointment created",
		"appointmentId", appt.ID, "subjectRef", subjectRef, "agentId", agent.ID)
	return appt, nil
}

// Transition moves an appointment along the table. Rescheduling requires a
// new time and lands the appointment back in Scheduled; that is the only
// path that ever re-enters an earlier status.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to domain.Status, newScheduledAt *time.Time) (domain.Appointment, error) {
	if !to.Valid() {
		return domain.Appointment{}, apperr.Validation(fmt.Sprintf("unknown status %q", to)).WithOp(opTransition)
	}
	if to == domain.StatusRescheduled && (newScheduledAt == nil || newScheduledAt.IsZero()) {
		return domain.Appointment{}, apperr.Validation("rescheduling requires a new scheduledAt").WithOp(opTransition)
	}

	s.mu.Lock()
	appt, ok := s.appointments[id]
	if !ok {
		s.mu.Unlock()
		return domain.Appointment{}, apperr.NotFound("appointment not found").WithOp(opTransition)
	}

	from := appt.Status
	if !domain.CanTransition(from, to) {
		s.mu.Unlock()
		return domain.Appointment{}, apperr.InvalidState(
			fmt.Sprintf("cannot transition appointment from %s to %s", from, to)).WithOp(opTransition)
	}

	if to == domain.StatusRescheduled {
		appt.Status = domain.StatusScheduled
		appt.ScheduledAt = *newScheduledAt
	} else {
		appt.Status = to
	}
	appt.UpdatedAt = s.now()
	s.appointments[id] = appt
	s.mu.Unlock()

	s.publishChange(ctx, appt, from, to)
	s.log.WithContext(ctx).Info("appointment transitioned",
		"appointmentId", id, "from", from, "to", to)
	return appt, nil
}

// Get returns one appointment by id.
func (s *Service) Get(_ context.Context, id uuid.UUID) (domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.appointments[id]
	if !ok {
		return domain.Appointment{}, apperr.NotFound("appointment not found").WithOp(opGet)
	}
	return appt, nil
}

// List returns all appointments ordered by scheduled time.
func (s *Service) List(_ context.Context) []domain.Appointment {
	s.mu.RLock()
	out := make([]domain.Appointment, 0, len(s.appointments))
	for _, appt := range s.appointments {
		out = append(out, appt)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out
}

func (s *Service) publishChange(ctx context.Context, appt domain.Appointment, from, to domain.Status) {
	s.bus.Publish(ctx, events.AppointmentStatusChanged{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		SubjectRef:    appt.SubjectRef,
		OldStatus:     string(from),
		NewStatus:     string(to),
		AssignedAgent: appt.AssignedAgent,
		AgentRole:     appt.AgentRole,
		ScheduledAt:   appt.ScheduledAt,
	})
}
