// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"estate_portal_backend/internal/roles"
	"estate_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Claim Domain Events
// =============================================================================

// LeadCreated is published when a new lead claim request is taken in.
type LeadCreated struct {
	BaseEvent
	RequestID      uuid.UUID `json:"requestId"`
	Payload        string    `json:"payload"`
	CandidateCount int       `json:"candidateCount"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (e LeadCreated) EventName() string { return "claims.lead.created" }

// LeadBroadcast is published once fan-out to all candidates has completed.
// Delivered and Failed count individual candidate sends; a failed send does
// not prevent the broadcast itself.
type LeadBroadcast struct {
	BaseEvent
	RequestID uuid.UUID `json:"requestId"`
	Delivered int       `json:"delivered"`
	Failed    int       `json:"failed"`
}

func (e LeadBroadcast) EventName() string { return "claims.lead.broadcast" }

// LeadClaimed is published when exactly one agent wins the claim race.
type LeadClaimed struct {
	BaseEvent
	RequestID uuid.UUID `json:"requestId"`
	AgentID   uuid.UUID `json:"agentId"`
	AgentName string    `json:"agentName"`
	Payload   string    `json:"payload"`
}

func (e LeadClaimed) EventName() string { return "claims.lead.claimed" }

// LeadExpired is published when the TTL sweep expires an unclaimed request.
type LeadExpired struct {
	BaseEvent
	RequestID uuid.UUID `json:"requestId"`
	Payload   string    `json:"payload"`
}

func (e LeadExpired) EventName() string { return "claims.lead.expired" }

// LeadCancelled is published when an operator cancels a request.
type LeadCancelled struct {
	BaseEvent
	RequestID uuid.UUID `json:"requestId"`
	Payload   string    `json:"payload"`
}

func (e LeadCancelled) EventName() string { return "claims.lead.cancelled" }

// DeliveryFailed is published when the channel adapter could not reach one
// candidate during broadcast.
type DeliveryFailed struct {
	BaseEvent
	RequestID     uuid.UUID `json:"requestId"`
	AgentID       uuid.UUID `json:"agentId"`
	ContactHandle string    `json:"contactHandle"`
	Reason        string    `json:"reason"`
}

func (e DeliveryFailed) EventName() string { return "claims.delivery.failed" }

// =============================================================================
// Appointment Domain Events
// =============================================================================

// AppointmentStatusChanged is published on every successful appointment
// transition, including the Rescheduled back-edge into Scheduled.
type AppointmentStatusChanged struct {
	BaseEvent
	AppointmentID uuid.UUID  `json:"appointmentId"`
	SubjectRef    string     `json:"subjectRef"`
	OldStatus     string     `json:"oldStatus"`
	NewStatus     string     `json:"newStatus"`
	AssignedAgent uuid.UUID  `json:"assignedAgent"`
	AgentRole     roles.Role `json:"agentRole"`
	ScheduledAt   time.Time  `json:"scheduledAt"`
}

func (e AppointmentStatusChanged) EventName() string { return "appointments.status.changed" }
