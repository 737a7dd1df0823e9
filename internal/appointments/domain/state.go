// Package domain holds the appointment model and its fixed transition
// table. Rescheduling is the only way back into Scheduled.
package domain

import (
	"time"

	"estate_portal_backend/internal/roles"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// transitions is the full legality table. Rescheduled immediately re-enters
// Scheduled with a new time, so it never appears as a source state.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled, StatusRescheduled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusRescheduled},
}

// CanTransition reports whether from → to is in the legality table.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Appointment is one viewing/visit bound to a subject (a lead or listing
// reference) and an assigned agent.
type Appointment struct {
	ID            uuid.UUID  `json:"id"`
	SubjectRef    string     `json:"subjectRef"`
	Status        Status     `json:"status"`
	AssignedAgent uuid.UUID  `json:"assignedAgent"`
	AgentRole     roles.Role `json:"agentRole"`
	ScheduledAt   time.Time  `json:"scheduledAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
