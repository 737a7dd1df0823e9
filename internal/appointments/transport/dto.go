// Package transport defines request/response DTOs for the appointments API.
package transport

import (
	"time"

	"estate_portal_backend/internal/appointments/domain"

	"github.com/google/uuid"
)

// CreateAppointmentRequest is the request body for scheduling a viewing.
type CreateAppointmentRequest struct {
	SubjectRef    string    `json:"subjectRef" validate:"required,min=1,max=200"`
	ScheduledAt   time.Time `json:"scheduledAt" validate:"required"`
	AssignedAgent uuid.UUID `json:"assignedAgent" validate:"required"`
}

// UpdateStatusRequest is the request body for moving an appointment along
// its lifecycle. ScheduledAt is required when status is rescheduled.
type UpdateStatusRequest struct {
	Status      string     `json:"status" validate:"required,oneof=scheduled confirmed completed cancelled rescheduled"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

// AppointmentResponse is the API view of an appointment.
type AppointmentResponse struct {
	ID            uuid.UUID `json:"id"`
	SubjectRef    string    `json:"subjectRef"`
	Status        string    `json:"status"`
	AssignedAgent uuid.UUID `json:"assignedAgent"`
	AgentRole     string    `json:"agentRole"`
	ScheduledAt   time.Time `json:"scheduledAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FromDomain maps a domain appointment to its API view.
func FromDomain(appt domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            appt.ID,
		SubjectRef:    appt.SubjectRef,
		Status:        string(appt.Status),
		AssignedAgent: appt.AssignedAgent,
		AgentRole:     string(appt.AgentRole),
		ScheduledAt:   appt.ScheduledAt,
		CreatedAt:     appt.CreatedAt,
		UpdatedAt:     appt.UpdatedAt,
	}
}
