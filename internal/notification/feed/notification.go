// Package feed implements the role-scoped in-app notification feed.
// The feed is the single process-wide sink every module reports into; the
// dashboard layer consumes it through the HTTP handler.
package feed

import (
	"time"

	"estate_portal_backend/internal/roles"

	"github.com/google/uuid"
)

// Kind classifies a notification for the dashboard.
type Kind string

const (
	KindNewLead        Kind = "new_lead"
	KindVisitScheduled Kind = "visit_scheduled"
	KindVisitConfirmed Kind = "visit_confirmed"
	KindSaleCompleted  Kind = "sale_completed"
	KindChatMessage    Kind = "chat_message"
	KindSystemAlert    Kind = "system_alert"
	KindMarketingEvent Kind = "marketing_event"
	KindFinancial      Kind = "financial"
)

// ValidKind reports whether k is a known notification kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindNewLead, KindVisitScheduled, KindVisitConfirmed, KindSaleCompleted,
		KindChatMessage, KindSystemAlert, KindMarketingEvent, KindFinancial:
		return true
	}
	return false
}

// Priority orders notifications for the dashboard badge.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification is one feed entry. Read is monotonic: once true it never
// reverts. Metadata is opaque to the feed.
type Notification struct {
	ID         uuid.UUID         `json:"id"`
	Kind       Kind              `json:"kind"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Priority   Priority          `json:"priority"`
	TargetRole roles.Role        `json:"targetRole"`
	Read       bool              `json:"read"`
	ActionRef  string            `json:"actionRef,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// VisibleTo reports whether the notification appears in the given role's feed.
func (n Notification) VisibleTo(role roles.Role) bool {
	return n.TargetRole == roles.All || n.TargetRole == role
}

// PublishParams carries the caller-supplied fields of a new notification.
type PublishParams struct {
	Kind       Kind
	Title      string
	Body       string
	Priority   Priority
	TargetRole roles.Role
	ActionRef  string
	Metadata   map[string]string
}
