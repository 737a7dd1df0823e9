package feed

import (
	"context"

	"estate_portal_backend/internal/roles"
	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	opPublish     = "notification.feed.publish"
	opList        = "notification.feed.list"
	opUnreadCount = "notification.feed.unread_count"
	opMarkAllRead = "notification.feed.mark_all_read"
	opClear       = "notification.feed.clear"
)

// Service validates input and logs around the feed store. The role always
// arrives as an explicit parameter from the authenticated principal.
type Service struct {
	store *Store
	log   *logger.Logger
}

// NewService creates a feed service over the given store.
func NewService(store *Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Publish validates the enums and appends the notification.
func (s *Service) Publish(ctx context.Context, p PublishParams) (uuid.UUID, error) {
	if !ValidKind(p.Kind) {
		return uuid.Nil, apperr.Validation("unknown notification kind").WithOp(opPublish)
	}
	if !ValidPriority(p.Priority) {
		return uuid.Nil, apperr.Validation("unknown notification priority").WithOp(opPublish)
	}
	if !roles.ValidTarget(p.TargetRole) {
		return uuid.Nil, apperr.Validation("unknown target role").WithOp(opPublish)
	}
	if p.Title == "" {
		return uuid.Nil, apperr.Validation("title is required").WithOp(opPublish)
	}

	id := s.store.Publish(p)
	s.log.WithContext(ctx).Debug("notification published",
		"id", id, "kind", p.Kind, "targetRole", p.TargetRole, "priority", p.Priority)
	return id, nil
}

// List returns the role's feed, newest first.
func (s *Service) List(_ context.Context, role roles.Role) ([]Notification, error) {
	if !roles.Valid(role) {
		return nil, apperr.Validation("unknown role").WithOp(opList)
	}
	return s.store.List(role), nil
}

// UnreadCount returns the role's unread badge count.
func (s *Service) UnreadCount(_ context.Context, role roles.Role) (int, error) {
	if !roles.Valid(role) {
		return 0, apperr.Validation("unknown role").WithOp(opUnreadCount)
	}
	return s.store.UnreadCount(role), nil
}

// MarkRead marks one notification read in the role's view. Idempotent.
func (s *Service) MarkRead(_ context.Context, role roles.Role, id uuid.UUID) {
	s.store.MarkRead(role, id)
}

// MarkAllRead marks the role's whole view read.
func (s *Service) MarkAllRead(ctx context.Context, role roles.Role) error {
	if !roles.Valid(role) {
		return apperr.Validation("unknown role").WithOp(opMarkAllRead)
	}
	s.store.MarkAllRead(role)
	s.log.WithContext(ctx).Debug("feed marked read", "role", role)
	return nil
}

// Remove deletes one notification. Idempotent.
func (s *Service) Remove(_ context.Context, id uuid.UUID) {
	s.store.Remove(id)
}

// Clear removes the role's whole view.
func (s *Service) Clear(ctx context.Context, role roles.Role) error {
	if !roles.Valid(role) {
		return apperr.Validation("unknown role").WithOp(opClear)
	}
	s.store.Clear(role)
	s.log.WithContext(ctx).Info("feed cleared", "role", role)
	return nil
}
