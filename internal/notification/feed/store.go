package feed

import (
	"sort"
	"sync"
	"time"

	"estate_portal_backend/internal/roles"

	"github.com/google/uuid"
)

// Store holds the process-wide notification set. All reads of a query are
// taken under one RLock so a concurrent publish can never make List and
// UnreadCount disagree. Mutations take the write lock.
//
// Removal is terminal: a removed id is forgotten entirely, and calling
// MarkRead or Remove on it again is a silent no-op.
type Store struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*Notification
	order    []uuid.UUID // insertion order, oldest first
	capacity int
	now      func() time.Time
}

// NewStore creates a feed store bounded to capacity entries.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		byID:     make(map[uuid.UUID]*Notification),
		capacity: capacity,
		now:      time.Now,
	}
}

// Publish appends a notification and returns its id.
// Enum validity is the service's concern; the store only keeps the set
// consistent and bounded.
func (s *Store) Publish(p PublishParams) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := &Notification{
		ID:         uuid.New(),
		Kind:       p.Kind,
		Title:      p.Title,
		Body:       p.Body,
		Priority:   p.Priority,
		TargetRole: p.TargetRole,
		ActionRef:  p.ActionRef,
		Metadata:   cloneMetadata(p.Metadata),
		CreatedAt:  s.now(),
	}

	s.byID[n.ID] = n
	s.order = append(s.order, n.ID)
	s.evictLocked()
	return n.ID
}

// List returns the notifications visible to role, newest first.
// The result is a snapshot; mutating it does not affect the store.
func (s *Store) List(role roles.Role) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Notification, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		n := s.byID[s.order[i]]
		if n.VisibleTo(role) {
			item := *n
			item.Metadata = cloneMetadata(n.Metadata)
			items = append(items, item)
		}
	}

	// Insertion order already yields newest-first; keep the sort stable on
	// CreatedAt so entries published within the same tick stay deterministic.
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].CreatedAt.After(items[b].CreatedAt)
	})
	return items
}

// UnreadCount returns the number of unread notifications visible to role.
// Computed under the same lock discipline as List, so the two always agree.
func (s *Store) UnreadCount(role roles.Role) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.byID {
		if n.VisibleTo(role) && !n.Read {
			count++
		}
	}
	return count
}

// MarkRead marks one notification read within the role's view.
// Unknown ids and already-read entries are silent no-ops: from the caller's
// perspective the notification is "already gone", not an error.
func (s *Store) MarkRead(role roles.Role, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.byID[id]; ok && n.VisibleTo(role) {
		n.Read = true
	}
}

// MarkAllRead marks every notification visible to role as read.
// Other roles' entries are untouched.
func (s *Store) MarkAllRead(role roles.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byID {
		if n.VisibleTo(role) {
			n.Read = true
		}
	}
}

// Remove deletes one notification. Idempotent; removing an unknown id is a no-op.
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// Clear removes every notification visible to role.
func (s *Store) Clear(role roles.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.byID {
		if n.VisibleTo(role) {
			s.removeLocked(id)
		}
	}
}

// Len returns the total number of stored notifications across all roles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// evictLocked enforces the capacity bound: oldest read entries go first,
// then oldest entries outright. Caller holds the write lock.
func (s *Store) evictLocked() {
	for len(s.byID) > s.capacity {
		victim := uuid.Nil
		for _, id := range s.order {
			if s.byID[id].Read {
				victim = id
				break
			}
		}
		if victim == uuid.Nil {
			victim = s.order[0]
		}
		s.removeLocked(victim)
	}
}

// cloneMetadata copies the map so neither the publisher nor a List caller
// holds a reference into the store.
func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) removeLocked(id uuid.UUID) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
