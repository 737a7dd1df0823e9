package feed

import (
	"sync"
	"testing"

	"estate_portal_backend/internal/roles"

	"github.com/google/uuid"
)

func publishFor(t *testing.T, s *Store, target roles.Role, title string) uuid.UUID {
	t.Helper()
	return s.Publish(PublishParams{
		Kind:       KindNewLead,
		Title:      title,
		Body:       "body",
		Priority:   PriorityMedium,
		TargetRole: target,
	})
}

func TestVisibilityFilter(t *testing.T) {
	s := NewStore(100)
	agentOnly := publishFor(t, s, roles.Agent, "agent only")
	adminOnly := publishFor(t, s, roles.Admin, "admin only")
	everyone := publishFor(t, s, roles.All, "wildcard")

	for _, tc := range []struct {
		role    roles.Role
		visible []uuid.UUID
		hidden  []uuid.UUID
	}{
		{roles.Agent, []uuid.UUID{agentOnly, everyone}, []uuid.UUID{adminOnly}},
		{roles.Admin, []uuid.UUID{adminOnly, everyone}, []uuid.UUID{agentOnly}},
		{roles.Assistant, []uuid.UUID{everyone}, []uuid.UUID{agentOnly, adminOnly}},
	} {
		listed := make(map[uuid.UUID]bool)
		for _, n := range s.List(tc.role) {
			listed[n.ID] = true
		}
		for _, id := range tc.visible {
			if !listed[id] {
				t.Errorf("role %s: expected %s visible", tc.role, id)
			}
		}
		for _, id := range tc.hidden {
			if listed[id] {
				t.Errorf("role %s: expected %s hidden", tc.role, id)
			}
		}
	}
}

func TestListIsNewestFirst(t *testing.T) {
	s := NewStore(100)
	first := publishFor(t, s, roles.Agent, "first")
	second := publishFor(t, s, roles.Agent, "second")
	third := publishFor(t, s, roles.Agent, "third")

	got := s.List(roles.Agent)
	want := []uuid.UUID{third, second, first}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestListedMetadataDoesNotAliasStore(t *testing.T) {
	s := NewStore(100)
	callerMeta := map[string]string{"leadId": "lead-1"}
	s.Publish(PublishParams{
		Kind:       KindNewLead,
		Title:      "with metadata",
		Priority:   PriorityMedium,
		TargetRole: roles.Agent,
		Metadata:   callerMeta,
	})

	// Neither the publisher's map nor a listed copy may write through to
	// the store.
	callerMeta["leadId"] = "tampered by publisher"
	first := s.List(roles.Agent)
	first[0].Metadata["leadId"] = "tampered by reader"

	got := s.List(roles.Agent)
	if got[0].Metadata["leadId"] != "lead-1" {
		t.Fatalf("stored metadata mutated through an alias: %q", got[0].Metadata["leadId"])
	}
}

func TestUnreadAccountingMatchesList(t *testing.T) {
	s := NewStore(100)
	ids := make([]uuid.UUID, 0, 5)
	for i := 0; i < 3; i++ {
		ids = append(ids, publishFor(t, s, roles.Agent, "agent"))
	}
	ids = append(ids, publishFor(t, s, roles.All, "wildcard"))
	publishFor(t, s, roles.Admin, "admin")

	check := func() {
		t.Helper()
		unreadInList := 0
		for _, n := range s.List(roles.Agent) {
			if !n.Read {
				unreadInList++
			}
		}
		if got := s.UnreadCount(roles.Agent); got != unreadInList {
			t.Fatalf("UnreadCount=%d but list has %d unread", got, unreadInList)
		}
	}

	check()
	s.MarkRead(roles.Agent, ids[0])
	check()
	s.MarkRead(roles.Agent, ids[0]) // second call: same state as one call
	check()
	s.MarkAllRead(roles.Agent)
	check()
	if got := s.UnreadCount(roles.Agent); got != 0 {
		t.Fatalf("expected 0 unread after MarkAllRead, got %d", got)
	}
	// Admin-targeted entry must be untouched by the agent's MarkAllRead.
	if got := s.UnreadCount(roles.Admin); got != 1 {
		t.Fatalf("expected admin unread 1, got %d", got)
	}
}

func TestMarkReadOutsideRoleViewIsIgnored(t *testing.T) {
	s := NewStore(100)
	adminOnly := publishFor(t, s, roles.Admin, "admin only")

	s.MarkRead(roles.Agent, adminOnly)
	if got := s.UnreadCount(roles.Admin); got != 1 {
		t.Fatalf("agent must not mark admin-scoped notification read, unread=%d", got)
	}

	s.MarkRead(roles.Agent, uuid.New()) // unknown id: silent no-op
}

func TestRemoveIsTerminalAndIdempotent(t *testing.T) {
	s := NewStore(100)
	id := publishFor(t, s, roles.Agent, "to remove")

	s.Remove(id)
	if len(s.List(roles.Agent)) != 0 {
		t.Fatal("removed notification must not be listed")
	}
	s.Remove(id) // no-op the second time
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestClearOnlyAffectsRoleView(t *testing.T) {
	s := NewStore(100)
	publishFor(t, s, roles.Agent, "agent")
	publishFor(t, s, roles.Admin, "admin")
	publishFor(t, s, roles.All, "wildcard")

	s.Clear(roles.Agent)

	if got := len(s.List(roles.Agent)); got != 0 {
		t.Fatalf("agent feed should be empty, got %d", got)
	}
	// The wildcard entry was visible to the agent, so clearing took it from
	// everyone; the admin-scoped entry survives.
	admin := s.List(roles.Admin)
	if len(admin) != 1 || admin[0].TargetRole != roles.Admin {
		t.Fatalf("expected only the admin-scoped entry to survive, got %d", len(admin))
	}
}

func TestEvictionPrefersOldestRead(t *testing.T) {
	s := NewStore(3)
	oldest := publishFor(t, s, roles.Agent, "oldest")
	middle := publishFor(t, s, roles.Agent, "middle")
	publishFor(t, s, roles.Agent, "newer")

	s.MarkRead(roles.Agent, middle)
	publishFor(t, s, roles.Agent, "overflow")

	listed := make(map[uuid.UUID]bool)
	for _, n := range s.List(roles.Agent) {
		listed[n.ID] = true
	}
	if listed[middle] {
		t.Fatal("oldest read entry should have been evicted first")
	}
	if !listed[oldest] {
		t.Fatal("unread entry evicted while a read entry existed")
	}
	if s.Len() != 3 {
		t.Fatalf("capacity bound violated: %d", s.Len())
	}
}

func TestEvictionFallsBackToOldestUnread(t *testing.T) {
	s := NewStore(2)
	oldest := publishFor(t, s, roles.Agent, "oldest")
	publishFor(t, s, roles.Agent, "second")
	publishFor(t, s, roles.Agent, "third")

	for _, n := range s.List(roles.Agent) {
		if n.ID == oldest {
			t.Fatal("expected oldest unread entry to be evicted on overflow")
		}
	}
}

func TestConcurrentPublishAndQueryStaysConsistent(t *testing.T) {
	s := NewStore(10_000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				publishFor(t, s, roles.Agent, "concurrent")
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				// Count from one snapshot; must never exceed what List sees
				// at some later point.
				count := s.UnreadCount(roles.Agent)
				if count < 0 {
					t.Error("negative unread count")
				}
			}
		}()
	}
	wg.Wait()

	if got := s.UnreadCount(roles.Agent); got != 400 {
		t.Fatalf("expected 400 unread after publishers finish, got %d", got)
	}
}
