package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"estate_portal_backend/internal/claims/domain"
	"estate_portal_backend/internal/directory"
	"estate_portal_backend/internal/events"
	"estate_portal_backend/internal/roles"
	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type testClaimsConfig struct{}

func (testClaimsConfig) GetClaimTTL() time.Duration   { return 30 * time.Minute }
func (testClaimsConfig) GetBroadcastConcurrency() int { return 4 }

type fakeAgents struct {
	agents map[uuid.UUID]directory.Agent
}

func newFakeAgents(n int) *fakeAgents {
	f := &fakeAgents{agents: make(map[uuid.UUID]directory.Agent)}
	for i := 0; i < n; i++ {
		id := uuid.New()
		f.agents[id] = directory.Agent{
			ID:            id,
			Name:          fmt.Sprintf("Agent %d", i),
			Role:          roles.Agent,
			ContactHandle: fmt.Sprintf("+3161234%04d", i),
			Available:     true,
		}
	}
	return f
}

func (f *fakeAgents) Get(_ context.Context, id uuid.UUID) (directory.Agent, error) {
	agent, ok := f.agents[id]
	if !ok {
		return directory.Agent{}, apperr.NotFound("agent not found")
	}
	return agent, nil
}

func (f *fakeAgents) ids() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(f.agents))
	for id := range f.agents {
		out = append(out, id)
	}
	return out
}

type fakeSender struct {
	mu          sync.Mutex
	sent        []string
	failHandles map[string]bool
}

func (s *fakeSender) Send(_ context.Context, contactHandle, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failHandles[contactHandle] {
		return "", errors.New("channel unreachable")
	}
	s.sent = append(s.sent, contactHandle)
	return uuid.NewString(), nil
}

func (s *fakeSender) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *eventRecorder) countByName(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

func newTestCoordinator(t *testing.T, agentCount int) (*Coordinator, *fakeAgents, *fakeSender, *events.InMemoryBus, *eventRecorder) {
	t.Helper()
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	recorder := &eventRecorder{}
	for _, name := range []string{
		"claims.lead.created", "claims.lead.broadcast", "claims.lead.claimed",
		"claims.lead.expired", "claims.lead.cancelled", "claims.delivery.failed",
	} {
		bus.Subscribe(name, events.HandlerFunc(recorder.record))
	}

	agents := newFakeAgents(agentCount)
	sender := &fakeSender{}
	coord := NewCoordinator(testClaimsConfig{}, agents, sender, bus, nil, log)
	return coord, agents, sender, bus, recorder
}

func TestCreateValidation(t *testing.T) {
	coord, agents, _, _, _ := newTestCoordinator(t, 2)
	ctx := context.Background()

	if _, err := coord.Create(ctx, "", agents.ids()); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("empty payload: expected validation error, got %v", err)
	}
	if _, err := coord.Create(ctx, "kitchen renovation", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("no candidates: expected validation error, got %v", err)
	}
	if _, err := coord.Create(ctx, "kitchen renovation", []uuid.UUID{uuid.New()}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown candidate: expected validation error, got %v", err)
	}
}

func TestCreateDeduplicatesCandidates(t *testing.T) {
	coord, agents, _, _, _ := newTestCoordinator(t, 1)
	ids := agents.ids()

	req, err := coord.Create(context.Background(), "bathroom remodel", []uuid.UUID{ids[0], ids[0], ids[0]})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(req.Candidates) != 1 {
		t.Fatalf("expected 1 candidate after dedupe, got %d", len(req.Candidates))
	}
	if req.Status != domain.StatusPending {
		t.Fatalf("new request should be pending, got %s", req.Status)
	}
}

func TestBroadcastSendsOncePerCandidateAndIsIdempotent(t *testing.T) {
	coord, agents, sender, bus, _ := newTestCoordinator(t, 3)
	ctx := context.Background()

	req, err := coord.Create(ctx, "roof inspection", agents.ids())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	status, err := coord.Broadcast(ctx, req.ID)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if status != domain.StatusBroadcast {
		t.Fatalf("expected broadcast status, got %s", status)
	}
	if sender.sendCount() != 3 {
		t.Fatalf("expected 3 sends, got %d", sender.sendCount())
	}

	// Second broadcast must not send again.
	status, err = coord.Broadcast(ctx, req.ID)
	if err != nil {
		t.Fatalf("second Broadcast: %v", err)
	}
	if status != domain.StatusBroadcast {
		t.Fatalf("expected broadcast status after repeat, got %s", status)
	}
	if sender.sendCount() != 3 {
		t.Fatalf("repeat broadcast sent again: %d sends", sender.sendCount())
	}
	bus.Wait()
}

func TestBroadcastDeliveryFailureDoesNotAbort(t *testing.T) {
	coord, agents, sender, bus, recorder := newTestCoordinator(t, 4)
	ctx := context.Background()

	req, err := coord.Create(ctx, "garden landscaping", agents.ids())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sender.failHandles = map[string]bool{req.Candidates[1].ContactHandle: true}

	status, err := coord.Broadcast(ctx, req.ID)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if status != domain.StatusBroadcast {
		t.Fatalf("one failed delivery must not block the broadcast, got %s", status)
	}
	if sender.sendCount() != 3 {
		t.Fatalf("expected 3 successful sends, got %d", sender.sendCount())
	}

	bus.Wait()
	if got := recorder.countByName("claims.delivery.failed"); got != 1 {
		t.Fatalf("expected 1 delivery failure event, got %d", got)
	}
}

func TestBroadcastUnknownRequest(t *testing.T) {
	coord, _, _, _, _ := newTestCoordinator(t, 1)

	if _, err := coord.Broadcast(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// Two candidates race for the same broadcast lead; exactly one wins and the
// loser gets a conflict, while the win is announced to every role.
func TestConcurrentClaimsExactlyOneWinner(t *testing.T) {
	coord, agents, _, bus, recorder := newTestCoordinator(t, 3)
	ctx := context.Background()
	ids := agents.ids()

	req, err := coord.Create(ctx, "apartment viewing", ids)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := coord.Broadcast(ctx, req.ID); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = coord.Claim(ctx, req.ID, ids[i])
		}()
	}
	wg.Wait()

	winners, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	if winners != 1 || conflicts != 1 {
		t.Fatalf("expected 1 winner and 1 conflict, got %d winners, %d conflicts", winners, conflicts)
	}

	final, err := coord.Status(ctx, req.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if final.Status != domain.StatusClaimed || final.ClaimedBy == nil {
		t.Fatalf("expected claimed request with claimedBy set, got %+v", final)
	}

	bus.Wait()
	if got := recorder.countByName("claims.lead.claimed"); got != 1 {
		t.Fatalf("expected exactly 1 claimed event, got %d", got)
	}
}

func TestClaimRaceManyGoroutines(t *testing.T) {
	const n = 32
	coord, agents, _, bus, recorder := newTestCoordinator(t, n)
	ctx := context.Background()
	ids := agents.ids()

	req, err := coord.Create(ctx, "office relocation", ids)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := coord.Broadcast(ctx, req.ID); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	start := make(chan struct{})
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = coord.Claim(ctx, req.ID, ids[i])
		}()
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else if !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("loser got unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner out of %d claimants, got %d", n, winners)
	}

	bus.Wait()
	if got := recorder.countByName("claims.lead.claimed"); got != 1 {
		t.Fatalf("expected 1 claimed event, got %d", got)
	}
}

func TestClaimRepeatByWinnerIsIdempotent(t *testing.T) {
	coord, agents, _, _, _ := newTestCoordinator(t, 2)
	ctx := context.Background()
	ids := agents.ids()

	req, _ := coord.Create(ctx, "solar panel quote", ids)
	if _, err := coord.Broadcast(ctx, req.ID); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	if _, err := coord.Claim(ctx, req.ID, ids[0]); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	second, err := coord.Claim(ctx, req.ID, ids[0])
	if err != nil {
		t.Fatalf("repeat claim by winner should succeed, got %v", err)
	}
	if second.ClaimedBy == nil || *second.ClaimedBy != ids[0] {
		t.Fatalf("repeat claim returned wrong snapshot: %+v", second)
	}
}

func TestClaimErrors(t *testing.T) {
	coord, agents, _, _, _ := newTestCoordinator(t, 2)
	ctx := context.Background()
	ids := agents.ids()

	if _, err := coord.Claim(ctx, uuid.New(), ids[0]); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown id: expected not found, got %v", err)
	}

	req, _ := coord.Create(ctx, "basement conversion", ids)
	if _, err := coord.Claim(ctx, req.ID, ids[0]); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("pending claim: expected invalid state, got %v", err)
	}

	if _, err := coord.Broadcast(ctx, req.ID); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	outsider := uuid.New()
	if _, err := coord.Claim(ctx, req.ID, outsider); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("non-candidate claim: expected forbidden, got %v", err)
	}
}

// A candidate replies after the offer window closed.
func TestClaimAfterExpiry(t *testing.T) {
	coord, agents, _, bus, recorder := newTestCoordinator(t, 2)
	ctx := context.Background()
	ids := agents.ids()

	req, _ := coord.Create(ctx, "loft insulation", ids)
	if _, err := coord.Broadcast(ctx, req.ID); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	did, err := coord.Expire(ctx, req.ID, req.ExpiresAt.Add(time.Second))
	if err != nil || !did {
		t.Fatalf("Expire = (%v, %v), want (true, nil)", did, err)
	}

	if _, err := coord.Claim(ctx, req.ID, ids[0]); !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("late claim: expected gone, got %v", err)
	}

	// Expiring again is a no-op.
	did, err = coord.Expire(ctx, req.ID, req.ExpiresAt.Add(time.Minute))
	if err != nil || did {
		t.Fatalf("second Expire = (%v, %v), want (false, nil)", did, err)
	}

	bus.Wait()
	if got := recorder.countByName("claims.lead.expired"); got != 1 {
		t.Fatalf("expected 1 expired event, got %d", got)
	}
}

func TestExpireBeforeDeadlineIsNoOp(t *testing.T) {
	coord, agents, _, _, _ := newTestCoordinator(t, 1)
	ctx := context.Background()

	req, _ := coord.Create(ctx, "window replacement", agents.ids())
	did, err := coord.Expire(ctx, req.ID, req.ExpiresAt.Add(-time.Minute))
	if err != nil || did {
		t.Fatalf("early Expire = (%v, %v), want (false, nil)", did, err)
	}
}

func TestLazyExpiryOnClaim(t *testing.T) {
	coord, agents, _, _, _ := newTestCoordinator(t, 1)
	ctx := context.Background()
	ids := agents.ids()

	req, _ := coord.Create(ctx, "driveway paving", ids)
	if _, err := coord.Broadcast(ctx, req.ID); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	// No sweep has run, but the deadline is in the past.
	coord.now = func() time.Time { return req.ExpiresAt.Add(time.Hour) }
	if _, err := coord.Claim(ctx, req.ID, ids[0]); !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("expected gone on lazy expiry, got %v", err)
	}

	final, _ := coord.Status(ctx, req.ID)
	if final.Status != domain.StatusExpired {
		t.Fatalf("lazy expiry should persist, got %s", final.Status)
	}
}

func TestCancelIsIdempotentOnTerminal(t *testing.T) {
	coord, agents, _, _, _ := newTestCoordinator(t, 2)
	ctx := context.Background()
	ids := agents.ids()

	req, _ := coord.Create(ctx, "facade cleaning", ids)
	if err := coord.Cancel(ctx, req.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := coord.Cancel(ctx, req.ID); err != nil {
		t.Fatalf("repeat Cancel: %v", err)
	}

	final, _ := coord.Status(ctx, req.ID)
	if final.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", final.Status)
	}

	if _, err := coord.Claim(ctx, req.ID, ids[0]); !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("claim on cancelled: expected gone, got %v", err)
	}
}

func TestSweepExpiredCountsTransitions(t *testing.T) {
	coord, agents, _, _, _ := newTestCoordinator(t, 2)
	ctx := context.Background()
	ids := agents.ids()

	first, _ := coord.Create(ctx, "lead one", ids)
	second, _ := coord.Create(ctx, "lead two", ids)
	if _, err := coord.Broadcast(ctx, second.ID); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	// Claim the second so the sweep only touches the first.
	if _, err := coord.Claim(ctx, second.ID, ids[0]); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	expired := coord.SweepExpired(ctx, first.ExpiresAt.Add(time.Second))
	if expired != 1 {
		t.Fatalf("expected 1 expired, got %d", expired)
	}
	if expired = coord.SweepExpired(ctx, first.ExpiresAt.Add(time.Minute)); expired != 0 {
		t.Fatalf("second sweep expected 0, got %d", expired)
	}
}

type fakeJournal struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.Request
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{records: make(map[uuid.UUID]domain.Request)}
}

func (j *fakeJournal) Record(_ context.Context, req domain.Request) error {
	j.mu.Lock()
	j.records[req.ID] = req.Clone()
	j.mu.Unlock()
	return nil
}

func (j *fakeJournal) LoadActive(_ context.Context) ([]domain.Request, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.Request, 0, len(j.records))
	for _, req := range j.records {
		if !req.Status.Terminal() {
			out = append(out, req.Clone())
		}
	}
	return out, nil
}

func TestRestoreRehydratesActiveRequests(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	agents := newFakeAgents(2)
	journal := newFakeJournal()
	ctx := context.Background()

	first := NewCoordinator(testClaimsConfig{}, agents, &fakeSender{}, bus, journal, log)
	active, err := first.Create(ctx, "persisted lead", agents.ids())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	cancelled, err := first.Create(ctx, "withdrawn lead", agents.ids())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := first.Cancel(ctx, cancelled.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// A fresh process restores only the non-terminal request.
	second := NewCoordinator(testClaimsConfig{}, agents, &fakeSender{}, bus, journal, log)
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restored, err := second.Status(ctx, active.ID)
	if err != nil {
		t.Fatalf("restored request missing: %v", err)
	}
	if restored.Status != domain.StatusPending || restored.Payload != "persisted lead" {
		t.Fatalf("restored request mismatch: %+v", restored)
	}
	if _, err := second.Status(ctx, cancelled.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("terminal request should not be restored, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	coord, agents, _, _, _ := newTestCoordinator(t, 1)
	ctx := context.Background()

	base := time.Now()
	coord.now = func() time.Time { return base }
	older, _ := coord.Create(ctx, "older lead", agents.ids())
	coord.now = func() time.Time { return base.Add(time.Minute) }
	newer, _ := coord.Create(ctx, "newer lead", agents.ids())

	list := coord.List(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(list))
	}
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("expected newest first ordering")
	}
}
