// Package service contains the lead claim coordinator: intake, broadcast
// fan-out, atomic claim arbitration, expiry and cancellation.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"estate_portal_backend/internal/claims/domain"
	"estate_portal_backend/internal/directory"
	"estate_portal_backend/internal/events"
	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	opCreate    = "claims.create"
	opBroadcast = "claims.broadcast"
	opClaim     = "claims.claim"
	opExpire    = "claims.expire"
	opCancel    = "claims.cancel"
	opStatus    = "claims.status"
	opRestore   = "claims.restore"
)

// AgentProvider resolves candidate ids against the agent directory.
type AgentProvider interface {
	Get(ctx context.Context, id uuid.UUID) (directory.Agent, error)
}

// ChannelSender delivers one broadcast message to one contact handle.
type ChannelSender interface {
	Send(ctx context.Context, contactHandle, message string) (string, error)
}

// Journal records request snapshots for crash recovery. Implementations are
// best-effort: the coordinator logs journal errors and moves on, the
// in-memory state stays authoritative.
type Journal interface {
	Record(ctx context.Context, req domain.Request) error
	LoadActive(ctx context.Context) ([]domain.Request, error)
}

// entry pairs one request with its own mutex. All transitions for a request
// happen under entry.mu; the coordinator map lock is never held across a
// transition or a send.
type entry struct {
	mu           sync.Mutex
	req          domain.Request
	broadcasting bool
}

// Coordinator owns the claim lifecycle. Exactly-one-winner arbitration is a
// check-and-set under the per-request mutex in Claim.
type Coordinator struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry

	agents      AgentProvider
	sender      ChannelSender
	bus         events.Bus
	journal     Journal
	log         *logger.Logger
	ttl         time.Duration
	concurrency int
	now         func() time.Time
}

// NewCoordinator wires a coordinator. journal may be nil when no redis is
// configured; sender may be nil in tests that never broadcast.
func NewCoordinator(cfg config.ClaimsConfig, agents AgentProvider, sender ChannelSender, bus events.Bus, journal Journal, log *logger.Logger) *Coordinator {
	concurrency := cfg.GetBroadcastConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}
	return &Coordinator{
		entries:     make(map[uuid.UUID]*entry),
		agents:      agents,
		sender:      sender,
		bus:         bus,
		journal:     journal,
		log:         log,
		ttl:         cfg.GetClaimTTL(),
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Create takes in a new lead and registers it as Pending. Candidates are
// resolved against the directory at intake so the broadcast works from a
// stable snapshot of names and contact handles.
func (c *Coordinator) Create(ctx context.Context, payload string, candidateIDs []uuid.UUID) (domain.Request, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return domain.Request{}, apperr.Validation("payload is required").WithOp(opCreate)
	}
	if len(candidateIDs) == 0 {
		return domain.Request{}, apperr.Validation("at least one candidate is required").WithOp(opCreate)
	}

	seen := make(map[uuid.UUID]bool, len(candidateIDs))
	candidates := make([]domain.Candidate, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		agent, err := c.agents.Get(ctx, id)
		if err != nil {
			return domain.Request{}, apperr.Validation(fmt.Sprintf("unknown candidate %s", id)).WithOp(opCreate)
		}
		candidates = append(candidates, domain.Candidate{
			AgentID:       agent.ID,
			Name:          agent.Name,
			ContactHandle: agent.ContactHandle,
		})
	}

	now := c.now()
	req := domain.Request{
		ID:         uuid.New(),
		Payload:    payload,
		Candidates: candidates,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.ttl),
	}

	c.mu.Lock()
	c.entries[req.ID] = &entry{req: req}
	c.mu.Unlock()

	c.record(ctx, req)
	c.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:      events.NewBaseEvent(),
		RequestID:      req.ID,
		Payload:        req.Payload,
		CandidateCount: len(req.Candidates),
		ExpiresAt:      req.ExpiresAt,
	})

	c.log.WithContext(ctx).Info("lead created",
		"requestId", req.ID, "candidates", len(req.Candidates), "expiresAt", req.ExpiresAt)
	return req.Clone(), nil
}

// Broadcast fans the request out to every candidate in candidate order and
// moves it Pending → Broadcast. Delivery failures are reported per candidate
// and never abort the remaining sends. Calling Broadcast again, or while a
// fan-out is in flight, is a no-op that returns the current status.
func (c *Coordinator) Broadcast(ctx context.Context, id uuid.UUID) (domain.Status, error) {
	e, err := c.entry(id, opBroadcast)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.req.Status != domain.StatusPending || e.broadcasting {
		status := e.req.Status
		e.mu.Unlock()
		return status, nil
	}
	e.broadcasting = true
	candidates := e.req.Clone().Candidates
	message := broadcastMessage(e.req)
	e.mu.Unlock()

	var resultMu sync.Mutex
	delivered, failed := 0, 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, cand := range candidates {
		g.Go(func() error {
			_, sendErr := c.sender.Send(gctx, cand.ContactHandle, message)

			resultMu.Lock()
			if sendErr != nil {
				failed++
			} else {
				delivered++
			}
			resultMu.Unlock()

			if sendErr != nil {
				c.log.DeliveryError(id.String(), cand.AgentID.String(), sendErr)
				c.bus.Publish(ctx, events.DeliveryFailed{
					BaseEvent:     events.NewBaseEvent(),
					RequestID:     id,
					AgentID:       cand.AgentID,
					ContactHandle: cand.ContactHandle,
					Reason:        sendErr.Error(),
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	e.broadcasting = false
	if e.req.Status == domain.StatusPending {
		e.req.Status = domain.StatusBroadcast
	}
	status := e.req.Status
	snapshot := e.req.Clone()
	e.mu.Unlock()

	c.record(ctx, snapshot)
	c.bus.Publish(ctx, events.LeadBroadcast{
		BaseEvent: events.NewBaseEvent(),
		RequestID: id,
		Delivered: delivered,
		Failed:    failed,
	})

	c.log.WithContext(ctx).Info("lead broadcast",
		"requestId", id, "delivered", delivered, "failed", failed)
	return status, nil
}

// Claim resolves the race for a broadcast request. The first candidate to
// acquire the request mutex and pass the check-and-set wins; every later
// caller gets a conflict. A repeated claim by the winner is a no-op success.
func (c *Coordinator) Claim(ctx context.Context, id, agentID uuid.UUID) (domain.Request, error) {
	e, err := c.entry(id, opClaim)
	if err != nil {
		return domain.Request{}, err
	}

	e.mu.Lock()

	switch e.req.Status {
	case domain.StatusClaimed:
		if e.req.ClaimedBy != nil && *e.req.ClaimedBy == agentID {
			snapshot := e.req.Clone()
			e.mu.Unlock()
			return snapshot, nil
		}
		e.mu.Unlock()
		c.log.ClaimResolved(id.String(), agentID.String(), false)
		return domain.Request{}, apperr.Conflict("lead already claimed").WithOp(opClaim)
	case domain.StatusExpired:
		e.mu.Unlock()
		return domain.Request{}, apperr.Gone("lead offer expired").WithOp(opClaim)
	case domain.StatusCancelled:
		e.mu.Unlock()
		return domain.Request{}, apperr.Gone("lead was cancelled").WithOp(opClaim)
	case domain.StatusPending:
		e.mu.Unlock()
		return domain.Request{}, apperr.InvalidState("lead has not been broadcast yet").WithOp(opClaim)
	}

	// Lazy expiry: a sweep may not have run yet.
	if c.now().After(e.req.ExpiresAt) {
		e.req.Status = domain.StatusExpired
		snapshot := e.req.Clone()
		e.mu.Unlock()

		c.record(ctx, snapshot)
		c.publishExpired(ctx, snapshot)
		return domain.Request{}, apperr.Gone("lead offer expired").WithOp(opClaim)
	}

	cand, ok := candidateByID(e.req.Candidates, agentID)
	if !ok {
		e.mu.Unlock()
		return domain.Request{}, apperr.Forbidden("agent is not a candidate for this lead").WithOp(opClaim)
	}

	claimedAt := c.now()
	e.req.Status = domain.StatusClaimed
	e.req.ClaimedBy = &agentID
	e.req.ClaimedAt = &claimedAt
	snapshot := e.req.Clone()
	e.mu.Unlock()

	c.record(ctx, snapshot)
	c.bus.Publish(ctx, events.LeadClaimed{
		BaseEvent: events.NewBaseEvent(),
		RequestID: id,
		AgentID:   agentID,
		AgentName: cand.Name,
		Payload:   snapshot.Payload,
	})

	c.log.ClaimResolved(id.String(), agentID.String(), true)
	return snapshot, nil
}

// Expire moves an unclaimed request to Expired once its deadline has
// passed. It reports whether this call performed the transition, so the
// sweep can count its work; calling it again, or early, is a no-op.
func (c *Coordinator) Expire(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	e, err := c.entry(id, opExpire)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	if e.req.Status.Terminal() || !now.After(e.req.ExpiresAt) {
		e.mu.Unlock()
		return false, nil
	}
	e.req.Status = domain.StatusExpired
	snapshot := e.req.Clone()
	e.mu.Unlock()

	c.record(ctx, snapshot)
	c.publishExpired(ctx, snapshot)
	return true, nil
}

// Cancel withdraws a non-terminal request. Cancelling an already terminal
// request is a no-op.
func (c *Coordinator) Cancel(ctx context.Context, id uuid.UUID) error {
	e, err := c.entry(id, opCancel)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.req.Status.Terminal() {
		e.mu.Unlock()
		return nil
	}
	e.req.Status = domain.StatusCancelled
	snapshot := e.req.Clone()
	e.mu.Unlock()

	c.record(ctx, snapshot)
	c.bus.Publish(ctx, events.LeadCancelled{
		BaseEvent: events.NewBaseEvent(),
		RequestID: id,
		Payload:   snapshot.Payload,
	})

	c.log.WithContext(ctx).Info("lead cancelled", "requestId", id)
	return nil
}

// Status returns a snapshot copy of one request.
func (c *Coordinator) Status(_ context.Context, id uuid.UUID) (domain.Request, error) {
	e, err := c.entry(id, opStatus)
	if err != nil {
		return domain.Request{}, err
	}

	e.mu.Lock()
	snapshot := e.req.Clone()
	e.mu.Unlock()
	return snapshot, nil
}

// List returns snapshots of every known request, newest first.
func (c *Coordinator) List(_ context.Context) []domain.Request {
	c.mu.RLock()
	entries := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	out := make([]domain.Request, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.req.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SweepExpired expires every request whose deadline has passed and returns
// how many it transitioned. The scheduler runs this periodically; tests call
// it directly with a fixed clock.
func (c *Coordinator) SweepExpired(ctx context.Context, now time.Time) int {
	c.mu.RLock()
	ids := make([]uuid.UUID, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	expired := 0
	for _, id := range ids {
		did, err := c.Expire(ctx, id, now)
		if err != nil {
			continue
		}
		if did {
			expired++
		}
	}

	if expired > 0 {
		c.log.SweepResult(expired)
	}
	return expired
}

// Restore rehydrates non-terminal requests from the journal after a restart.
// Requests already present in memory are left untouched.
func (c *Coordinator) Restore(ctx context.Context) error {
	if c.journal == nil {
		return nil
	}

	reqs, err := c.journal.LoadActive(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "journal rehydration failed", err).WithOp(opRestore)
	}

	restored := 0
	c.mu.Lock()
	for _, req := range reqs {
		if _, exists := c.entries[req.ID]; exists {
			continue
		}
		c.entries[req.ID] = &entry{req: req.Clone()}
		restored++
	}
	c.mu.Unlock()

	if restored > 0 {
		c.log.WithContext(ctx).Info("journal restored", "requests", restored)
	}
	return nil
}

func (c *Coordinator) entry(id uuid.UUID, op string) (*entry, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("claim request not found").WithOp(op)
	}
	return e, nil
}

func (c *Coordinator) record(ctx context.Context, req domain.Request) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(ctx, req); err != nil {
		c.log.WithContext(ctx).Warn("journal write failed", "requestId", req.ID, "error", err)
	}
}

func (c *Coordinator) publishExpired(ctx context.Context, req domain.Request) {
	c.bus.Publish(ctx, events.LeadExpired{
		BaseEvent: events.NewBaseEvent(),
		RequestID: req.ID,
		Payload:   req.Payload,
	})
	c.log.WithContext(ctx).Info("lead expired", "requestId", req.ID)
}

func candidateByID(candidates []domain.Candidate, agentID uuid.UUID) (domain.Candidate, bool) {
	for _, cand := range candidates {
		if cand.AgentID == agentID {
			return cand, true
		}
	}
	return domain.Candidate{}, false
}

func broadcastMessage(req domain.Request) string {
	return fmt.Sprintf("New lead available: %s. Claim it in the portal (reference %s).", req.Payload, req.ID)
}
