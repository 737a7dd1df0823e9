// Package domain holds the lead claim request model and its transition
// rules. The coordinator in service/ enforces them under locks; this
// package is pure data and tables.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a claim request.
type Status string

const (
	// StatusPending: taken in, not yet offered to candidates.
	StatusPending Status = "pending"
	// StatusBroadcast: offered to every candidate; claimable.
	StatusBroadcast Status = "broadcast"
	// StatusClaimed: exactly one candidate won. Terminal.
	StatusClaimed Status = "claimed"
	// StatusExpired: TTL passed unclaimed. Terminal.
	StatusExpired Status = "expired"
	// StatusCancelled: operator withdrew the request. Terminal.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusClaimed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// transitions is the full legality table. Nothing ever leads back to
// Pending or Broadcast.
var transitions = map[Status][]Status{
	StatusPending:   {StatusBroadcast, StatusExpired, StatusCancelled},
	StatusBroadcast: {StatusClaimed, StatusExpired, StatusCancelled},
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

// Candidate is one agent the request was (or will be) offered to, with the
// contact data snapshotted at intake so later directory edits cannot change
// an in-flight broadcast.
type Candidate struct {
	AgentID       uuid.UUID `json:"agentId"`
	Name          string    `json:"name"`
	ContactHandle string    `json:"contactHandle"`
}

// Request is one inbound opportunity moving through the claim lifecycle.
// ClaimedBy is set if and only if Status is StatusClaimed.
type Request struct {
	ID         uuid.UUID   `json:"id"`
	Payload    string      `json:"payload"`
	Candidates []Candidate `json:"candidates"`
	Status     Status      `json:"status"`
	ClaimedBy  *uuid.UUID  `json:"claimedBy,omitempty"`
	ClaimedAt  *time.Time  `json:"claimedAt,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	ExpiresAt  time.Time   `json:"expiresAt"`
}

// Clone returns a deep copy safe to hand outside the coordinator's locks.
func (r Request) Clone() Request {
	out := r
	out.Candidates = make([]Candidate, len(r.Candidates))
	copy(out.Candidates, r.Candidates)
	if r.ClaimedBy != nil {
		claimedBy := *r.ClaimedBy
		out.ClaimedBy = &claimedBy
	}
	if r.ClaimedAt != nil {
		claimedAt := *r.ClaimedAt
		out.ClaimedAt = &claimedAt
	}
	return out
}
