// Package transport defines request/response DTOs for the claims HTTP API.
package transport

import (
	"time"

	"estate_portal_backend/internal/claims/domain"

	"github.com/google/uuid"
)

// CreateLeadRequest is the intake payload for a new claim request.
type CreateLeadRequest struct {
	Payload      string      `json:"payload" binding:"required"`
	CandidateIDs []uuid.UUID `json:"candidateIds" binding:"required,min=1"`
}

// ClaimRequest is the body of the claim callback. AgentID is only honored
// for admin callers (the channel webhook service account); agents always
// claim as themselves.
type ClaimRequest struct {
	AgentID *uuid.UUID `json:"agentId"`
}

// CandidateResponse is one snapshotted candidate on a request.
type CandidateResponse struct {
	AgentID uuid.UUID `json:"agentId"`
	Name    string    `json:"name"`
}

// RequestResponse is the API view of a claim request. Contact handles stay
// internal; candidates are exposed by id and name only.
type RequestResponse struct {
	ID         uuid.UUID           `json:"id"`
	Payload    string              `json:"payload"`
	Status     string              `json:"status"`
	Candidates []CandidateResponse `json:"candidates"`
	ClaimedBy  *uuid.UUID          `json:"claimedBy,omitempty"`
	ClaimedAt  *time.Time          `json:"claimedAt,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	ExpiresAt  time.Time           `json:"expiresAt"`
}

// FromDomain maps a domain snapshot to its API view.
func FromDomain(req domain.Request) RequestResponse {
	candidates := make([]CandidateResponse, 0, len(req.Candidates))
	for _, cand := range req.Candidates {
		candidates = append(candidates, CandidateResponse{AgentID: cand.AgentID, Name: cand.Name})
	}
	return RequestResponse{
		ID:         req.ID,
		Payload:    req.Payload,
		Status:     string(req.Status),
		Candidates: candidates,
		ClaimedBy:  req.ClaimedBy,
		ClaimedAt:  req.ClaimedAt,
		CreatedAt:  req.CreatedAt,
		ExpiresAt:  req.ExpiresAt,
	}
}

// FromDomainList maps a slice of snapshots.
func FromDomainList(reqs []domain.Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, FromDomain(req))
	}
	return out
}
