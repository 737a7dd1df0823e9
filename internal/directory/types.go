// Package directory keeps the registry of agents eligible for lead
// broadcasts. It is a plain lookup cache; the claim coordinator asks it for
// candidates, the back office maintains it over HTTP.
package directory

import (
	"estate_portal_backend/internal/roles"

	"github.com/google/uuid"
)

// Agent is one registered back-office member.
type Agent struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Role          roles.Role `json:"role"`
	ContactHandle string     `json:"contactHandle"`
	Available     bool       `json:"available"`
}
