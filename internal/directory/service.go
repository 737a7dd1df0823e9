package directory

import (
	"context"
	"sort"
	"sync"

	"estate_portal_backend/internal/roles"
	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	opRegister     = "directory.register"
	opSetAvailable = "directory.set_available"
	opGet          = "directory.get"
)

// Service is the agent registry. A single mutex-guarded map suffices: the
// directory has no cross-key invariants, only standard map consistency.
type Service struct {
	mu     sync.RWMutex
	agents map[uuid.UUID]Agent
	log    *logger.Logger
}

// NewService creates an empty directory.
func NewService(log *logger.Logger) *Service {
	return &Service{
		agents: make(map[uuid.UUID]Agent),
		log:    log,
	}
}

// Register adds or replaces an agent. A zero ID is assigned one.
func (s *Service) Register(ctx context.Context, agent Agent) (Agent, error) {
	if agent.Name == "" {
		return Agent{}, apperr.Validation("agent name is required").WithOp(opRegister)
	}
	if !roles.Valid(agent.Role) {
		return Agent{}, apperr.Validation("unknown agent role").WithOp(opRegister)
	}
	if agent.ContactHandle == "" {
		return Agent{}, apperr.Validation("contact handle is required").WithOp(opRegister)
	}

	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}

	s.mu.Lock()
	s.agents[agent.ID] = agent
	s.mu.Unlock()

	s.log.WithContext(ctx).Info("agent registered", "agentId", agent.ID, "role", agent.Role)
	return agent, nil
}

// SetAvailable flips an agent's availability flag.
func (s *Service) SetAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[id]
	if !ok {
		return apperr.NotFound("agent not found").WithOp(opSetAvailable)
	}
	agent.Available = available
	s.agents[id] = agent
	return nil
}

// Get returns one agent by id.
func (s *Service) Get(_ context.Context, id uuid.UUID) (Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agent, ok := s.agents[id]
	if !ok {
		return Agent{}, apperr.NotFound("agent not found").WithOp(opGet)
	}
	return agent, nil
}

// CandidatesFor returns the agents of a role, optionally filtered to
// available ones, sorted by name for stable iteration.
func (s *Service) CandidatesFor(_ context.Context, role roles.Role, requireAvailable bool) []Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]Agent, 0)
	for _, agent := range s.agents {
		if agent.Role != role {
			continue
		}
		if requireAvailable && !agent.Available {
			continue
		}
		candidates = append(candidates, agent)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name < candidates[j].Name
	})
	return candidates
}

// List returns every registered agent, sorted by name.
func (s *Service) List(_ context.Context) []Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Agent, 0, len(s.agents))
	for _, agent := range s.agents {
		all = append(all, agent)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all
}
