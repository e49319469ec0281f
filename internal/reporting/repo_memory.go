package reporting

import (
	"context"
	"sync"

	"dialer-platform/internal/dialer"
)

// MemoryRepo is a simple in-memory session source for tests and early
// development. It enforces agent isolation on reads.

type MemoryRepo struct {
	mu sync.Mutex

	States []dialer.SessionState
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListSessionStates(ctx context.Context, agentID string) ([]dialer.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]dialer.SessionState, 0)
	for _, s := range r.States {
		if s.AgentID != agentID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
