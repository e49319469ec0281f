package leads

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is the in-memory lead store.
// It is the authoritative store in in-memory mode and safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	leads map[string]Lead
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{leads: make(map[string]Lead)}
}

func (r *MemoryRepo) Create(ctx context.Context, l Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = l
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) Update(ctx context.Context, l Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[l.ID]; !ok {
		return ErrNotFound
	}
	r.leads[l.ID] = l
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Lead, 0, len(r.leads))
	for _, l := range r.leads {
		if f.Industry != "" && !strings.EqualFold(l.Industry, f.Industry) {
			continue
		}
		if f.Headcount != "" && l.Headcount != f.Headcount {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SetCRMExternalID records the external CRM contact id, write-once.
// A second write with a different id is a no-op, which keeps redundant
// idempotent upserts harmless.
func (r *MemoryRepo) SetCRMExternalID(ctx context.Context, id, crmID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[id]
	if !ok {
		return ErrNotFound
	}
	if l.CRMExternalID != "" {
		return nil
	}
	l.CRMExternalID = crmID
	r.leads[id] = l
	return nil
}
