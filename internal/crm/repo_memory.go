package crm

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("crm: not found")

// MemoryRepo is the in-memory stand-in for the external CRM's data store.
// Safe for concurrent use; the engine syncs sibling calls from separate
// goroutines.
type MemoryRepo struct {
	mu             sync.RWMutex
	contactsByLead map[string]Contact
	activityByCall map[string]Activity
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		contactsByLead: make(map[string]Contact),
		activityByCall: make(map[string]Activity),
	}
}

// UpsertContact stores the contact for its lead unless one already exists.
// The stored contact is returned either way, which makes redundant upserts
// converge on a single CRM identity per lead.
func (r *MemoryRepo) UpsertContact(ctx context.Context, c Contact) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.contactsByLead[c.LeadID]; ok {
		return existing, nil
	}
	r.contactsByLead[c.LeadID] = c
	return c, nil
}

func (r *MemoryRepo) ContactByLead(ctx context.Context, leadID string) (Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contactsByLead[leadID]
	if !ok {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

// PutActivity stores the activity unless one already exists for its call id.
// First writer wins; the stored activity is returned.
func (r *MemoryRepo) PutActivity(ctx context.Context, a Activity) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.activityByCall[a.CallID]; ok {
		return existing, nil
	}
	r.activityByCall[a.CallID] = a
	return a, nil
}

func (r *MemoryRepo) ActivityByCall(ctx context.Context, callID string) (Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.activityByCall[callID]
	if !ok {
		return Activity{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) ListContacts(ctx context.Context) ([]Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Contact, 0, len(r.contactsByLead))
	for _, c := range r.contactsByLead {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) ListActivities(ctx context.Context, leadID string) ([]Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Activity, 0, len(r.activityByCall))
	for _, a := range r.activityByCall {
		if leadID != "" && a.LeadID != leadID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
