package telephony

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"dialer-platform/internal/leads"

	"github.com/google/uuid"
)

// MockProvider simulates outbound dialing: each started call resolves to a
// weighted-random outcome after a uniformly random delay within [MinDelay,
// MaxDelay]. Pending resolutions are tracked in a timer table keyed by
// provider call id so Cancel can release them before they fire.
type MockProvider struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	// Outcomes overrides the weighted table; DefaultOutcomes when nil.
	Outcomes []WeightedOutcome

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewMockProvider(minDelay, maxDelay time.Duration) *MockProvider {
	return &MockProvider{
		MinDelay: minDelay,
		MaxDelay: maxDelay,
		timers:   make(map[string]*time.Timer),
	}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *MockProvider) Start(lead leads.Lead, sessionID string, onComplete CompleteFunc) (string, error) {
	providerCallID := newProviderCallID()

	outcomes := p.Outcomes
	if outcomes == nil {
		outcomes = DefaultOutcomes
	}

	// Register under the lock: the callback takes the same lock, so even an
	// immediate fire observes its own table entry.
	p.mu.Lock()
	p.timers[providerCallID] = time.AfterFunc(p.randomDelay(), func() {
		p.mu.Lock()
		_, pending := p.timers[providerCallID]
		delete(p.timers, providerCallID)
		p.mu.Unlock()
		if !pending {
			// Canceled between firing and lock acquisition.
			return
		}
		onComplete(Weighted(outcomes))
	})
	p.mu.Unlock()

	return providerCallID, nil
}

func (p *MockProvider) Cancel(providerCallID string) {
	p.mu.Lock()
	timer, ok := p.timers[providerCallID]
	delete(p.timers, providerCallID)
	p.mu.Unlock()

	if ok {
		timer.Stop()
	}
}

func (p *MockProvider) Recording(providerCallID string) string {
	return fmt.Sprintf("https://mock-recordings.example.com/%s.wav", providerCallID)
}

// Pending reports the number of unresolved calls. Useful for tests.
func (p *MockProvider) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.timers)
}

func (p *MockProvider) randomDelay() time.Duration {
	minMs := int(p.MinDelay / time.Millisecond)
	maxMs := int(p.MaxDelay / time.Millisecond)
	return time.Duration(randIntInclusive(minMs, maxMs)) * time.Millisecond
}

func newProviderCallID() string {
	return "PROV-" + strings.ToUpper(uuid.NewString()[:8])
}
