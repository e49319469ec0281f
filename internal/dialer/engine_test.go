package dialer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dialer-platform/internal/events"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/telephony"
)

type fakeCall struct {
	leadID         string
	providerCallID string
	complete       telephony.CompleteFunc
	resolved       bool
}

// fakeProvider records dial requests and lets tests resolve them explicitly.
type fakeProvider struct {
	mu       sync.Mutex
	seq      int
	calls    []*fakeCall
	canceled []string
	startErr map[string]error
}

func (p *fakeProvider) Name() string                      { return "fake" }
func (p *fakeProvider) HealthCheck(context.Context) error { return nil }

func (p *fakeProvider) Recording(providerCallID string) string {
	return "rec://" + providerCallID
}

func (p *fakeProvider) Start(lead leads.Lead, _ string, onComplete telephony.CompleteFunc) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.startErr[lead.ID]; ok {
		return "", err
	}
	p.seq++
	c := &fakeCall{
		leadID:         lead.ID,
		providerCallID: fmt.Sprintf("PROV-%d", p.seq),
		complete:       onComplete,
	}
	p.calls = append(p.calls, c)
	return c.providerCallID, nil
}

func (p *fakeProvider) Cancel(providerCallID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.canceled = append(p.canceled, providerCallID)
	for _, c := range p.calls {
		if c.providerCallID == providerCallID {
			c.resolved = true
		}
	}
}

func (p *fakeProvider) startedLeads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		out = append(out, c.leadID)
	}
	return out
}

// tryResolve fires the completion callback for the oldest unresolved dial of
// the given lead, simulating the provider's async resolution.
func (p *fakeProvider) tryResolve(leadID string, outcome telephony.Outcome) bool {
	p.mu.Lock()
	var fn telephony.CompleteFunc
	for _, c := range p.calls {
		if c.leadID == leadID && !c.resolved {
			c.resolved = true
			fn = c.complete
			break
		}
	}
	p.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(outcome)
	return true
}

func (p *fakeProvider) resolve(t *testing.T, leadID string, outcome telephony.Outcome) {
	t.Helper()
	if !p.tryResolve(leadID, outcome) {
		t.Fatalf("no unresolved call for lead %s", leadID)
	}
}

type fakeSyncer struct {
	mu     sync.Mutex
	synced []Call
	err    error
}

func (s *fakeSyncer) SyncCall(_ context.Context, call Call) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = append(s.synced, call)
	if s.err != nil {
		return "", s.err
	}
	return "ACT-" + call.ID, nil
}

func seedLead(t *testing.T, repo *leads.MemoryRepo, id string, score int) {
	t.Helper()
	err := repo.Create(context.Background(), leads.Lead{
		ID:            id,
		Name:          "Lead " + id,
		PhoneNumber:   "+1500" + id,
		Company:       id + " Co",
		PriorityScore: score,
	})
	if err != nil {
		t.Fatalf("seed lead %s: %v", id, err)
	}
}

func newTestEngine(t *testing.T, repo *leads.MemoryRepo, p telephony.Provider, syncer ActivitySyncer, opts Options) *Engine {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return NewEngine(NewStore(), repo, p, syncer, events.NewBus[Event](), opts)
}

func TestCreateSession_RejectsEmptyLeadList(t *testing.T) {
	e := newTestEngine(t, leads.NewMemoryRepo(), &fakeProvider{}, &fakeSyncer{}, Options{})

	if _, err := e.CreateSession(context.Background(), "agent-1", nil); !errors.Is(err, ErrEmptyLeadList) {
		t.Fatalf("expected ErrEmptyLeadList, got %v", err)
	}
}

func TestCreateSession_RejectsBusyAgent(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 50)
	e := newTestEngine(t, repo, &fakeProvider{}, &fakeSyncer{}, Options{Concurrency: 1})

	if _, err := e.CreateSession(context.Background(), "agent-1", []string{"l1"}); err != nil {
		t.Fatalf("first session: %v", err)
	}
	if _, err := e.CreateSession(context.Background(), "agent-1", []string{"l1"}); !errors.Is(err, ErrAgentBusy) {
		t.Fatalf("expected ErrAgentBusy, got %v", err)
	}
	// A different agent is unaffected.
	if _, err := e.CreateSession(context.Background(), "agent-2", []string{"l1"}); err != nil {
		t.Fatalf("other agent: %v", err)
	}
}

func TestCreateSession_DialsHighestPriorityFirst(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "low", 10)
	seedLead(t, repo, "high", 80)
	seedLead(t, repo, "mid", 40)

	p := &fakeProvider{}
	e := newTestEngine(t, repo, p, &fakeSyncer{}, Options{Concurrency: 2})

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"low", "high", "mid"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	started := p.startedLeads()
	if len(started) != 2 || started[0] != "high" || started[1] != "mid" {
		t.Fatalf("expected [high mid] dialed, got %v", started)
	}
	if len(state.LeadQueue) != 1 || state.LeadQueue[0] != "low" {
		t.Fatalf("expected [low] queued, got %v", state.LeadQueue)
	}
	if state.Status != SessionStatusRunning {
		t.Fatalf("expected RUNNING, got %s", state.Status)
	}
	if state.Metrics.Attempted != 2 || len(state.ActiveCallIDs) != 2 {
		t.Fatalf("expected 2 attempted/active, got %+v", state.Metrics)
	}
}

func TestCreateSession_SkipsMissingLeadsSilently(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 50)

	p := &fakeProvider{}
	e := newTestEngine(t, repo, p, &fakeSyncer{}, Options{Concurrency: 2})

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"ghost-a", "l1", "ghost-b"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := p.startedLeads(); len(got) != 1 || got[0] != "l1" {
		t.Fatalf("expected only l1 dialed, got %v", got)
	}
	if state.Metrics.Attempted != 1 {
		t.Fatalf("missing leads must not count as attempted, got %d", state.Metrics.Attempted)
	}
	if len(state.LeadQueue) != 0 {
		t.Fatalf("queue should be drained, got %v", state.LeadQueue)
	}
}

func TestCreateSession_AllLeadsInvalidStopsImmediately(t *testing.T) {
	e := newTestEngine(t, leads.NewMemoryRepo(), &fakeProvider{}, &fakeSyncer{}, Options{})

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"ghost-a", "ghost-b"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if state.Status != SessionStatusStopped {
		t.Fatalf("expected immediate STOPPED, got %s", state.Status)
	}
	if state.Metrics.Attempted != 0 || len(state.Calls) != 0 {
		t.Fatalf("expected zero calls, got %+v", state)
	}
}

func TestWinner_CancelsSiblingsAndStops(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)
	seedLead(t, repo, "l2", 80)
	seedLead(t, repo, "l3", 70)

	p := &fakeProvider{}
	syncer := &fakeSyncer{}
	e := newTestEngine(t, repo, p, syncer, Options{Concurrency: 2})

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"l1", "l2", "l3"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p.resolve(t, "l1", telephony.OutcomeConnected)

	state, err = e.SessionState(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	if state.Status != SessionStatusStopped {
		t.Fatalf("winner must stop the session, got %s", state.Status)
	}
	if state.WinnerCallID == "" {
		t.Fatalf("expected winner call id")
	}
	if got := p.startedLeads(); len(got) != 2 {
		t.Fatalf("winner path must never refill, dialed %v", got)
	}
	if len(p.canceled) != 1 {
		t.Fatalf("expected one sibling cancellation, got %v", p.canceled)
	}

	m := state.Metrics
	if m.Attempted != 2 || m.Connected != 1 || m.Canceled != 1 || m.Failed != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	if m.Attempted != m.Connected+m.Failed+m.Canceled {
		t.Fatalf("metrics do not balance: %+v", m)
	}

	for _, c := range state.Calls {
		if c.Status != CallStatusCompleted {
			t.Fatalf("call %s not terminal", c.ID)
		}
		if c.ID == state.WinnerCallID {
			if c.Outcome != telephony.OutcomeConnected || c.RecordingURL == "" {
				t.Fatalf("winner call malformed: %+v", c)
			}
		} else {
			if c.Outcome != telephony.OutcomeCanceled {
				t.Fatalf("sibling must be CANCELED_BY_DIALER, got %s", c.Outcome)
			}
			if c.RecordingURL != "" {
				t.Fatalf("canceled call must not carry a recording")
			}
		}
	}
}

func TestExhaustion_RefillsThenStops(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)
	seedLead(t, repo, "l2", 80)
	seedLead(t, repo, "l3", 70)

	p := &fakeProvider{}
	e := newTestEngine(t, repo, p, &fakeSyncer{}, Options{Concurrency: 2})

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"l1", "l2", "l3"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p.resolve(t, "l1", telephony.OutcomeNoAnswer)

	mid, _ := e.SessionState(context.Background(), state.ID)
	if mid.Status != SessionStatusRunning {
		t.Fatalf("session should keep running while leads remain")
	}
	if got := p.startedLeads(); len(got) != 3 || got[2] != "l3" {
		t.Fatalf("failure must trigger a refill, dialed %v", got)
	}

	p.resolve(t, "l2", telephony.OutcomeBusy)
	p.resolve(t, "l3", telephony.OutcomeVoicemail)

	final, _ := e.SessionState(context.Background(), state.ID)
	if final.Status != SessionStatusStopped {
		t.Fatalf("exhausted session must stop, got %s", final.Status)
	}
	if final.WinnerCallID != "" {
		t.Fatalf("no winner expected")
	}
	m := final.Metrics
	if m.Attempted != 3 || m.Failed != 3 || m.Connected != 0 || m.Canceled != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestStaleResolution_IgnoredAfterCancel(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)
	seedLead(t, repo, "l2", 80)

	p := &fakeProvider{}
	e := newTestEngine(t, repo, p, &fakeSyncer{}, Options{Concurrency: 2})

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"l1", "l2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// l1 wins; l2 is force-canceled by the engine.
	p.resolve(t, "l1", telephony.OutcomeConnected)

	// The provider callback for l2 fires late anyway. It must not mutate the
	// already-terminal call or the session.
	p.mu.Lock()
	var late telephony.CompleteFunc
	for _, c := range p.calls {
		if c.leadID == "l2" {
			late = c.complete
		}
	}
	p.mu.Unlock()
	late(telephony.OutcomeConnected)

	final, _ := e.SessionState(context.Background(), state.ID)
	m := final.Metrics
	if m.Connected != 1 || m.Canceled != 1 {
		t.Fatalf("stale resolution mutated metrics: %+v", m)
	}
	for _, c := range final.Calls {
		if c.LeadID == "l2" && c.Outcome != telephony.OutcomeCanceled {
			t.Fatalf("canceled call was overwritten: %+v", c)
		}
	}
	if final.WinnerCallID == "" {
		t.Fatalf("winner must be preserved")
	}
}

func TestLateConnect_KeepsExistingWinner(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)
	seedLead(t, repo, "l2", 80)

	p := &fakeProvider{}
	e := newTestEngine(t, repo, p, &fakeSyncer{}, Options{Concurrency: 2})

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"l1", "l2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(state.ActiveCallIDs) != 2 {
		t.Fatalf("expected two ringing calls, got %v", state.ActiveCallIDs)
	}
	first, second := state.ActiveCallIDs[0], state.ActiveCallIDs[1]

	// Two CONNECTED resolutions race. The first claims the session; by the
	// time the second is processed a winner already exists while its call is
	// still RINGING. First writer wins; the late connect still counts.
	e.mu.Lock()
	s, ok := e.store.session(state.ID)
	if !ok {
		e.mu.Unlock()
		t.Fatalf("session missing")
	}
	s.WinnerCallID = first
	e.mu.Unlock()

	e.handleProviderComplete(second, telephony.OutcomeConnected)

	final, err := e.SessionState(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if final.WinnerCallID != first {
		t.Fatalf("winner must not change, got %s", final.WinnerCallID)
	}
	if final.Metrics.Connected != 1 {
		t.Fatalf("late CONNECTED must increment connected, got %+v", final.Metrics)
	}
	if final.Metrics.Failed != 0 || final.Metrics.Canceled != 0 {
		t.Fatalf("late CONNECTED must touch no other counter: %+v", final.Metrics)
	}
	for _, c := range final.Calls {
		if c.ID != second {
			continue
		}
		if c.Status != CallStatusCompleted || c.Outcome != telephony.OutcomeConnected {
			t.Fatalf("late call must keep its real outcome: %+v", c.Call)
		}
	}
}

func TestStopSession_CancelsActiveAndIsIdempotent(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)
	seedLead(t, repo, "l2", 80)
	seedLead(t, repo, "l3", 70)

	p := &fakeProvider{}
	e := newTestEngine(t, repo, p, &fakeSyncer{}, Options{Concurrency: 2})

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"l1", "l2", "l3"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := e.StopSession(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if first.Status != SessionStatusStopped {
		t.Fatalf("expected STOPPED, got %s", first.Status)
	}
	if len(first.LeadQueue) != 0 || len(first.ActiveCallIDs) != 0 {
		t.Fatalf("stop must drain queue and actives: %+v", first.Session)
	}
	if first.Metrics.Canceled != 2 {
		t.Fatalf("expected 2 canceled, got %+v", first.Metrics)
	}

	cancels := len(p.canceled)
	second, err := e.StopSession(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if second.Metrics != first.Metrics || second.Status != SessionStatusStopped {
		t.Fatalf("second stop must be a no-op: %+v vs %+v", second.Metrics, first.Metrics)
	}
	if len(p.canceled) != cancels {
		t.Fatalf("second stop must not cancel again")
	}
}

func TestStopSession_UnknownSession(t *testing.T) {
	e := newTestEngine(t, leads.NewMemoryRepo(), &fakeProvider{}, &fakeSyncer{}, Options{})
	if _, err := e.StopSession(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCRMSync_TransitionsToSynced(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)

	p := &fakeProvider{}
	syncer := &fakeSyncer{}
	e := newTestEngine(t, repo, p, syncer, Options{Concurrency: 1})

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"l1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p.resolve(t, "l1", telephony.OutcomeNoAnswer)
	e.waitForSyncs(state.ID, time.Second)

	final, _ := e.SessionState(context.Background(), state.ID)
	if len(final.Calls) != 1 {
		t.Fatalf("expected one call")
	}
	c := final.Calls[0]
	if c.CRMSyncStatus != SyncStatusSynced {
		t.Fatalf("expected SYNCED, got %s", c.CRMSyncStatus)
	}
	if c.CRMActivityID != "ACT-"+c.ID {
		t.Fatalf("unexpected activity id %q", c.CRMActivityID)
	}
}

func TestCRMSync_FailureOnlyMarksSyncStatus(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)

	p := &fakeProvider{}
	syncer := &fakeSyncer{err: errors.New("crm down")}
	e := newTestEngine(t, repo, p, syncer, Options{Concurrency: 1})

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"l1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p.resolve(t, "l1", telephony.OutcomeBusy)
	e.waitForSyncs(state.ID, time.Second)

	final, _ := e.SessionState(context.Background(), state.ID)
	c := final.Calls[0]
	if c.CRMSyncStatus != SyncStatusFailed {
		t.Fatalf("expected FAILED, got %s", c.CRMSyncStatus)
	}
	if c.CRMActivityID != "" {
		t.Fatalf("failed sync must not record an activity id")
	}
	if c.Outcome != telephony.OutcomeBusy || final.Status != SessionStatusStopped {
		t.Fatalf("sync failure must not disturb call or session state")
	}
}

func TestCreateSessionAndWait_ForceStopsAtCeiling(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)

	// Provider never resolves, so only the ceiling can end the wait.
	p := &fakeProvider{}
	e := newTestEngine(t, repo, p, &fakeSyncer{}, Options{Concurrency: 1, SyncWait: 30 * time.Millisecond})

	start := time.Now()
	state, err := e.CreateSessionAndWait(context.Background(), "agent-1", []string{"l1"})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("ceiling did not bound the wait")
	}
	if state.Status != SessionStatusStopped {
		t.Fatalf("expected force-stopped session, got %s", state.Status)
	}
	if state.Metrics.Canceled != 1 {
		t.Fatalf("expected the in-flight call canceled, got %+v", state.Metrics)
	}
}

func TestCreateSessionAndWait_ReturnsOnWinner(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)

	p := &fakeProvider{}
	e := newTestEngine(t, repo, p, &fakeSyncer{}, Options{Concurrency: 1, SyncWait: 5 * time.Second})

	go func() {
		for !p.tryResolve("l1", telephony.OutcomeConnected) {
			time.Sleep(time.Millisecond)
		}
	}()

	start := time.Now()
	state, err := e.CreateSessionAndWait(context.Background(), "agent-1", []string{"l1"})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("winner should end the wait early")
	}
	if state.WinnerCallID == "" || state.Status != SessionStatusStopped {
		t.Fatalf("expected stopped session with winner, got %+v", state.Session)
	}
}

func TestCreateSessionAndWait_ImmediateExhaustion(t *testing.T) {
	// All leads invalid: the session stops during creation and the facade
	// must return right away instead of waiting out the ceiling.
	e := newTestEngine(t, leads.NewMemoryRepo(), &fakeProvider{}, &fakeSyncer{}, Options{SyncWait: time.Hour})

	start := time.Now()
	state, err := e.CreateSessionAndWait(context.Background(), "agent-1", []string{"ghost"})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("facade blocked on an already-stopped session")
	}
	if state.Status != SessionStatusStopped || state.Metrics.Attempted != 0 {
		t.Fatalf("unexpected state %+v", state.Session)
	}
}

func TestEvents_WinnerSequence(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)

	p := &fakeProvider{}
	e := newTestEngine(t, repo, p, &fakeSyncer{}, Options{Concurrency: 1})
	ch, cancel := e.bus.Subscribe(64)
	defer cancel()

	state, err := e.CreateSession(context.Background(), "agent-1", []string{"l1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p.resolve(t, "l1", telephony.OutcomeConnected)
	e.waitForSyncs(state.ID, time.Second)

	var types []EventType
drain:
	for {
		select {
		case ev := <-ch:
			types = append(types, ev.Type)
		default:
			break drain
		}
	}

	order := map[EventType]int{}
	for i, typ := range types {
		if _, seen := order[typ]; !seen {
			order[typ] = i
		}
	}
	started, okS := order[EventCallStarted]
	completed, okC := order[EventCallCompleted]
	winner, okW := order[EventWinnerFound]
	if !okS || !okC || !okW {
		t.Fatalf("missing lifecycle events, got %v", types)
	}
	if !(started < completed && completed < winner) {
		t.Fatalf("events out of order: %v", types)
	}
	if _, ok := order[EventSessionUpdate]; !ok {
		t.Fatalf("expected session updates alongside lifecycle events")
	}
}

func TestListSessions_FiltersAndOrders(t *testing.T) {
	repo := leads.NewMemoryRepo()
	seedLead(t, repo, "l1", 90)

	p := &fakeProvider{}
	e := newTestEngine(t, repo, p, &fakeSyncer{}, Options{Concurrency: 1})
	e.clock = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	first, err := e.CreateSession(context.Background(), "agent-1", []string{"l1"})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := e.StopSession(context.Background(), first.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}

	e.clock = func() time.Time { return time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC) }
	second, err := e.CreateSession(context.Background(), "agent-1", []string{"l1"})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if _, err := e.CreateSession(context.Background(), "agent-2", []string{"l1"}); err != nil {
		t.Fatalf("other agent: %v", err)
	}

	all, err := e.ListSessions(context.Background(), "agent-1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest-first sessions for agent-1, got %+v", all)
	}

	running, err := e.ListSessions(context.Background(), "agent-1", SessionStatusRunning)
	if err != nil {
		t.Fatalf("list running: %v", err)
	}
	if len(running) != 1 || running[0].ID != second.ID {
		t.Fatalf("status filter broken, got %+v", running)
	}
}
