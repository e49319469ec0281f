package dialer

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"dialer-platform/internal/events"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/telephony"

	"github.com/google/uuid"
)

// LeadStore is the read-side lead contract the engine needs.
type LeadStore interface {
	Get(ctx context.Context, id string) (leads.Lead, error)
}

// ActivitySyncer mirrors a completed call into the external CRM.
// Implementations must be idempotent per call id.
type ActivitySyncer interface {
	SyncCall(ctx context.Context, call Call) (activityID string, err error)
}

// Mirror is the optional best-effort durable copy of finished sessions.
// The engine stays fully correct when it is nil.
type Mirror interface {
	SaveSession(ctx context.Context, state SessionState) error
}

var (
	ErrNotFound      = errors.New("dialer: not found")
	ErrEmptyLeadList = errors.New("dialer: non-empty lead list required")
	ErrAgentBusy     = errors.New("dialer: agent already has a running session")
)

// Engine drives parallel-dial sessions.
//
// All session-state mutation is serialized through mu: concurrent calls are a
// logical capacity limit (outstanding provider resolutions), not parallel
// mutation of shared state. Scheduler and winner-detection logic run to
// completion while the lock is held, so within one completion the winner path
// fully resolves before any refill is considered.
type Engine struct {
	mu    sync.Mutex
	store *Store

	leads    LeadStore
	provider telephony.Provider
	syncer   ActivitySyncer
	mirror   Mirror
	bus      *events.Bus[Event]
	log      *slog.Logger

	concurrency int
	syncWait    time.Duration
	clock       func() time.Time

	// pending maps call id -> provider call id for unresolved calls.
	// Cancellation removes the entry and releases the provider resource
	// before the call is marked terminal.
	pending map[string]string

	done  map[string]chan struct{}
	syncs map[string]*sync.WaitGroup
}

// Options tunes an Engine. Zero values fall back to safe defaults.
type Options struct {
	Concurrency int
	SyncWait    time.Duration
	Mirror      Mirror
	Logger      *slog.Logger
}

func NewEngine(store *Store, leadStore LeadStore, provider telephony.Provider, syncer ActivitySyncer, bus *events.Bus[Event], opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.SyncWait <= 0 {
		opts.SyncWait = 9 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Engine{
		store:       store,
		leads:       leadStore,
		provider:    provider,
		syncer:      syncer,
		mirror:      opts.Mirror,
		bus:         bus,
		log:         opts.Logger,
		concurrency: opts.Concurrency,
		syncWait:    opts.SyncWait,
		clock:       time.Now,
		pending:     make(map[string]string),
		done:        make(map[string]chan struct{}),
		syncs:       make(map[string]*sync.WaitGroup),
	}
}

/* ===================== SESSION LIFECYCLE ===================== */

// CreateSession validates, creates and starts a session.
// Rejections happen before any session or call state exists.
func (e *Engine) CreateSession(ctx context.Context, agentID string, leadIDs []string) (SessionState, error) {
	if len(leadIDs) == 0 {
		return SessionState{}, ErrEmptyLeadList
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hasRunningSessionLocked(agentID) {
		return SessionState{}, ErrAgentBusy
	}

	queue := make([]string, len(leadIDs))
	copy(queue, leadIDs)
	e.sortQueueByPriority(ctx, queue)

	s := &Session{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		LeadQueue:   queue,
		Concurrency: e.concurrency,
		Status:      SessionStatusRunning,
		CreatedAt:   e.clock().UTC(),
	}
	e.store.putSession(s)
	e.done[s.ID] = make(chan struct{})
	e.syncs[s.ID] = &sync.WaitGroup{}

	e.fillSlotsLocked(ctx, s)

	return e.sessionStateLocked(ctx, s), nil
}

// CreateSessionAndWait runs a session to completion before returning.
// The syncWait ceiling bounds the wall-clock latency: a session still running
// at the ceiling is force-stopped before the snapshot is returned.
func (e *Engine) CreateSessionAndWait(ctx context.Context, agentID string, leadIDs []string) (SessionState, error) {
	state, err := e.CreateSession(ctx, agentID, leadIDs)
	if err != nil {
		return SessionState{}, err
	}

	e.mu.Lock()
	done := e.done[state.ID]
	e.mu.Unlock()

	// A nil channel means the session already finished during creation.
	if done != nil {
		ceiling := time.NewTimer(e.syncWait)
		defer ceiling.Stop()

		select {
		case <-done:
		case <-ceiling.C:
			_, _ = e.StopSession(ctx, state.ID)
		case <-ctx.Done():
			_, _ = e.StopSession(ctx, state.ID)
		}
	}

	// Give in-flight CRM syncs a moment to land in the snapshot.
	e.waitForSyncs(state.ID, 500*time.Millisecond)

	return e.SessionState(ctx, state.ID)
}

// StopSession cancels all active calls and stops the session.
// Stopping an already-stopped session is a no-op returning the unchanged state.
func (e *Engine) StopSession(ctx context.Context, sessionID string) (SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.store.session(sessionID)
	if !ok {
		return SessionState{}, ErrNotFound
	}
	if s.Status == SessionStatusStopped {
		return e.sessionStateLocked(ctx, s), nil
	}

	active := make([]string, len(s.ActiveCallIDs))
	copy(active, s.ActiveCallIDs)
	for _, callID := range active {
		e.cancelCallLocked(ctx, s, callID)
	}

	s.LeadQueue = nil
	e.finishLocked(ctx, s, EventSessionStopped)

	return e.sessionStateLocked(ctx, s), nil
}

// SessionState returns a point-in-time snapshot with lead-enriched calls.
func (e *Engine) SessionState(ctx context.Context, sessionID string) (SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.store.session(sessionID)
	if !ok {
		return SessionState{}, ErrNotFound
	}
	return e.sessionStateLocked(ctx, s), nil
}

// Call returns one call enriched with lead display fields.
func (e *Engine) Call(ctx context.Context, callID string) (CallView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.store.call(callID)
	if !ok {
		return CallView{}, ErrNotFound
	}
	return e.callViewLocked(ctx, c), nil
}

// ListSessions returns an agent's sessions, newest first, optionally filtered
// by status.
func (e *Engine) ListSessions(ctx context.Context, agentID string, status SessionStatus) ([]Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Session
	for _, s := range e.store.sessionsByAgent(agentID) {
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, snapshotSession(s))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListSessionStates returns full snapshots of an agent's sessions.
func (e *Engine) ListSessionStates(ctx context.Context, agentID string) ([]SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []SessionState
	for _, s := range e.store.sessionsByAgent(agentID) {
		out = append(out, e.sessionStateLocked(ctx, s))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// HasRunningSession reports whether the agent has a RUNNING session.
func (e *Engine) HasRunningSession(agentID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasRunningSessionLocked(agentID)
}

func (e *Engine) hasRunningSessionLocked(agentID string) bool {
	for _, s := range e.store.sessionsByAgent(agentID) {
		if s.Status == SessionStatusRunning {
			return true
		}
	}
	return false
}

/* ===================== SCHEDULER ===================== */

// fillSlotsLocked dequeues leads and dispatches calls until the session's
// slots are full or the queue is empty. Leads that no longer resolve are
// skipped silently: no slot, no attempted increment.
func (e *Engine) fillSlotsLocked(ctx context.Context, s *Session) {
	if s.Status != SessionStatusRunning {
		return
	}

	for len(s.ActiveCallIDs) < s.Concurrency && len(s.LeadQueue) > 0 {
		leadID := s.LeadQueue[0]
		s.LeadQueue = s.LeadQueue[1:]

		lead, err := e.leads.Get(ctx, leadID)
		if err != nil {
			continue
		}

		callID := uuid.NewString()
		providerCallID, err := e.provider.Start(lead, s.ID, func(outcome telephony.Outcome) {
			e.handleProviderComplete(callID, outcome)
		})
		if err != nil {
			e.log.Warn("provider start failed", "session_id", s.ID, "lead_id", leadID, "err", err)
			continue
		}

		call := &Call{
			ID:             callID,
			LeadID:         leadID,
			SessionID:      s.ID,
			Status:         CallStatusRinging,
			StartedAt:      e.clock().UTC(),
			ProviderCallID: providerCallID,
			CRMSyncStatus:  SyncStatusNone,
		}
		e.store.putCall(call)
		e.pending[callID] = providerCallID

		s.ActiveCallIDs = append(s.ActiveCallIDs, callID)
		s.CallIDs = append(s.CallIDs, callID)
		s.Metrics.Attempted++

		e.publishLocked(ctx, Event{Type: EventCallStarted, SessionID: s.ID, Call: e.callViewPtrLocked(ctx, call)})
	}

	// No active calls and nothing left to dial: the session is exhausted.
	if len(s.ActiveCallIDs) == 0 && len(s.LeadQueue) == 0 {
		e.finishLocked(ctx, s, EventSessionStopped)
	}
}

/* ===================== COMPLETION & WINNER DETECTION ===================== */

// handleProviderComplete is invoked by the provider when a call resolves.
// Stale resolutions for already-terminal calls are ignored.
func (e *Engine) handleProviderComplete(callID string, outcome telephony.Outcome) {
	ctx := context.Background()

	e.mu.Lock()
	defer e.mu.Unlock()

	call, ok := e.store.call(callID)
	if !ok || call.Status != CallStatusRinging {
		return
	}
	s, ok := e.store.session(call.SessionID)
	if !ok {
		return
	}

	delete(e.pending, callID)

	now := e.clock().UTC()
	call.Status = CallStatusCompleted
	call.Outcome = outcome
	call.EndedAt = &now
	call.RecordingURL = e.provider.Recording(call.ProviderCallID)

	s.ActiveCallIDs = removeID(s.ActiveCallIDs, callID)

	e.publishLocked(ctx, Event{Type: EventCallCompleted, SessionID: s.ID, Call: e.callViewPtrLocked(ctx, call)})

	if outcome == telephony.OutcomeConnected && s.WinnerCallID == "" {
		// Winner found: cancel all siblings, stop the session, never refill.
		s.WinnerCallID = call.ID
		s.Metrics.Connected++

		active := make([]string, len(s.ActiveCallIDs))
		copy(active, s.ActiveCallIDs)
		for _, siblingID := range active {
			e.cancelCallLocked(ctx, s, siblingID)
		}

		e.scheduleSyncLocked(ctx, s, call)
		e.finishLocked(ctx, s, EventWinnerFound)
		return
	}

	switch {
	case outcome == telephony.OutcomeCanceled:
		s.Metrics.Canceled++
	case outcome != telephony.OutcomeConnected:
		s.Metrics.Failed++
	default:
		// CONNECTED while a winner already exists: two near-simultaneous
		// completions raced. First writer wins; the later connect still
		// counts toward the connected metric.
		s.Metrics.Connected++
	}

	e.scheduleSyncLocked(ctx, s, call)
	e.publishSessionUpdateLocked(ctx, s)
	e.fillSlotsLocked(ctx, s)
}

// cancelCallLocked force-cancels an active call. Idempotent: a call that
// already completed is left untouched. The pending provider resource is
// released before the call is marked terminal so a stale resolution can never
// mutate it afterwards.
func (e *Engine) cancelCallLocked(ctx context.Context, s *Session, callID string) {
	call, ok := e.store.call(callID)
	if !ok || call.Status == CallStatusCompleted {
		return
	}

	if providerCallID, pending := e.pending[callID]; pending {
		delete(e.pending, callID)
		e.provider.Cancel(providerCallID)
	}

	now := e.clock().UTC()
	call.Status = CallStatusCompleted
	call.Outcome = telephony.OutcomeCanceled
	call.EndedAt = &now

	s.ActiveCallIDs = removeID(s.ActiveCallIDs, callID)
	s.Metrics.Canceled++

	e.scheduleSyncLocked(ctx, s, call)
}

// finishLocked marks the session STOPPED, emits the terminal event and
// schedules the best-effort mirror write.
func (e *Engine) finishLocked(ctx context.Context, s *Session, terminal EventType) {
	if s.Status == SessionStatusStopped {
		return
	}
	s.Status = SessionStatusStopped

	var call *CallView
	if terminal == EventWinnerFound && s.WinnerCallID != "" {
		if winner, ok := e.store.call(s.WinnerCallID); ok {
			call = e.callViewPtrLocked(ctx, winner)
		}
	}
	e.publishLocked(ctx, Event{Type: terminal, SessionID: s.ID, Call: call})
	e.publishSessionUpdateLocked(ctx, s)

	if ch, ok := e.done[s.ID]; ok {
		close(ch)
		delete(e.done, s.ID)
	}

	if e.mirror != nil {
		wg := e.syncs[s.ID]
		sessionID := s.ID
		go func() {
			if wg != nil {
				wg.Wait()
			}
			state, err := e.SessionState(context.Background(), sessionID)
			if err != nil {
				return
			}
			if err := e.mirror.SaveSession(context.Background(), state); err != nil {
				e.log.Warn("session mirror failed", "session_id", sessionID, "err", err)
			}
		}()
	}
}

/* ===================== CRM SYNC ===================== */

// scheduleSyncLocked runs the CRM sync for a completed call asynchronously.
// The call's sync status moves NONE -> PENDING -> SYNCED/FAILED; each
// transition publishes a session update. Failures touch only this field.
func (e *Engine) scheduleSyncLocked(ctx context.Context, s *Session, call *Call) {
	if e.syncer == nil {
		return
	}

	call.CRMSyncStatus = SyncStatusPending
	e.publishSessionUpdateLocked(ctx, s)

	snapshot := *call
	wg := e.syncs[s.ID]
	if wg != nil {
		wg.Add(1)
	}

	go func() {
		if wg != nil {
			defer wg.Done()
		}
		activityID, err := e.syncer.SyncCall(context.Background(), snapshot)

		e.mu.Lock()
		defer e.mu.Unlock()

		current, ok := e.store.call(snapshot.ID)
		if !ok {
			return
		}
		if err != nil {
			current.CRMSyncStatus = SyncStatusFailed
			e.log.Warn("crm sync failed", "call_id", snapshot.ID, "err", err)
		} else {
			current.CRMSyncStatus = SyncStatusSynced
			current.CRMActivityID = activityID
		}
		if sess, ok := e.store.session(snapshot.SessionID); ok {
			e.publishSessionUpdateLocked(context.Background(), sess)
		}
	}()
}

// waitForSyncs blocks until the session's in-flight CRM syncs finish or the
// timeout elapses.
func (e *Engine) waitForSyncs(sessionID string, timeout time.Duration) {
	e.mu.Lock()
	wg := e.syncs[sessionID]
	e.mu.Unlock()
	if wg == nil {
		return
	}

	settled := make(chan struct{})
	go func() {
		wg.Wait()
		close(settled)
	}()
	select {
	case <-settled:
	case <-time.After(timeout):
	}
}

/* ===================== SNAPSHOTS & EVENTS ===================== */

func (e *Engine) sessionStateLocked(ctx context.Context, s *Session) SessionState {
	state := SessionState{Session: snapshotSession(s)}
	for _, callID := range s.CallIDs {
		if call, ok := e.store.call(callID); ok {
			state.Calls = append(state.Calls, e.callViewLocked(ctx, call))
		}
	}
	return state
}

func (e *Engine) callViewLocked(ctx context.Context, call *Call) CallView {
	view := CallView{
		Call:        *call,
		LeadName:    "Unknown",
		LeadPhone:   "Unknown",
		LeadCompany: "Unknown",
	}
	if lead, err := e.leads.Get(ctx, call.LeadID); err == nil {
		view.LeadName = lead.Name
		view.LeadPhone = lead.PhoneNumber
		view.LeadCompany = lead.Company
	}
	return view
}

func (e *Engine) callViewPtrLocked(ctx context.Context, call *Call) *CallView {
	view := e.callViewLocked(ctx, call)
	return &view
}

func (e *Engine) publishSessionUpdateLocked(ctx context.Context, s *Session) {
	state := e.sessionStateLocked(ctx, s)
	e.publishLocked(ctx, Event{Type: EventSessionUpdate, SessionID: s.ID, State: &state})
}

func (e *Engine) publishLocked(_ context.Context, ev Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) sortQueueByPriority(ctx context.Context, queue []string) {
	scores := make(map[string]int, len(queue))
	for _, id := range queue {
		if lead, err := e.leads.Get(ctx, id); err == nil {
			scores[id] = lead.PriorityScore
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return scores[queue[i]] > scores[queue[j]]
	})
}

func snapshotSession(s *Session) Session {
	out := *s
	out.LeadQueue = append([]string(nil), s.LeadQueue...)
	out.ActiveCallIDs = append([]string(nil), s.ActiveCallIDs...)
	out.CallIDs = append([]string(nil), s.CallIDs...)
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
