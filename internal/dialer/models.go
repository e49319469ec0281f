package dialer

import (
	"time"

	"dialer-platform/internal/telephony"
)

// CallStatus is the lifecycle state of a single dial attempt.
// A call transitions RINGING -> COMPLETED exactly once; after completion only
// the CRM sync fields may change.
type CallStatus string

const (
	CallStatusRinging   CallStatus = "RINGING"
	CallStatusCompleted CallStatus = "COMPLETED"
)

// SyncStatus tracks the CRM mirror state of a completed call.
type SyncStatus string

const (
	SyncStatusNone    SyncStatus = "NONE"
	SyncStatusPending SyncStatus = "PENDING"
	SyncStatusSynced  SyncStatus = "SYNCED"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// Call is one dialed attempt against a single lead within a session.
type Call struct {
	ID        string `json:"id"`
	LeadID    string `json:"lead_id"`
	SessionID string `json:"session_id"`

	Status  CallStatus        `json:"status"`
	Outcome telephony.Outcome `json:"call_status,omitempty"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	ProviderCallID string `json:"provider_call_id"`
	RecordingURL   string `json:"recording_url,omitempty"`

	CRMActivityID string     `json:"crm_activity_id,omitempty"`
	CRMSyncStatus SyncStatus `json:"crm_activity_status"`
}

type SessionStatus string

const (
	SessionStatusRunning SessionStatus = "RUNNING"
	SessionStatusStopped SessionStatus = "STOPPED"
)

// Metrics are monotonic per-session counters; they are only ever incremented.
// At STOPPED: Attempted == Connected + Failed + Canceled.
type Metrics struct {
	Attempted int `json:"attempted"`
	Connected int `json:"connected"`
	Failed    int `json:"failed"`
	Canceled  int `json:"canceled"`
}

// Session is one agent-initiated parallel-dial run over a set of leads.
type Session struct {
	ID      string `json:"id"`
	AgentID string `json:"agent_id"`

	// LeadQueue is priority-ordered (highest score first) and only shrinks;
	// a lead is dequeued at most once per session.
	LeadQueue []string `json:"lead_queue"`

	Concurrency   int      `json:"concurrency"`
	ActiveCallIDs []string `json:"active_call_ids"`
	CallIDs       []string `json:"call_ids"`

	WinnerCallID string        `json:"winner_call_id,omitempty"`
	Status       SessionStatus `json:"status"`
	Metrics      Metrics       `json:"metrics"`

	CreatedAt time.Time `json:"created_at"`
}

// CallView is a call enriched with lead display fields for API responses.
type CallView struct {
	Call

	LeadName    string `json:"lead_name"`
	LeadPhone   string `json:"lead_phone"`
	LeadCompany string `json:"lead_company"`
}

// SessionState is a point-in-time snapshot of a session and its calls.
type SessionState struct {
	Session

	Calls []CallView `json:"calls"`
}

// EventType enumerates the closed set of engine events.
type EventType string

const (
	EventCallStarted    EventType = "CALL_STARTED"
	EventCallCompleted  EventType = "CALL_COMPLETED"
	EventWinnerFound    EventType = "WINNER_FOUND"
	EventSessionStopped EventType = "SESSION_STOPPED"
	EventSessionUpdate  EventType = "SESSION_UPDATE"
)

// Event is a tagged engine event. Every event carries the session id; Call is
// set for call-scoped variants and State for session-update snapshots.
type Event struct {
	Type      EventType     `json:"type"`
	SessionID string        `json:"session_id"`
	Call      *CallView     `json:"call,omitempty"`
	State     *SessionState `json:"state,omitempty"`
}
