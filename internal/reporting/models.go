package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// OutcomeSummaryRequest requests aggregated dial metrics for one agent.

type OutcomeSummaryRequest struct {
	AgentID string    `json:"agent_id"`
	Range   TimeRange `json:"range"`
}

type OutcomeSummary struct {
	AgentID string `json:"agent_id"`

	Sessions           int `json:"sessions"`
	SessionsWithWinner int `json:"sessions_with_winner"`

	TotalCalls     int `json:"total_calls"`
	ConnectedCalls int `json:"connected_calls"`
	NoAnswerCalls  int `json:"no_answer_calls"`
	BusyCalls      int `json:"busy_calls"`
	VoicemailCalls int `json:"voicemail_calls"`
	CanceledCalls  int `json:"canceled_calls"`

	SyncedActivities int `json:"synced_activities"`
	FailedSyncs      int `json:"failed_syncs"`

	ConnectRate float64 `json:"connect_rate"`
	WinRate     float64 `json:"win_rate"`

	AverageRingMillis int64 `json:"average_ring_millis"`
}
