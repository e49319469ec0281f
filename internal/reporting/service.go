package reporting

import (
	"context"
	"errors"

	"dialer-platform/internal/dialer"
	"dialer-platform/internal/telephony"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// SessionSource abstracts where session snapshots come from. In-process this
// is the dial engine; tests use the memory repo.
type SessionSource interface {
	ListSessionStates(ctx context.Context, agentID string) ([]dialer.SessionState, error)
}

type Service struct {
	source SessionSource
}

func NewService(source SessionSource) *Service { return &Service{source: source} }

// OutcomeSummary aggregates an agent's dial activity over a time range.
// Sessions are bucketed by creation time: From inclusive, To exclusive.
func (s *Service) OutcomeSummary(ctx context.Context, req OutcomeSummaryRequest) (OutcomeSummary, error) {
	if req.AgentID == "" {
		return OutcomeSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return OutcomeSummary{}, ErrInvalidRequest
	}
	if s.source == nil {
		return OutcomeSummary{}, errors.New("reporting: session source not configured")
	}

	states, err := s.source.ListSessionStates(ctx, req.AgentID)
	if err != nil {
		return OutcomeSummary{}, err
	}

	out := OutcomeSummary{AgentID: req.AgentID}
	var ringTotal int64
	var ringSamples int64

	for _, state := range states {
		if state.CreatedAt.Before(req.Range.From) || !state.CreatedAt.Before(req.Range.To) {
			continue
		}
		out.Sessions++
		if state.WinnerCallID != "" {
			out.SessionsWithWinner++
		}

		for _, c := range state.Calls {
			out.TotalCalls++
			switch c.Outcome {
			case telephony.OutcomeConnected:
				out.ConnectedCalls++
			case telephony.OutcomeNoAnswer:
				out.NoAnswerCalls++
			case telephony.OutcomeBusy:
				out.BusyCalls++
			case telephony.OutcomeVoicemail:
				out.VoicemailCalls++
			case telephony.OutcomeCanceled:
				out.CanceledCalls++
			}

			switch c.CRMSyncStatus {
			case dialer.SyncStatusSynced:
				out.SyncedActivities++
			case dialer.SyncStatusFailed:
				out.FailedSyncs++
			}

			if c.EndedAt != nil {
				ringTotal += c.EndedAt.Sub(c.StartedAt).Milliseconds()
				ringSamples++
			}
		}
	}

	if out.TotalCalls > 0 {
		out.ConnectRate = float64(out.ConnectedCalls) / float64(out.TotalCalls)
	}
	if out.Sessions > 0 {
		out.WinRate = float64(out.SessionsWithWinner) / float64(out.Sessions)
	}
	if ringSamples > 0 {
		out.AverageRingMillis = ringTotal / ringSamples
	}
	return out, nil
}
