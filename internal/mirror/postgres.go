package mirror

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"dialer-platform/internal/dialer"
	"dialer-platform/pkg/utils"
)

// NOTE: This mirror assumes the following tables exist:
// - dial_sessions
// - dial_calls
//
// Both are upserted by primary key so replaying a snapshot is harmless.
// The in-memory engine stays the source of truth; this copy exists for
// offline reporting and survives restarts, nothing more.

// Postgres persists finished session snapshots.
type Postgres struct {
	db  *sql.DB
	log *slog.Logger
}

func NewPostgres(db *sql.DB, log *slog.Logger) *Postgres {
	return &Postgres{db: db, log: log}
}

// SaveSession writes the session and all its calls in one transaction.
func (m *Postgres) SaveSession(ctx context.Context, state dialer.SessionState) error {
	return utils.WithTx(ctx, m.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := upsertSession(ctx, tx, state); err != nil {
			return err
		}
		for _, c := range state.Calls {
			if err := upsertCall(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertSession(ctx context.Context, tx *sql.Tx, state dialer.SessionState) error {
	const q = `
INSERT INTO dial_sessions (
  id, agent_id, concurrency, status, winner_call_id,
  attempted, connected, failed, canceled, created_at, mirrored_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
ON CONFLICT (id)
DO UPDATE SET status = EXCLUDED.status,
              winner_call_id = EXCLUDED.winner_call_id,
              attempted = EXCLUDED.attempted,
              connected = EXCLUDED.connected,
              failed = EXCLUDED.failed,
              canceled = EXCLUDED.canceled,
              mirrored_at = EXCLUDED.mirrored_at
`
	_, err := tx.ExecContext(ctx, q,
		state.ID,
		state.AgentID,
		state.Concurrency,
		string(state.Status),
		nullable(state.WinnerCallID),
		state.Metrics.Attempted,
		state.Metrics.Connected,
		state.Metrics.Failed,
		state.Metrics.Canceled,
		state.CreatedAt,
		time.Now().UTC(),
	)
	return err
}

func upsertCall(ctx context.Context, tx *sql.Tx, c dialer.CallView) error {
	const q = `
INSERT INTO dial_calls (
  id, session_id, lead_id, status, outcome, started_at, ended_at,
  provider_call_id, recording_url, crm_activity_id, crm_sync_status
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
ON CONFLICT (id)
DO UPDATE SET status = EXCLUDED.status,
              outcome = EXCLUDED.outcome,
              ended_at = EXCLUDED.ended_at,
              recording_url = EXCLUDED.recording_url,
              crm_activity_id = EXCLUDED.crm_activity_id,
              crm_sync_status = EXCLUDED.crm_sync_status
`
	_, err := tx.ExecContext(ctx, q,
		c.ID,
		c.SessionID,
		c.LeadID,
		string(c.Status),
		string(c.Outcome),
		c.StartedAt,
		c.EndedAt,
		c.ProviderCallID,
		nullable(c.RecordingURL),
		nullable(c.CRMActivityID),
		string(c.CRMSyncStatus),
	)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
