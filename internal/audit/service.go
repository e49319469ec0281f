package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to agents by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ActorUserID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogSessionCreated records the start of a parallel-dial session.
func (s *Service) LogSessionCreated(ctx context.Context, actorUserID, actorRole, ip, sessionID string, metadata string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeSessionCreated,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		SessionID:   sessionID,
		Message:     "session created",
		Metadata:    metadata,
	})
}

// LogSessionStopped records a manual session stop.
func (s *Service) LogSessionStopped(ctx context.Context, actorUserID, actorRole, ip, sessionID string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeSessionStopped,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		SessionID:   sessionID,
		Message:     "session stopped",
	})
}

// LogLeadEnriched records an enrichment run against a lead.
func (s *Service) LogLeadEnriched(ctx context.Context, actorUserID, actorRole, ip, leadID string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeLeadEnriched,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		LeadID:      leadID,
		Message:     "lead enriched",
	})
}
