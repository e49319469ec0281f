package crm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dialer-platform/internal/dialer"
	"dialer-platform/internal/leads"

	"github.com/google/uuid"
)

// LeadDirectory is the slice of the lead store the CRM sync needs: reading
// lead details and writing back the external contact id.
type LeadDirectory interface {
	Get(ctx context.Context, id string) (leads.Lead, error)
	SetCRMExternalID(ctx context.Context, id, crmID string) error
}

// Service mirrors finished calls into the mock external CRM.
// It implements the engine's ActivitySyncer contract: syncing the same call
// twice yields the same activity, and syncing two calls of one lead yields
// one contact.
type Service struct {
	repo    *MemoryRepo
	leadDir LeadDirectory
	log     *slog.Logger
	clock   func() time.Time
}

func NewService(repo *MemoryRepo, leadDir LeadDirectory, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		leadDir: leadDir,
		log:     log,
		clock:   time.Now,
	}
}

// UpsertContact ensures the lead has exactly one CRM contact and returns it.
// The lead's CRMExternalID is assigned on first sync and never rewritten.
func (s *Service) UpsertContact(ctx context.Context, leadID string) (Contact, error) {
	lead, err := s.leadDir.Get(ctx, leadID)
	if err != nil {
		return Contact{}, fmt.Errorf("resolve lead %s: %w", leadID, err)
	}

	if lead.CRMExternalID != "" {
		if existing, err := s.repo.ContactByLead(ctx, leadID); err == nil {
			return existing, nil
		}
	}

	contact, err := s.repo.UpsertContact(ctx, Contact{
		ID:        newContactID(),
		LeadID:    lead.ID,
		Name:      lead.Name,
		Phone:     lead.PhoneNumber,
		Company:   lead.Company,
		Email:     lead.Email,
		CreatedAt: s.clock().UTC(),
	})
	if err != nil {
		return Contact{}, err
	}

	if err := s.leadDir.SetCRMExternalID(ctx, lead.ID, contact.ID); err != nil {
		s.log.Warn("crm external id write-back failed", "lead_id", lead.ID, "err", err)
	}
	return contact, nil
}

// SyncCall logs one call activity against the lead's CRM contact.
// Idempotent per call id: a retried sync returns the original activity id.
func (s *Service) SyncCall(ctx context.Context, call dialer.Call) (string, error) {
	if existing, err := s.repo.ActivityByCall(ctx, call.ID); err == nil {
		return existing.ID, nil
	}

	contact, err := s.UpsertContact(ctx, call.LeadID)
	if err != nil {
		return "", err
	}

	activity, err := s.repo.PutActivity(ctx, Activity{
		ID:           newActivityID(),
		CallID:       call.ID,
		ContactID:    contact.ID,
		LeadID:       call.LeadID,
		Type:         "call",
		Disposition:  DispositionFor(call.Outcome),
		Notes:        activityNotes(call),
		RecordingURL: call.RecordingURL,
		CreatedAt:    s.clock().UTC(),
	})
	if err != nil {
		return "", err
	}

	s.log.Info("crm activity logged",
		"call_id", call.ID,
		"activity_id", activity.ID,
		"disposition", activity.Disposition,
	)
	return activity.ID, nil
}

func (s *Service) Contacts(ctx context.Context) ([]Contact, error) {
	return s.repo.ListContacts(ctx)
}

func (s *Service) Activities(ctx context.Context, leadID string) ([]Activity, error) {
	return s.repo.ListActivities(ctx, leadID)
}

func activityNotes(call dialer.Call) string {
	if call.EndedAt == nil {
		return fmt.Sprintf("Auto-logged by parallel dialer. Outcome: %s.", call.Outcome)
	}
	duration := call.EndedAt.Sub(call.StartedAt).Round(time.Millisecond)
	return fmt.Sprintf("Auto-logged by parallel dialer. Outcome: %s. Ring time: %s.", call.Outcome, duration)
}

func newContactID() string {
	return "CRM-C-" + shortID()
}

func newActivityID() string {
	return "CRM-A-" + shortID()
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
