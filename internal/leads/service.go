package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for leads.
type Repository interface {
	Create(ctx context.Context, l Lead) error
	Get(ctx context.Context, id string) (Lead, error)
	Update(ctx context.Context, l Lead) error
	List(ctx context.Context, f Filter) ([]Lead, error)
	SetCRMExternalID(ctx context.Context, id, crmID string) error
}

type Filter struct {
	Industry  string
	Headcount string
}

var (
	ErrNotFound        = errors.New("leads: not found")
	ErrInvalidArgument = errors.New("leads: invalid argument")
)

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type CreateRequest struct {
	Name        string `json:"name"`
	JobTitle    string `json:"job_title"`
	PhoneNumber string `json:"phone_number"`
	Company     string `json:"company"`
	Email       string `json:"email"`
	Headcount   string `json:"headcount"`
	Industry    string `json:"industry"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Lead, error) {
	if req.Name == "" || req.JobTitle == "" || req.PhoneNumber == "" ||
		req.Company == "" || req.Email == "" || req.Headcount == "" || req.Industry == "" {
		return Lead{}, ErrInvalidArgument
	}

	l := Lead{
		ID:          uuid.NewString(),
		Name:        req.Name,
		JobTitle:    req.JobTitle,
		PhoneNumber: req.PhoneNumber,
		Company:     req.Company,
		Email:       req.Email,
		Headcount:   req.Headcount,
		Industry:    req.Industry,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return Lead{}, err
	}
	return l, nil
}

func (s *Service) Get(ctx context.Context, id string) (Lead, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Lead, error) {
	return s.repo.List(ctx, f)
}

// Enrich attaches the mock enrichment payload and rescores the lead.
func (s *Service) Enrich(ctx context.Context, id string) (Lead, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return Lead{}, err
	}

	l.Enriched = true
	l.Enrichment = &Enrichment{
		LinkedInURL:         fmt.Sprintf("https://linkedin.com/in/%s", strings.ReplaceAll(strings.ToLower(l.Name), " ", "-")),
		CompanySizeVerified: true,
		CompanyRevenue:      "$1M - $10M",
		TechnologiesUsed:    []string{"Python", "React", "AWS"},
		RecentFunding:       "Series A - $5M",
		DecisionMakerScore:  85,
	}
	l.PriorityScore = PriorityScore(l)

	if err := s.repo.Update(ctx, l); err != nil {
		return Lead{}, err
	}
	return l, nil
}

// Rescore recalculates the priority score from current lead attributes.
func (s *Service) Rescore(ctx context.Context, id string) (Lead, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return Lead{}, err
	}

	l.PriorityScore = PriorityScore(l)
	if err := s.repo.Update(ctx, l); err != nil {
		return Lead{}, err
	}
	return l, nil
}
