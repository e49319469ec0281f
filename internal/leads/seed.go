package leads

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Seed loads demo leads into the repository for local development.
func Seed(ctx context.Context, repo Repository) error {
	demo := []CreateRequest{
		{Name: "John Doe", JobTitle: "CEO", PhoneNumber: "+62812345678", Company: "Tech Startup", Email: "john@techstartup.com", Headcount: "11-50", Industry: "Technology"},
		{Name: "Jane Smith", JobTitle: "Marketing Director", PhoneNumber: "+62887654321", Company: "Construction Co", Email: "jane@constructco.com", Headcount: "51-200", Industry: "Construction"},
		{Name: "Bob Wilson", JobTitle: "CTO", PhoneNumber: "+62811112222", Company: "Logistics Plus", Email: "bob@logisticsplus.com", Headcount: "201-500", Industry: "Logistics"},
		{Name: "Alice Chen", JobTitle: "VP of Sales", PhoneNumber: "+62813456789", Company: "HealthFirst", Email: "alice@healthfirst.com", Headcount: "51-200", Industry: "Healthcare"},
		{Name: "David Park", JobTitle: "CFO", PhoneNumber: "+62814567890", Company: "FinanceHub", Email: "david@financehub.com", Headcount: "500+", Industry: "Finance"},
		{Name: "Maria Garcia", JobTitle: "Operations Manager", PhoneNumber: "+62815678901", Company: "BuildRight Manufacturing", Email: "maria@buildright.com", Headcount: "201-500", Industry: "Manufacturing"},
	}

	now := time.Now().UTC()
	for i, req := range demo {
		l := Lead{
			ID:          uuid.NewString(),
			Name:        req.Name,
			JobTitle:    req.JobTitle,
			PhoneNumber: req.PhoneNumber,
			Company:     req.Company,
			Email:       req.Email,
			Headcount:   req.Headcount,
			Industry:    req.Industry,
			// Stagger creation times so list ordering is stable.
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
		if err := repo.Create(ctx, l); err != nil {
			return err
		}
	}
	return nil
}
