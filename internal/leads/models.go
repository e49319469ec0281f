package leads

import "time"

// Lead is a dialing prospect.
//
// CRMExternalID is write-once: it is assigned by the CRM contact upsert the
// first time the lead is synced and never overwritten afterwards.
type Lead struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	JobTitle    string `json:"job_title"`
	PhoneNumber string `json:"phone_number"`
	Company     string `json:"company"`
	Email       string `json:"email"`
	Headcount   string `json:"headcount"`
	Industry    string `json:"industry"`

	Enriched   bool        `json:"enriched"`
	Enrichment *Enrichment `json:"enrichment_data,omitempty"`

	CRMExternalID string `json:"crm_external_id,omitempty"`

	// PriorityScore orders leads in the dial queue (highest first).
	// Un-enriched leads score 0.
	PriorityScore int `json:"priority_score"`

	CreatedAt time.Time `json:"created_at"`
}

// Enrichment is the mock third-party enrichment payload.
type Enrichment struct {
	LinkedInURL         string   `json:"linkedin_url"`
	CompanySizeVerified bool     `json:"company_size_verified"`
	CompanyRevenue      string   `json:"company_revenue"`
	TechnologiesUsed    []string `json:"technologies_used"`
	RecentFunding       string   `json:"recent_funding"`
	DecisionMakerScore  int      `json:"decision_maker_score"`
}

// Industries and Headcounts are the accepted filter values, surfaced to
// clients via the filter-options endpoint.
var Industries = []string{
	"Technology",
	"Construction",
	"Logistics",
	"Healthcare",
	"Finance",
	"Manufacturing",
}

var Headcounts = []string{"1-10", "11-50", "51-200", "201-500", "500+"}
