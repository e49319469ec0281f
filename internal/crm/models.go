package crm

import "time"

// Contact is the external-CRM contact record mirrored for a lead.
// At most one contact exists per lead; its ID is what gets written back to
// the lead's CRMExternalID.
type Contact struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is one logged call against a CRM contact.
// Exactly one activity exists per engine call id.
type Activity struct {
	ID           string    `json:"id"`
	CallID       string    `json:"call_id"`
	ContactID    string    `json:"contact_id"`
	LeadID       string    `json:"lead_id"`
	Type         string    `json:"type"`
	Disposition  string    `json:"disposition"`
	Notes        string    `json:"notes,omitempty"`
	RecordingURL string    `json:"recording_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
