package agents

import "time"

// User is an agent account.
//
// PasswordHash is a bcrypt hash; it must never be serialized into API
// responses (no json tag leakage).
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
