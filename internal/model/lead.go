package model

import "time"

// Lead is a prospect captured by a marketing form.
type Lead struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Interest  string    `json:"interest,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
