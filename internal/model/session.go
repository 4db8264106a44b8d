package model

import "time"

// SessionRecord is the stored trace of a form session. The token itself is
// never stored, only its hash.
type SessionRecord struct {
	ID        string     `json:"id"`
	TokenHash string     `json:"-"`
	Month     Period     `json:"month"`
	ExpiresAt time.Time  `json:"expires_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Calculation is one request/response exchange with the simulator.
type Calculation struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Month      Period    `json:"month"`
	Status     int       `json:"status"`
	Error      string    `json:"error,omitempty"`
	Request    string    `json:"request"`
	Response   string    `json:"response"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
