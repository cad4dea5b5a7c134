package model

import "time"

// Delivery is one persisted webhook attempt. StatusCode is nil when no HTTP
// response was received.
type Delivery struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Source          string    `json:"source"`
	Destination     string    `json:"destination"`
	Success         bool      `json:"success"`
	StatusCode      *int      `json:"status_code,omitempty"`
	ResponseExcerpt string    `json:"response_text,omitempty"`
	Error           string    `json:"error,omitempty"`
	PayloadSize     int       `json:"payload_size"`
	CreatedAt       time.Time `json:"created_at"`
}
