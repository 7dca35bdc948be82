package models

import "time"

const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	History   []Turn         `json:"history"`
	State     map[string]any `json:"state,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SessionInfo is the metadata-only view returned by listing, without the
// turn history.
type SessionInfo struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
