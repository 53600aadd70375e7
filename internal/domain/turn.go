package domain

import "time"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Turn is one rendered entry of the conversation.
type Turn struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	// Formatted turns render as a single preformatted block.
	Formatted bool `json:"formatted"`
}
