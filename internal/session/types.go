package session

import (
	"time"

	"github.com/karimsalem/askbridge/internal/registry"
)

// Session groups the turns of one conversation. Sessions are created
// lazily on first turn and only ever appended to.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Turn is one message in a conversation: either the user's query or the
// assistant's answer, with the systems that produced it. The JSON field
// names match the wire format the chat frontend already speaks.
type Turn struct {
	ID          string              `json:"-"`
	SessionID   string              `json:"-"`
	Text        string              `json:"text"`
	IsUser      bool                `json:"is_user"`
	Timestamp   time.Time           `json:"timestamp"`
	SystemsUsed []registry.SystemID `json:"mcps_used,omitempty"`
}
