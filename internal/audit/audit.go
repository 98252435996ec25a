package audit

import (
	"time"

	"github.com/karimsalem/askbridge/internal/registry"
)

// Entry records one orchestration cycle: what was asked, where it was
// routed, which systems answered, which failed, and how long it took.
// Observability only; failures recorded here are never surfaced to users.
type Entry struct {
	ID            string              `json:"id"`
	SessionID     string              `json:"session_id,omitempty"`
	Query         string              `json:"query"`
	Routed        []registry.SystemID `json:"routed"`
	SystemsUsed   []registry.SystemID `json:"systems_used"`
	SystemsFailed []registry.SystemID `json:"systems_failed"`
	Forced        bool                `json:"forced"`
	Degraded      bool                `json:"degraded"`
	Duration      time.Duration       `json:"duration_ms"`
	CreatedAt     time.Time           `json:"created_at"`
}
