package orchestrator

import (
	"github.com/karimsalem/askbridge/internal/registry"
	"github.com/karimsalem/askbridge/internal/session"
)

// Request is one user query with optional routing override and context.
// Omitting conversation_history means "use the server-side session log";
// supplying it wins over the stored log. selected_mcps, when present,
// bypasses the router and forces exactly that system set.
type Request struct {
	Query               string         `json:"query"`
	SessionID           string         `json:"session_id,omitempty"`
	SelectedMCPs        []string       `json:"selected_mcps,omitempty"`
	ConversationHistory []session.Turn `json:"conversation_history,omitempty"`
}

// Response is the sole externally visible output of one orchestration
// cycle.
type Response struct {
	Query         string                       `json:"query"`
	SessionID     string                       `json:"session_id,omitempty"`
	Synthesis     string                       `json:"synthesis"`
	MCPsUsed      []registry.SystemID          `json:"mcps_used"`
	SuggestedMCPs []registry.SystemID          `json:"suggested_mcps"`
	Responses     map[registry.SystemID]string `json:"responses,omitempty"`
	Degraded      bool                         `json:"degraded,omitempty"`
}
