package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/karimsalem/askbridge/internal/orchestrator"
	"github.com/karimsalem/askbridge/internal/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type         string   `json:"type"`       // "query"
	SessionID    string   `json:"session_id"` // empty for new sessions
	Query        string   `json:"query"`
	SelectedMCPs []string `json:"selected_mcps,omitempty"`
}

// chatResponse is the outgoing WebSocket message format. HTML carries
// the synthesis rendered as markdown for chat clients that display rich
// text.
type chatResponse struct {
	Type          string                       `json:"type"` // "response" or "error"
	SessionID     string                       `json:"session_id"`
	Synthesis     string                       `json:"synthesis,omitempty"`
	HTML          string                       `json:"html,omitempty"`
	MCPsUsed      []registry.SystemID          `json:"mcps_used,omitempty"`
	SuggestedMCPs []registry.SystemID          `json:"suggested_mcps,omitempty"`
	Responses     map[registry.SystemID]string `json:"responses,omitempty"`
	Degraded      bool                         `json:"degraded,omitempty"`
	Error         string                       `json:"error,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, "", "invalid message format")
			continue
		}

		if req.Query == "" {
			s.sendError(conn, req.SessionID, "query is required")
			continue
		}

		switch req.Type {
		case "query", "":
			s.handleChatQuery(conn, r, req)
		default:
			s.sendError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) handleChatQuery(conn *websocket.Conn, r *http.Request, req chatRequest) {
	ctx := r.Context()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	result, err := s.orch.Execute(ctx, orchestrator.Request{
		Query:        req.Query,
		SessionID:    sessionID,
		SelectedMCPs: req.SelectedMCPs,
	})
	if err != nil {
		s.sendError(conn, sessionID, "query failed: "+err.Error())
		return
	}

	html, err := s.renderer.Render(result.Synthesis)
	if err != nil {
		log.Printf("server: rendering synthesis: %v", err)
		html = ""
	}

	s.sendResponse(conn, chatResponse{
		Type:          "response",
		SessionID:     sessionID,
		Synthesis:     result.Synthesis,
		HTML:          html,
		MCPsUsed:      result.MCPsUsed,
		SuggestedMCPs: result.SuggestedMCPs,
		Responses:     result.Responses,
		Degraded:      result.Degraded,
	})
}

func (s *Server) sendResponse(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendError(conn *websocket.Conn, sessionID, message string) {
	resp := chatResponse{
		Type:      "error",
		SessionID: sessionID,
		Error:     message,
	}
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write error: %v", err)
	}
}
