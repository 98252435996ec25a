package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/karimsalem/askbridge/internal/audit"
	"github.com/karimsalem/askbridge/internal/orchestrator"
	"github.com/karimsalem/askbridge/internal/session"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server is the askbridge HTTP service: the query API, the websocket chat
// channel and the audit endpoints.
type Server struct {
	cfg        Config
	orch       *orchestrator.Orchestrator
	sessions   *session.Store
	auditStore *audit.Store
	renderer   *Renderer
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server wired to the given orchestrator.
func New(cfg Config, orch *orchestrator.Orchestrator, sessions *session.Store, auditStore *audit.Store) *Server {
	s := &Server{
		cfg:        cfg,
		orch:       orch,
		sessions:   sessions,
		auditStore: auditStore,
		renderer:   NewRenderer(),
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	orchestrator.RegisterRoutes(r, s.orch)
	if s.auditStore != nil {
		audit.RegisterRoutes(r, s.auditStore)
	}

	r.Get("/ws/chat", s.handleWebSocket)
	r.Post("/api/render", s.handleRender)
	if s.sessions != nil {
		r.Get("/api/sessions/{sessionID}/history", s.handleSessionHistory)
	}

	return r
}

// handleSessionHistory returns the stored turn log for a session, most
// recent last.
func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	turns, err := s.sessions.Window(r.Context(), sessionID, limit)
	if err != nil {
		log.Printf("server: session history: %v", err)
		http.Error(w, `{"error":"could not load history"}`, http.StatusInternalServerError)
		return
	}
	if turns == nil {
		turns = []session.Turn{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"session_id": sessionID,
		"turns":      turns,
	})
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("askbridge listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
