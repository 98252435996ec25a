package orchestrator

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karimsalem/askbridge/internal/registry"
)

// RegisterRoutes mounts the query API routes.
func RegisterRoutes(r chi.Router, o *Orchestrator) {
	r.Post("/api/query", handleQuery(o))
	r.Get("/api/mcps", handleListSystems(o))
	r.Get("/api/health", handleHealth(o))
}

func handleQuery(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		resp, err := o.Execute(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrUnknownSystem):
				http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			default:
				// Total failure: nothing was consulted and even the
				// conversational fallback could not produce an answer.
				log.Printf("query: %v", err)
				http.Error(w, `{"error":"could not process query"}`, http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

type systemInfo struct {
	ID          registry.SystemID `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
}

func handleListSystems(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		descriptors := o.Registry().List()
		infos := make([]systemInfo, len(descriptors))
		for i, d := range descriptors {
			infos[i] = systemInfo{ID: d.ID, Name: d.Name, Description: d.Description}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]systemInfo{"mcps": infos})
	}
}

func handleHealth(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Liveness only: backend reachability is deliberately not probed.
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"systems": o.Registry().Len(),
		})
	}
}
