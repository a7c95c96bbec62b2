// health.go - Component health endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ComponentHealth reports the status of one dependency.
type ComponentHealth struct {
	Status  string `json:"status"` // "up" or "down"
	Message string `json:"message,omitempty"`
}

// Health is the /health response body.
type Health struct {
	Status     string                     `json:"status"` // "healthy" or "unhealthy"
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	health := Health{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Version:    s.cfg.Build.Version,
		Components: make(map[string]ComponentHealth),
	}

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			health.Components["database"] = ComponentHealth{Status: "down", Message: err.Error()}
			health.Status = "unhealthy"
		} else {
			health.Components["database"] = ComponentHealth{Status: "up"}
		}
	}

	if err := s.store.Ping(ctx); err != nil {
		health.Components["storage"] = ComponentHealth{Status: "down", Message: err.Error()}
		health.Status = "unhealthy"
	} else {
		health.Components["storage"] = ComponentHealth{Status: "up"}
	}

	code := http.StatusOK
	if health.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(health)
}
