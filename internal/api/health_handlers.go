package api

import (
	"net/http"
	"time"

	"github.com/pagekeep/pagekeep-server/internal/errors"
	"github.com/pagekeep/pagekeep-server/internal/http/response"
)

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse contains health check data.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

// handleHealthCheck reports server health with component checks.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]ComponentHealth)
	overall := "healthy"

	db := s.checkDatabase(r)
	components["database"] = db
	if db.Status != "healthy" {
		overall = "unhealthy"
	}

	response.Success(w, HealthResponse{
		Status:     overall,
		Components: components,
	}, s.logger)
}

// checkDatabase verifies the position store is accessible.
func (s *Server) checkDatabase(r *http.Request) ComponentHealth {
	if s.readerService == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "reader service not configured",
		}
	}

	start := time.Now()

	// Quick read to verify the store responds. Not-found is fine - the
	// probe key is never written.
	_, err := s.readerService.Position(r.Context(), "health-probe")
	latency := time.Since(start)

	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "database read failed",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}
