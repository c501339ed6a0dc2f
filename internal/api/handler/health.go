package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler handles GET /health — liveness probe.
// Returns 200 immediately; confirms the process is alive.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Check is a named dependency probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
	// Required checks decide readiness; the others are reported only.
	// The agent stays ready without its backend.
	Required bool
}

// ReadinessHandler handles GET /health/ready — readiness probe.
type ReadinessHandler struct {
	checks []Check
}

func NewReadinessHandler(checks ...Check) *ReadinessHandler {
	return &ReadinessHandler{checks: checks}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Offline      bool                        `json:"offline"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Readiness pings every dependency.
//
// @Summary      Readiness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  readinessResponse
// @Failure      503  {object}  readinessResponse
// @Router       /health/ready [get]
func (h *ReadinessHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus, len(h.checks))
	healthy, offline := true, false

	for _, chk := range h.checks {
		if err := chk.Ping(ctx); err != nil {
			deps[chk.Name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			if chk.Required {
				healthy = false
			} else {
				offline = true
			}
			continue
		}
		deps[chk.Name] = dependencyStatus{Status: "ok"}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Offline:      offline,
		Dependencies: deps,
	})
}
