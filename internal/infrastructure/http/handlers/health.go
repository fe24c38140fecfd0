package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fasttag/tag-position-api/internal/core/ports"
)

const readinessTimeout = 3 * time.Second

// HealthHandler handles GET /health — liveness probe.
// Returns 200 immediately; confirms the process is alive.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Liveness
//
// @Summary  Liveness probe
// @Tags     health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// VendorStatuser reports per-vendor availability.
type VendorStatuser interface {
	Vendors() []ports.VendorStatus
}

// ReadinessHandler handles GET /health/ready. The service is ready when at
// least one vendor is available and the audit store, if configured, answers
// a ping.
type ReadinessHandler struct {
	vendors VendorStatuser
	mongo   Pinger
}

// NewReadinessHandler creates a ReadinessHandler. mongo may be nil when the
// audit trail is disabled.
func NewReadinessHandler(vendors VendorStatuser, mongo Pinger) *ReadinessHandler {
	return &ReadinessHandler{vendors: vendors, mongo: mongo}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Vendors      map[string]dependencyStatus `json:"vendors"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Readiness
//
// @Summary  Readiness probe with vendor availability and MongoDB health
// @Tags     health
// @Produce  json
// @Success  200  {object}  readinessResponse
// @Failure  503  {object}  readinessResponse
// @Router   /health/ready [get]
func (h *ReadinessHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	vendors := make(map[string]dependencyStatus)
	available := 0
	for _, st := range h.vendors.Vendors() {
		if st.Available {
			available++
			vendors[st.Vendor] = dependencyStatus{Status: "ok"}
			continue
		}
		vendors[st.Vendor] = dependencyStatus{Status: "disabled", Error: st.Reason}
	}
	healthy := available > 0

	deps := make(map[string]dependencyStatus)
	switch {
	case h.mongo == nil:
		deps["mongodb"] = dependencyStatus{Status: "disabled"}
	default:
		if err := h.mongo.Ping(ctx); err != nil {
			deps["mongodb"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
		} else {
			deps["mongodb"] = dependencyStatus{Status: "ok"}
		}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Vendors:      vendors,
		Dependencies: deps,
	})
}
