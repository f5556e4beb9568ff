package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/meteopoint/meteopoint/internal/api/models"
	"github.com/meteopoint/meteopoint/internal/api/response"
	"github.com/meteopoint/meteopoint/internal/provider/resilience"
)

// ReadinessCheck probes one dependency, such as the database.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version  string
	registry *resilience.Registry
	checks   []ReadinessCheck
	now      func() time.Time
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version string, registry *resilience.Registry, checks ...ReadinessCheck) *OpsHandler {
	return &OpsHandler{
		version:  version,
		registry: registry,
		checks:   checks,
		now:      time.Now,
	}
}

// HealthCheck handles GET /health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(h.now()),
		Details: map[string]string{"version": h.version},
	})
}

// ReadinessCheck handles GET /ready. Any failing check answers 503.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	health := models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(h.now()),
		Details: make(map[string]string, len(subsystems)),
	}
	for _, s := range subsystems {
		health.Details[s.Name] = string(s.Status)
		if s.Status != models.HealthStatusOK {
			health.Status = models.HealthStatusFail
		}
	}

	status := http.StatusOK
	if health.Status != models.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /api/status - subsystem and upstream provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	out := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Version:    h.version,
		Subsystems: h.runChecks(r.Context()),
		Providers:  []models.ProviderStatus{},
	}

	if h.registry != nil {
		for _, up := range h.registry.All() {
			out.Providers = append(out.Providers, providerStatus(up))
		}
	}

	for _, s := range out.Subsystems {
		if s.Status == models.HealthStatusFail {
			out.Status = models.HealthStatusFail
		}
	}
	if out.Status == models.HealthStatusOK {
		for _, p := range out.Providers {
			if p.Status != models.HealthStatusOK {
				out.Status = models.HealthStatusDegraded
				break
			}
		}
	}

	response.JSON(w, r, http.StatusOK, out)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, c := range h.checks {
		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err := c.Check(ctx); err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func providerStatus(h resilience.Health) models.ProviderStatus {
	p := models.ProviderStatus{
		Provider:     h.Name,
		CircuitState: h.State.String(),
	}
	switch h.Status() {
	case "down":
		p.Status = models.HealthStatusFail
	case "degraded":
		p.Status = models.HealthStatusDegraded
	default:
		p.Status = models.HealthStatusOK
	}
	if h.LastSuccessAt != nil {
		ts := models.Timestamp(*h.LastSuccessAt)
		p.LastSuccessAt = &ts
	}
	if h.LastFailureAt != nil {
		ts := models.Timestamp(*h.LastFailureAt)
		p.LastFailureAt = &ts
	}
	if h.LastError != "" {
		msg := h.LastError
		p.Message = &msg
	}
	return p
}
