package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"intern-service/internal/httputil"
	"intern-service/internal/metrics"

	"github.com/go-chi/chi/v5"
)

// Check pings one dependency. A nil error means it is reachable.
type Check func(ctx context.Context) error

type Handler struct {
	checks  map[string]Check
	metrics *metrics.HealthMetrics
	logger  *slog.Logger
	timeout time.Duration
}

func NewHandler(m *metrics.HealthMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		checks:  make(map[string]Check),
		metrics: m,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

// AddCheck registers a dependency consulted by /ready.
func (h *Handler) AddCheck(name string, check Check) {
	h.checks[name] = check
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ready", Dependencies: make(map[string]string, len(h.checks))}
	status := http.StatusOK

	for name, check := range h.checks {
		start := time.Now()
		err := check(ctx)
		h.metrics.RecordDependencyCheck(ctx, name, time.Since(start), err)

		if err != nil {
			h.logger.WarnContext(ctx, "dependency not ready", "dependency", name, "error", err)
			resp.Dependencies[name] = "down"
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = "up"
	}

	httputil.RespondWithJSON(w, status, resp)
}
