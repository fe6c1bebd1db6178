// Package ops serves the operational HTTP surface: health, metrics and
// manual job triggers.
package ops

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moa/internal/platform/logger"
	"moa/pkg/platform/batch"
	"moa/pkg/platform/httputil"
	"moa/pkg/platform/middleware/admin"
)

// JobTrigger runs a scheduled job on demand.
type JobTrigger interface {
	Trigger(ctx context.Context, name string) (batch.Result, error)
}

// Check is one dependency probed by /health.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

type Handler struct {
	jobs       JobTrigger
	gatherer   prometheus.Gatherer
	adminToken string
	checks     []Check
	logger     *slog.Logger
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func WithChecks(checks ...Check) Option {
	return func(h *Handler) { h.checks = append(h.checks, checks...) }
}

func New(jobs JobTrigger, gatherer prometheus.Gatherer, adminToken string, opts ...Option) *Handler {
	h := &Handler{
		jobs:       jobs,
		gatherer:   gatherer,
		adminToken: adminToken,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns the ops routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Use(middleware.Timeout(10 * time.Minute))
		r.Post("/jobs/{name}", h.handleTriggerJob)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "check", c.Name, "error", err)
			resp.Checks[c.Name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}

type jobResponse struct {
	Job       string `json:"job"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

func (h *Handler) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	res, err := h.jobs.Trigger(ctx, name)
	if err != nil {
		h.logger.WarnContext(ctx, "manual job trigger failed",
			"request_id", middleware.GetReqID(ctx),
			"job", name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "job triggered manually",
		"request_id", middleware.GetReqID(ctx),
		"job", name,
		"result", res.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, jobResponse{
		Job:       name,
		Total:     res.Total,
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
		Skipped:   res.Skipped,
	})
}
