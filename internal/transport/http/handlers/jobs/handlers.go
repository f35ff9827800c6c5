package jobshandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trainerleave/internal/domain/auth"
	"trainerleave/internal/platform/jobs"
	"trainerleave/internal/transport/http/api"
	"trainerleave/internal/transport/http/middleware"
	"trainerleave/internal/transport/http/shared"
)

type Runner interface {
	Names() []string
	Trigger(ctx context.Context, name string, opts jobs.Options) (jobs.Result, error)
}

type RunHistory interface {
	ListRuns(ctx context.Context, job string, limit int) ([]jobs.Run, error)
}

type Handler struct {
	Runner  Runner
	History RunHistory
	Perms   middleware.PermissionStore
}

func NewHandler(runner Runner, history RunHistory, perms middleware.PermissionStore) *Handler {
	return &Handler{Runner: runner, History: history, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave/jobs", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermJobsRun, h.Perms))
		r.Get("/", h.handleList)
		r.Get("/runs", h.handleRuns)
		r.Post("/{jobName}/run", h.handleRun)
	})
}

type runPayload struct {
	TestMode bool `json:"testMode"`
	Force    bool `json:"force"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	api.Success(w, map[string]any{"jobs": h.Runner.Names()}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var payload runPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	name := chi.URLParam(r, "jobName")
	res, err := h.Runner.Trigger(r.Context(), name, jobs.Options{
		DryRun:  payload.TestMode,
		Force:   payload.Force,
		Trigger: jobs.TriggerManual,
	})
	if errors.Is(err, jobs.ErrUnknownTask) {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown job", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		slog.Warn("manual job run failed", "job", name, "err", err)
		api.FailWithDetails(w, http.StatusInternalServerError, "job_failed", "job run failed", map[string]any{
			"job":    name,
			"error":  err.Error(),
			"result": res.Details,
		}, middleware.GetRequestID(r.Context()))
		return
	}
	if res.Skipped {
		api.Fail(w, http.StatusConflict, "job_running", "job is already running elsewhere", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, res, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		api.Success(w, []jobs.Run{}, middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePage(r)
	runs, err := h.History.ListRuns(r.Context(), r.URL.Query().Get("job"), page.Limit)
	if err != nil {
		slog.Warn("job run history failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_history_failed", "failed to list job runs", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}
