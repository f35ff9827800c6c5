package jobshandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainerleave/internal/domain/auth"
	"trainerleave/internal/platform/jobs"
	"trainerleave/internal/transport/http/middleware"
)

type lockedOut struct{}

func (lockedOut) Acquire(context.Context, string) (func(), bool, error) { return func() {}, false, nil }

type staticHistory struct {
	job  string
	runs []jobs.Run
}

func (s *staticHistory) ListRuns(_ context.Context, job string, limit int) ([]jobs.Run, error) {
	s.job = job
	if len(s.runs) > limit {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func newRunner(t *testing.T, locker jobs.Locker, seen *jobs.Options) *jobs.Runner {
	t.Helper()
	runner := jobs.NewRunner(locker, nil)
	require.NoError(t, runner.Register(jobs.Task{
		Name: "leave.accrual",
		Run: func(_ context.Context, opts jobs.Options) (any, error) {
			*seen = opts
			return map[string]int{"credited": 2}, nil
		},
	}))
	require.NoError(t, runner.Register(jobs.Task{
		Name: "leave.rollover",
		Run: func(context.Context, jobs.Options) (any, error) {
			return nil, errors.New("db down")
		},
	}))
	return runner
}

func do(h *Handler, role, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/api/v1", h.RegisterRoutes)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", RoleName: role}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRunJob(t *testing.T) {
	var seen jobs.Options
	h := NewHandler(newRunner(t, nil, &seen), nil, auth.StaticPermissions{})

	rec := do(h, auth.RoleAdmin, http.MethodPost, "/api/v1/leave/jobs/leave.accrual/run", `{"testMode":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, seen.DryRun)
	assert.False(t, seen.Force)
	assert.Equal(t, jobs.TriggerManual, seen.Trigger)

	var env struct {
		Data struct {
			Job     string         `json:"job"`
			Details map[string]int `json:"details"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "leave.accrual", env.Data.Job)
	assert.Equal(t, 2, env.Data.Details["credited"])

	rec = do(h, auth.RoleAdmin, http.MethodPost, "/api/v1/leave/jobs/leave.accrual/run", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, seen.DryRun)
}

func TestRunJobErrors(t *testing.T) {
	var seen jobs.Options
	h := NewHandler(newRunner(t, nil, &seen), nil, auth.StaticPermissions{})

	assert.Equal(t, http.StatusForbidden, do(h, auth.RoleHR, http.MethodPost, "/api/v1/leave/jobs/leave.accrual/run", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, auth.RoleAdmin, http.MethodPost, "/api/v1/leave/jobs/payroll/run", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, auth.RoleAdmin, http.MethodPost, "/api/v1/leave/jobs/leave.accrual/run", "{").Code)

	rec := do(h, auth.RoleAdmin, http.MethodPost, "/api/v1/leave/jobs/leave.rollover/run", `{"force":true}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}

func TestRunJobLockedElsewhere(t *testing.T) {
	var seen jobs.Options
	h := NewHandler(newRunner(t, lockedOut{}, &seen), nil, auth.StaticPermissions{})

	rec := do(h, auth.RoleAdmin, http.MethodPost, "/api/v1/leave/jobs/leave.accrual/run", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Test mode never contends for the lock.
	rec = do(h, auth.RoleAdmin, http.MethodPost, "/api/v1/leave/jobs/leave.accrual/run", `{"testMode":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListJobsAndRuns(t *testing.T) {
	var seen jobs.Options
	history := &staticHistory{runs: []jobs.Run{{ID: 2, Job: "leave.accrual", Status: jobs.StatusCompleted}, {ID: 1, Job: "leave.accrual", Status: jobs.StatusFailed}}}
	h := NewHandler(newRunner(t, nil, &seen), history, auth.StaticPermissions{})

	rec := do(h, auth.RoleAdmin, http.MethodGet, "/api/v1/leave/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"jobs":["leave.accrual","leave.rollover"]`)

	rec = do(h, auth.RoleAdmin, http.MethodGet, "/api/v1/leave/jobs/runs?job=leave.accrual&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "leave.accrual", history.job)
	var env struct {
		Data []jobs.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, int64(2), env.Data[0].ID)
}
