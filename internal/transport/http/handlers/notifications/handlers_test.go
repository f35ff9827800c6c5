package notificationshandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainerleave/internal/domain/auth"
	"trainerleave/internal/domain/notifications"
	"trainerleave/internal/transport/http/middleware"
)

type memStore struct {
	mu    sync.Mutex
	items []notifications.Notification
	read  []string
}

func (m *memStore) CreateNotification(_ context.Context, n notifications.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, n)
	return nil
}

func (m *memStore) UserEmail(context.Context, string) (string, error) { return "", nil }

func (m *memStore) ListNotifications(_ context.Context, userID string, limit, offset int) ([]notifications.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []notifications.Notification{}
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	if offset >= len(out) {
		return []notifications.Notification{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CountNotifications(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.items {
		if n.UserID == userID {
			total++
		}
	}
	return total, nil
}

func (m *memStore) MarkRead(_ context.Context, userID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.read = append(m.read, userID+"/"+notificationID)
	return nil
}

func newHandler(t *testing.T) (*Handler, *notifications.Service, *memStore) {
	t.Helper()
	store := &memStore{}
	registry := notifications.NewRegistry(4)
	svc := notifications.New(store, nil, registry)
	return NewHandler(svc, registry, auth.StaticPermissions{}, time.Hour), svc, store
}

func router(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", h.RegisterRoutes)
	return r
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: userID, RoleName: auth.RoleTrainer}))
}

func TestListAndMarkRead(t *testing.T) {
	h, svc, store := newHandler(t)
	require.NoError(t, svc.Notify(context.Background(), []string{"t1", "hr"}, notifications.TypeLeaveApplied, nil))
	require.NoError(t, svc.Notify(context.Background(), []string{"t1"}, notifications.TypeLeaveApproved, nil))

	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=1", nil), "t1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Total-Count"))

	var env struct {
		Data []notifications.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "t1", env.Data[0].UserID)

	rec = httptest.NewRecorder()
	router(h).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+env.Data[0].ID+"/read", nil), "t1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"t1/" + env.Data[0].ID}, store.read)
}

func TestListRequiresUser(t *testing.T) {
	h, _, _ := newHandler(t)
	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStreamDeliversLiveNotifications(t *testing.T) {
	h, svc, _ := newHandler(t)
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil), "t1")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router(h).ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return h.Registry.Count("t1") == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, svc.Notify(context.Background(), []string{"t1", "t2"}, notifications.TypeLeaveApproved, nil))

	// Buffered events are still delivered after the registry shuts down.
	h.Registry.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end after registry close")
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, ": connected\n\n"))
	assert.Contains(t, body, "event: "+notifications.TypeLeaveApproved+"\n")
	assert.Equal(t, 1, strings.Count(body, "event: "))
}

func TestStreamEndsWhenClientDisconnects(t *testing.T) {
	h, _, _ := newHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil).WithContext(ctx), "t1")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router(h).ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return h.Registry.Count("t1") == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end after disconnect")
	}
	assert.Zero(t, h.Registry.Count("t1"))
}
