package authhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trainerleave/internal/domain/auth"
)

type fakeUsers map[string]auth.AuthUser

func (f fakeUsers) FindUser(_ context.Context, userID string) (auth.AuthUser, error) {
	u, ok := f[userID]
	if !ok {
		return auth.AuthUser{}, fmt.Errorf("%w: %s", auth.ErrUserNotFound, userID)
	}
	return u, nil
}

func TestHandleIssue(t *testing.T) {
	users := fakeUsers{
		"hr-1": {ID: "hr-1", Email: "hr@example.com", RoleName: auth.RoleHR, Status: auth.StatusActive},
		"gone": {ID: "gone", Email: "gone@example.com", RoleName: auth.RoleTrainer, Status: "INACTIVE"},
	}
	h := NewHandler(auth.NewService(users, "secret"), time.Hour)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "active user", body: `{"userId":"hr-1"}`, status: http.StatusOK},
		{name: "inactive user", body: `{"userId":"gone"}`, status: http.StatusUnauthorized},
		{name: "unknown user", body: `{"userId":"nobody"}`, status: http.StatusUnauthorized},
		{name: "missing user", body: `{"userId":"  "}`, status: http.StatusBadRequest},
		{name: "bad json", body: `{`, status: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.HandleIssue(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestIssuedTokenParses(t *testing.T) {
	users := fakeUsers{"t1": {ID: "t1", RoleName: auth.RoleTrainer, Status: auth.StatusActive}}
	h := NewHandler(auth.NewService(users, "secret"), 0)
	if h.TTL != 8*time.Hour {
		t.Fatalf("expected default ttl, got %s", h.TTL)
	}

	rec := httptest.NewRecorder()
	h.HandleIssue(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"userId":"t1"}`)))

	var env struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := auth.ParseToken("secret", env.Data.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != "t1" || claims.RoleName != auth.RoleTrainer {
		t.Fatalf("unexpected claims %+v", claims)
	}
}
