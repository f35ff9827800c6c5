package authhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trainerleave/internal/domain/auth"
	"trainerleave/internal/transport/http/api"
	"trainerleave/internal/transport/http/middleware"
)

type TokenIssuer interface {
	IssueToken(ctx context.Context, userID string, ttl time.Duration) (string, auth.AuthUser, error)
}

// Handler mints access tokens for seeded users. It exists for local and test
// deployments; production relies on an upstream identity provider.
type Handler struct {
	Issuer TokenIssuer
	TTL    time.Duration
}

func NewHandler(issuer TokenIssuer, ttl time.Duration) *Handler {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Handler{Issuer: issuer, TTL: ttl}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/token", h.HandleIssue)
}

type tokenRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var payload tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "userId is required", middleware.GetRequestID(r.Context()))
		return
	}

	token, user, err := h.Issuer.IssueToken(r.Context(), userID, h.TTL)
	switch {
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrUserInactive):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, map[string]any{
		"token":     token,
		"expiresIn": int(h.TTL.Seconds()),
		"user":      map[string]string{"id": user.ID, "email": user.Email, "role": user.RoleName},
	}, middleware.GetRequestID(r.Context()))
}
