package audithandler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"trainerleave/internal/domain/audit"
	"trainerleave/internal/domain/auth"
	"trainerleave/internal/domain/leave"
	"trainerleave/internal/transport/http/api"
	"trainerleave/internal/transport/http/middleware"
	"trainerleave/internal/transport/http/shared"
)

type HistoryService interface {
	AuditHistory(ctx context.Context, trainerID string, page leave.Page) (audit.Page, error)
}

type Handler struct {
	Service HistoryService
	Perms   middleware.PermissionStore
}

func NewHandler(service HistoryService, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/trainers/{trainerID}", h.handleList)
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/trainers/{trainerID}/export", h.handleExport)
	})
}

// handleList serves a trainer their own ledger history; anyone else needs audit.read.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	trainerID := chi.URLParam(r, "trainerID")
	if user.UserID != trainerID {
		allowed, err := h.Perms.HasPermission(r.Context(), user.RoleName, auth.PermAuditRead)
		if err != nil || !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
			return
		}
	}

	out, err := h.Service.AuditHistory(r.Context(), trainerID, shared.ParsePage(r))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(out.Total))
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	trainerID := chi.URLParam(r, "trainerID")
	out, err := h.Service.AuditHistory(r.Context(), trainerID, leave.Page{Limit: shared.MaxPageLimit})
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-audit-"+trainerID+".csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "timestamp", "leave_type", "kind", "delta", "resulting_available", "actor_id", "request_id", "reason"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, e := range out.Entries {
		row := []string{
			e.ID,
			e.Timestamp.UTC().Format(time.RFC3339),
			e.LeaveType,
			e.Kind,
			e.Delta.String(),
			e.ResultingAvailable.String(),
			e.ActorID,
			e.RequestID,
			e.Reason,
		}
		if err := writer.Write(row); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
