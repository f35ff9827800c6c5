package leavehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"trainerleave/internal/domain/auth"
	"trainerleave/internal/domain/directory"
	"trainerleave/internal/domain/leave"
	"trainerleave/internal/transport/http/api"
	"trainerleave/internal/transport/http/middleware"
	"trainerleave/internal/transport/http/shared"
)

// TrainerDirectory looks up the profile shown next to balances.
type TrainerDirectory interface {
	Trainer(ctx context.Context, trainerID string) (directory.Trainer, error)
}

type Handler struct {
	Service   *leave.Service
	Directory TrainerDirectory
	Perms     middleware.PermissionStore
	Location  *time.Location
}

func NewHandler(service *leave.Service, dir TrainerDirectory, perms middleware.PermissionStore) *Handler {
	loc := service.Policy.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Service: service, Directory: dir, Perms: perms, Location: loc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveApply, h.Perms)).Post("/requests", h.handleApply)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleHistory)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Get("/requests/pending", h.handlePending)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermLeaveApply, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancel)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances/{trainerID}", h.handleBalance)
		r.With(middleware.RequirePermission(auth.PermBalanceEdit, h.Perms)).Put("/balances/{trainerID}", h.handleEditBalance)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances/{trainerID}/statement.pdf", h.handleStatement)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/trainers/{trainerID}", h.handleTrainer)
	})
}

// canActFor reports whether user may read or act on trainerID's records.
func (h *Handler) canActFor(ctx context.Context, user auth.UserContext, trainerID string) bool {
	if user.UserID == trainerID {
		return true
	}
	allowed, err := h.Perms.HasPermission(ctx, user.RoleName, auth.PermLeaveReadAll)
	if err != nil {
		slog.Warn("permission lookup failed", "err", err)
		return false
	}
	return allowed
}

type applyPayload struct {
	TrainerID string `json:"trainerId"`
	LeaveType string `json:"leaveType"`
	FromDate  string `json:"fromDate"`
	ToDate    string `json:"toDate"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload applyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	trainerID := strings.TrimSpace(payload.TrainerID)
	if trainerID == "" {
		trainerID = user.UserID
	}
	if !h.canActFor(r.Context(), user, trainerID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot apply on behalf of another trainer", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("leaveType", payload.LeaveType, "is required")
	leaveType := v.LeaveType("leaveType", payload.LeaveType)
	from := v.Day("fromDate", payload.FromDate, h.Location, true)
	to := v.Day("toDate", payload.ToDate, h.Location, true)
	v.DateOrder("fromDate", from, "toDate", to)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	req, err := h.Service.ApplyLeave(r.Context(), trainerID, leave.ApplyInput{
		LeaveType: leaveType,
		FromDate:  from,
		ToDate:    to,
		Reason:    payload.Reason,
	})
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

type decisionPayload struct {
	Comments string `json:"comments"`
}

// decodeDecision accepts an empty body since comments are optional.
func decodeDecision(r *http.Request) (decisionPayload, error) {
	var payload decisionPayload
	if r.Body == nil || r.ContentLength == 0 {
		return payload, nil
	}
	err := json.NewDecoder(r.Body).Decode(&payload)
	return payload, err
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.ApproveLeave)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.RejectLeave)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, requestID, actorID, comments string) (leave.LeaveRequest, error)) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	payload, err := decodeDecision(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := op(r.Context(), chi.URLParam(r, "requestID"), user.UserID, payload.Comments)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	payload, err := decodeDecision(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	actor := leave.Actor{ID: user.UserID, Role: user.RoleName}
	req, err := h.Service.CancelLeave(r.Context(), chi.URLParam(r, "requestID"), actor, payload.Comments)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if !h.canActFor(r.Context(), user, req.TrainerID) {
		// do not reveal other trainers' request ids
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	if filter.TrainerID == "" && !h.canActFor(r.Context(), user, "") {
		filter.TrainerID = user.UserID
	}
	if filter.TrainerID != "" && !h.canActFor(r.Context(), user, filter.TrainerID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot read another trainer's requests", middleware.GetRequestID(r.Context()))
		return
	}

	out, err := h.Service.History(r.Context(), filter, shared.ParsePage(r))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(out.Total))
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	out, err := h.Service.ListPending(r.Context(), filter, shared.ParsePage(r))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(out.Total))
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request) (leave.RequestFilter, bool) {
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := leave.RequestFilter{
		TrainerID: strings.TrimSpace(q.Get("trainerId")),
		LeaveType: v.LeaveType("leaveType", q.Get("leaveType")),
		From:      v.Day("from", q.Get("from"), h.Location, false),
		To:        v.Day("to", q.Get("to"), h.Location, false),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			if st = strings.ToUpper(strings.TrimSpace(st)); st != "" {
				filter.Statuses = append(filter.Statuses, st)
			}
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return leave.RequestFilter{}, false
	}
	return filter, true
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	trainerID := chi.URLParam(r, "trainerID")
	if !h.canActFor(r.Context(), user, trainerID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot read another trainer's balance", middleware.GetRequestID(r.Context()))
		return
	}

	snapshot, err := h.Service.GetBalance(r.Context(), trainerID)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, snapshot, middleware.GetRequestID(r.Context()))
}

type editBalancePayload struct {
	LeaveType string           `json:"leaveType"`
	Available *decimal.Decimal `json:"available"`
	Unlimited bool             `json:"unlimited"`
	Reason    string           `json:"reason"`
}

func (h *Handler) handleEditBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload editBalancePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("leaveType", payload.LeaveType, "is required")
	leaveType := v.LeaveType("leaveType", payload.LeaveType)
	v.Required("reason", payload.Reason, "is required")
	if payload.Available == nil && !payload.Unlimited {
		v.Add("available", "is required unless unlimited is set")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	in := leave.EditBalanceInput{
		LeaveType: leaveType,
		Unlimited: payload.Unlimited,
	}
	if payload.Available != nil {
		in.Available = *payload.Available
	}
	snapshot, err := h.Service.EditBalance(r.Context(), chi.URLParam(r, "trainerID"), in, user.UserID, payload.Reason)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, snapshot, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	trainerID := chi.URLParam(r, "trainerID")
	if !h.canActFor(r.Context(), user, trainerID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot read another trainer's statement", middleware.GetRequestID(r.Context()))
		return
	}

	var buf bytes.Buffer
	if err := h.Service.WriteStatement(r.Context(), &buf, trainerID); err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-statement-"+trainerID+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("statement write failed", "trainerId", trainerID, "err", err)
	}
}

func (h *Handler) handleTrainer(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	trainerID := chi.URLParam(r, "trainerID")
	if !h.canActFor(r.Context(), user, trainerID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot read another trainer's profile", middleware.GetRequestID(r.Context()))
		return
	}

	profile, err := h.Directory.Trainer(r.Context(), trainerID)
	if errors.Is(err, directory.ErrTrainerNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "trainer not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	snapshot, err := h.Service.GetBalance(r.Context(), trainerID)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"trainer": profile, "balance": snapshot}, middleware.GetRequestID(r.Context()))
}
