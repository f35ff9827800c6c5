package api

import (
	"errors"
	"log/slog"
	"net/http"

	"trainerleave/internal/domain/leave"
)

// FailError writes the envelope for an error returned by the leave engine.
// Infrastructure errors are logged and hidden behind a generic message.
func FailError(w http.ResponseWriter, err error, requestID string) {
	var (
		validation *leave.ValidationError
		conflict   *leave.ConflictError
		balance    *leave.InsufficientBalanceError
		state      *leave.StateError
	)
	switch {
	case errors.As(err, &validation):
		FailWithDetails(w, http.StatusBadRequest, "validation_error", err.Error(),
			map[string]any{"field": validation.Field, "reason": validation.Reason}, requestID)
	case errors.As(err, &conflict):
		FailWithDetails(w, http.StatusConflict, "leave_conflict", err.Error(),
			map[string]any{"existingRequestId": conflict.Existing.ID, "existingStatus": conflict.Existing.Status}, requestID)
	case errors.As(err, &balance):
		FailWithDetails(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(),
			map[string]any{"leaveType": balance.LeaveType, "available": balance.Available, "requested": balance.Requested}, requestID)
	case errors.As(err, &state):
		FailWithDetails(w, http.StatusConflict, "invalid_state", err.Error(),
			map[string]any{"status": state.Current, "transition": state.Transition}, requestID)
	case errors.Is(err, leave.ErrValidation):
		Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, leave.ErrNotFound):
		Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, leave.ErrConflict):
		Fail(w, http.StatusConflict, "leave_conflict", err.Error(), requestID)
	case errors.Is(err, leave.ErrInsufficientBalance):
		Fail(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), requestID)
	case errors.Is(err, leave.ErrUnauthorized):
		Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, leave.ErrInvalidState):
		Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	default:
		slog.Error("request failed", "err", err, "requestId", requestID)
		Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
