package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainerleave/internal/domain/leave"
)

func TestFailErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &leave.ValidationError{Field: "reason", Reason: "too short"}, http.StatusBadRequest, "validation_error"},
		{"conflict", &leave.ConflictError{Existing: leave.LeaveRequest{ID: "r1", Status: leave.StatusPending}}, http.StatusConflict, "leave_conflict"},
		{"wrapped conflict", fmt.Errorf("insert: %w", leave.ErrConflict), http.StatusConflict, "leave_conflict"},
		{"not found", fmt.Errorf("leave request x: %w", leave.ErrNotFound), http.StatusNotFound, "not_found"},
		{"balance", &leave.InsufficientBalanceError{LeaveType: leave.TypeSick, Available: decimal.NewFromInt(1), Requested: decimal.NewFromInt(3)}, http.StatusUnprocessableEntity, "insufficient_balance"},
		{"unauthorized", leave.ErrUnauthorized, http.StatusForbidden, "forbidden"},
		{"state", &leave.StateError{RequestID: "r1", Current: leave.StatusRejected, Transition: "cancel"}, http.StatusConflict, "invalid_state"},
		{"infrastructure", errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FailError(rec, tc.err, "req-1")
			assert.Equal(t, tc.status, rec.Code)

			var body struct {
				Success   bool   `json:"success"`
				RequestID string `json:"requestId"`
				Error     struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, "req-1", body.RequestID)
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestFailErrorHidesInfrastructureDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, errors.New("password authentication failed for user app"), "")
	assert.NotContains(t, rec.Body.String(), "password")
}
