package shared

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"trainerleave/internal/domain/leave"
	"trainerleave/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]ValidationIssue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	field = strings.TrimSpace(field)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{
		Field:  field,
		Reason: reason,
	})
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// LeaveType normalizes raw and records an issue unless it names a known type.
// An empty value is accepted as "any type".
func (v *Validator) LeaveType(field, raw string) leave.LeaveType {
	lt := leave.LeaveType(strings.ToUpper(strings.TrimSpace(raw)))
	if lt == "" || lt.Valid() {
		return lt
	}
	allowed := make([]string, 0, len(leave.AllTypes))
	for _, t := range leave.AllTypes {
		allowed = append(allowed, string(t))
	}
	v.Add(field, "must be one of "+strings.Join(allowed, ", "))
	return lt
}

// Day parses a calendar date in loc. Missing values are an issue only when required.
func (v *Validator) Day(field, raw string, loc *time.Location, required bool) time.Time {
	if strings.TrimSpace(raw) == "" {
		if required {
			v.Add(field, "is required")
		}
		return time.Time{}
	}
	parsed, err := ParseDay(raw, loc)
	if err != nil {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}
	}
	return parsed
}

func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() {
		return
	}
	if end.Before(start) {
		v.Add(startField, "must be on or before "+endField)
		v.Add(endField, "must be on or after "+startField)
	}
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]ValidationIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(
		w,
		http.StatusBadRequest,
		"validation_error",
		"payload validation failed",
		map[string]any{"fields": issues},
		requestID,
	)
}
