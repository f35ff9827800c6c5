package leave

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// OverlapGuard validates an application before a PENDING request is created.
// It never mutates anything.
type OverlapGuard struct {
	Policy Policy
}

// ValidateInput checks everything that does not need stored state and returns the day count.
func (g OverlapGuard) ValidateInput(in ApplyInput, now time.Time) (int, error) {
	if !in.LeaveType.Valid() {
		return 0, invalid("leaveType", fmt.Sprintf("unknown leave type %q", in.LeaveType))
	}
	if in.FromDate.IsZero() {
		return 0, invalid("fromDate", "is required")
	}
	if in.ToDate.IsZero() {
		return 0, invalid("toDate", "is required")
	}
	days, err := CountDays(in.FromDate, in.ToDate)
	if err != nil {
		return 0, invalid("toDate", "must not be before fromDate")
	}
	if DateOnly(in.FromDate).Before(g.Policy.today(now)) {
		return 0, invalid("fromDate", "must not be in the past")
	}
	if g.Policy.MaxSpanDays > 0 && days > g.Policy.MaxSpanDays {
		return 0, invalid("toDate", fmt.Sprintf("span of %d days exceeds the maximum of %d", days, g.Policy.MaxSpanDays))
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Reason)) < g.Policy.MinReasonLength {
		return 0, invalid("reason", fmt.Sprintf("must be at least %d characters", g.Policy.MinReasonLength))
	}
	return days, nil
}

// Check runs inside the trainer transaction. The returned *ConflictError names the
// earliest applied active request that covers any day of the range.
func (g OverlapGuard) Check(ctx context.Context, tx TxStore, ledger TrainerLedger, in ApplyInput) error {
	if ledger.Status != TrainerActive {
		return invalid("trainer", "is not active")
	}
	if !g.Policy.allows(ledger.Category, in.LeaveType) {
		return invalid("leaveType", fmt.Sprintf("%s is not available to %s trainers", in.LeaveType, ledger.Category))
	}
	existing, err := tx.ActiveOverlaps(ctx, ledger.TrainerID, in.FromDate, in.ToDate)
	if err != nil {
		return fmt.Errorf("load overlapping requests: %w", err)
	}
	if conflict, ok := firstConflict(existing, in.FromDate, in.ToDate); ok {
		return &ConflictError{Existing: conflict}
	}
	return nil
}
