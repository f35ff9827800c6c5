package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

type LeaveType string

const (
	TypeSick   LeaveType = "SICK"
	TypeCasual LeaveType = "CASUAL"
	TypePaid   LeaveType = "PAID"
)

var AllTypes = []LeaveType{TypeSick, TypeCasual, TypePaid}

func (t LeaveType) Valid() bool {
	switch t {
	case TypeSick, TypeCasual, TypePaid:
		return true
	}
	return false
}

type Category string

const (
	CategoryPermanent  Category = "PERMANENT"
	CategoryContracted Category = "CONTRACTED"
)

const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// ActiveStatuses are the request states that hold calendar days.
var ActiveStatuses = []string{StatusPending, StatusApproved}

const (
	TrainerActive   = "ACTIVE"
	TrainerInactive = "INACTIVE"
)

// SystemActor is recorded as the actor of scheduler mutations.
const SystemActor = "system"

// TrainerLedger is the lockable per-trainer record the engine mutates.
type TrainerLedger struct {
	TrainerID         string     `json:"trainerId"`
	Category          Category   `json:"category"`
	Status            string     `json:"status"`
	LastIncrementDate *time.Time `json:"lastIncrementDate,omitempty"`
	LastRolloverDate  *time.Time `json:"lastRolloverDate,omitempty"`
}

type Balance struct {
	TrainerID    string          `json:"trainerId"`
	LeaveType    LeaveType       `json:"leaveType"`
	Available    decimal.Decimal `json:"available"`
	Used         decimal.Decimal `json:"used"`
	CarryForward decimal.Decimal `json:"carryForward"`
	Unlimited    bool            `json:"unlimited"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type BalanceSnapshot struct {
	TrainerID         string     `json:"trainerId"`
	Category          Category   `json:"category"`
	Balances          []Balance  `json:"balances"`
	LastIncrementDate *time.Time `json:"lastIncrementDate,omitempty"`
	LastRolloverDate  *time.Time `json:"lastRolloverDate,omitempty"`
}

// Get returns the balance row for a leave type, zero-valued when absent.
func (s BalanceSnapshot) Get(leaveType LeaveType) Balance {
	for _, b := range s.Balances {
		if b.LeaveType == leaveType {
			return b
		}
	}
	return Balance{TrainerID: s.TrainerID, LeaveType: leaveType}
}

type LeaveRequest struct {
	ID           string     `json:"id"`
	TrainerID    string     `json:"trainerId"`
	LeaveType    LeaveType  `json:"leaveType"`
	FromDate     time.Time  `json:"fromDate"`
	ToDate       time.Time  `json:"toDate"`
	NumberOfDays int        `json:"numberOfDays"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	ApprovedBy   string     `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
	RejectedBy   string     `json:"rejectedBy,omitempty"`
	RejectedAt   *time.Time `json:"rejectedAt,omitempty"`
	CancelledBy  string     `json:"cancelledBy,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
	AdminRemarks string     `json:"adminRemarks,omitempty"`
	AppliedOn    time.Time  `json:"appliedOn"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (r LeaveRequest) Active() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

type ApplyInput struct {
	LeaveType LeaveType
	FromDate  time.Time
	ToDate    time.Time
	Reason    string
}

type EditBalanceInput struct {
	LeaveType LeaveType
	Available decimal.Decimal
	Unlimited bool
}

// Actor is the already-authenticated caller of a workflow operation.
type Actor struct {
	ID   string
	Role string
}

type RequestFilter struct {
	TrainerID string
	LeaveType LeaveType
	Statuses  []string
	From      time.Time
	To        time.Time
}

type Page struct {
	Limit  int
	Offset int
}

type RequestPage struct {
	Requests []LeaveRequest `json:"requests"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}

type RunOptions struct {
	// DryRun computes the outcome and rolls every transaction back.
	DryRun bool
	// Force ignores the calendar gate of the rollover job. Per-year idempotence still holds.
	Force bool
}
