package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy holds the tunable rules of the engine.
type Policy struct {
	MaxSpanDays     int
	MinReasonLength int
	// AllowedTypes lists the leave types each trainer category may request.
	AllowedTypes map[Category][]LeaveType

	AccrualInterval  time.Duration
	MonthlyIncrement map[LeaveType]decimal.Decimal
	CarryForwardCap  decimal.Decimal
	RolloverOpening  map[LeaveType]decimal.Decimal
	RolloverMonth    time.Month

	// UnlimitedPaidLeave makes a missing PAID balance row unlimited.
	UnlimitedPaidLeave bool

	Location *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		MaxSpanDays:     30,
		MinReasonLength: 10,
		AllowedTypes: map[Category][]LeaveType{
			CategoryPermanent:  {TypeSick, TypeCasual, TypePaid},
			CategoryContracted: {TypeSick, TypeCasual},
		},
		AccrualInterval: 30 * 24 * time.Hour,
		MonthlyIncrement: map[LeaveType]decimal.Decimal{
			TypeSick:   decimal.NewFromInt(1),
			TypeCasual: decimal.NewFromInt(1),
		},
		CarryForwardCap:    decimal.NewFromInt(5),
		RolloverOpening:    map[LeaveType]decimal.Decimal{},
		RolloverMonth:      time.January,
		UnlimitedPaidLeave: true,
		Location:           time.UTC,
	}
}

func (p Policy) allows(category Category, leaveType LeaveType) bool {
	for _, t := range p.AllowedTypes[category] {
		if t == leaveType {
			return true
		}
	}
	return false
}

// accruingTypes returns the leave types credited by accrual in a stable order.
func (p Policy) accruingTypes() []LeaveType {
	out := make([]LeaveType, 0, len(p.MonthlyIncrement))
	for _, t := range AllTypes {
		if inc, ok := p.MonthlyIncrement[t]; ok && inc.IsPositive() {
			out = append(out, t)
		}
	}
	return out
}

// rolloverTypes are the finite balances carried into the next cycle.
func (p Policy) rolloverTypes() []LeaveType {
	return []LeaveType{TypeSick, TypeCasual}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// today returns the calendar date of now in the policy time zone.
func (p Policy) today(now time.Time) time.Time {
	return DateOnly(now.In(p.location()))
}
