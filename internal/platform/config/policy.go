package config

import (
	"time"

	"github.com/shopspring/decimal"

	"trainerleave/internal/domain/leave"
)

// LeavePolicy builds the engine policy from the LEAVE_* settings.
func (c Config) LeavePolicy() (leave.Policy, error) {
	loc, err := c.Location()
	if err != nil {
		return leave.Policy{}, err
	}
	p := leave.DefaultPolicy()
	p.MaxSpanDays = c.LeaveMaxSpanDays
	p.MinReasonLength = c.LeaveMinReasonLength
	p.AccrualInterval = time.Duration(c.LeaveAccrualDays) * 24 * time.Hour
	p.MonthlyIncrement = map[leave.LeaveType]decimal.Decimal{
		leave.TypeSick:   c.LeaveMonthlySick,
		leave.TypeCasual: c.LeaveMonthlyCasual,
	}
	p.CarryForwardCap = c.LeaveCarryForwardCap
	p.RolloverMonth = time.Month(c.LeaveRolloverMonth)
	p.UnlimitedPaidLeave = c.LeaveUnlimitedPaid
	p.Location = loc
	return p, nil
}
