package leave

import (
	"github.com/shopspring/decimal"
)

// Mutation is the outcome of one ledger operation on a balance row.
// Delta is the signed number of days moved; Resulting is available afterwards.
type Mutation struct {
	Delta     decimal.Decimal
	Resulting decimal.Decimal
}

func (b Balance) CheckAvailable(days decimal.Decimal) bool {
	return b.Unlimited || b.Available.GreaterThanOrEqual(days)
}

func (b *Balance) Debit(days decimal.Decimal) (Mutation, error) {
	if !days.IsPositive() {
		return Mutation{}, invalid("days", "must be positive")
	}
	if !b.CheckAvailable(days) {
		return Mutation{}, &InsufficientBalanceError{
			TrainerID: b.TrainerID,
			LeaveType: b.LeaveType,
			Available: b.Available,
			Requested: days,
		}
	}
	if !b.Unlimited {
		b.Available = b.Available.Sub(days)
	}
	b.Used = b.Used.Add(days)
	return Mutation{Delta: days.Neg(), Resulting: b.Available}, nil
}

// Credit returns days to the balance; used never drops below zero.
func (b *Balance) Credit(days decimal.Decimal) (Mutation, error) {
	if !days.IsPositive() {
		return Mutation{}, invalid("days", "must be positive")
	}
	if !b.Unlimited {
		b.Available = b.Available.Add(days)
	}
	b.Used = decimal.Max(b.Used.Sub(days), decimal.Zero)
	return Mutation{Delta: days, Resulting: b.Available}, nil
}

func (b *Balance) Accrue(delta decimal.Decimal) (Mutation, error) {
	if !delta.IsPositive() {
		return Mutation{}, invalid("delta", "must be positive")
	}
	if b.Unlimited {
		return Mutation{Delta: decimal.Zero, Resulting: b.Available}, nil
	}
	b.Available = b.Available.Add(delta)
	return Mutation{Delta: delta, Resulting: b.Available}, nil
}

// Rollover carries min(available, limit) forward and opens the new cycle with carryForward + opening.
func (b *Balance) Rollover(limit, opening decimal.Decimal) Mutation {
	if b.Unlimited {
		return Mutation{Delta: decimal.Zero, Resulting: b.Available}
	}
	before := b.Available
	carry := decimal.Max(decimal.Min(b.Available, limit), decimal.Zero)
	b.CarryForward = carry
	b.Available = carry.Add(decimal.Max(opening, decimal.Zero))
	b.Used = decimal.Zero
	return Mutation{Delta: b.Available.Sub(before), Resulting: b.Available}
}

// Set overwrites the balance for a manual edit.
func (b *Balance) Set(available decimal.Decimal, unlimited bool) (Mutation, error) {
	if available.IsNegative() {
		return Mutation{}, invalid("available", "must not be negative")
	}
	before := b.Available
	b.Available = available
	b.Unlimited = unlimited
	return Mutation{Delta: available.Sub(before), Resulting: b.Available}, nil
}
