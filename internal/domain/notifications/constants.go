package notifications

// Event names match the leave engine's transition events.
const (
	TypeLeaveApplied        = "leave.applied"
	TypeLeaveApproved       = "leave.approved"
	TypeLeaveRejected       = "leave.rejected"
	TypeLeaveCancelled      = "leave.cancelled"
	TypeLeaveBalanceUpdated = "leave.balance_updated"
)

var titles = map[string]string{
	TypeLeaveApplied:        "New leave request awaiting approval",
	TypeLeaveApproved:       "Your leave request was approved",
	TypeLeaveRejected:       "Your leave request was rejected",
	TypeLeaveCancelled:      "A leave request was cancelled",
	TypeLeaveBalanceUpdated: "Your leave balance was updated",
}
