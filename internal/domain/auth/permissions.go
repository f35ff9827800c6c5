package auth

import "context"

const (
	PermLeaveRead         = "leave.read"
	PermLeaveApply        = "leave.apply"
	PermLeaveApprove      = "leave.approve"
	PermLeaveReadAll      = "leave.read_all"
	PermBalanceEdit       = "leave.balance.edit"
	PermAuditRead         = "audit.read"
	PermJobsRun           = "jobs.run"
	PermNotificationsRead = "notifications.read"
)

var DefaultPermissions = []string{
	PermLeaveRead,
	PermLeaveApply,
	PermLeaveApprove,
	PermLeaveReadAll,
	PermBalanceEdit,
	PermAuditRead,
	PermJobsRun,
	PermNotificationsRead,
}

var RolePermissions = map[string][]string{
	RoleTrainer: {
		PermLeaveRead,
		PermLeaveApply,
		PermNotificationsRead,
	},
	RoleHR: {
		PermLeaveRead,
		PermLeaveApply,
		PermLeaveApprove,
		PermLeaveReadAll,
		PermBalanceEdit,
		PermAuditRead,
		PermNotificationsRead,
	},
	RoleAdmin: {
		PermLeaveRead,
		PermLeaveApply,
		PermLeaveApprove,
		PermLeaveReadAll,
		PermBalanceEdit,
		PermAuditRead,
		PermJobsRun,
		PermNotificationsRead,
	},
}

func HasPermission(role, permission string) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// StaticPermissions resolves permissions from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return HasPermission(role, permission), nil
}
