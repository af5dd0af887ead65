package domain

import "strings"

// Role identifies one of the fixed administrative roles. The set is closed:
// adding a role is a source change, not a runtime mutation.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RoleLibraryAdmin    Role = "admin_library"
	RoleFinanceAdmin    Role = "admin_finance"
	RoleAttendanceAdmin Role = "admin_attendance"
	RoleScheduleAdmin   Role = "admin_schedule"
	RoleAppAdmin        Role = "admin_app"
)

// Roles lists every known role in a stable order.
func Roles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleLibraryAdmin,
		RoleFinanceAdmin,
		RoleAttendanceAdmin,
		RoleScheduleAdmin,
		RoleAppAdmin,
	}
}

// ParseRole resolves a role tag, reporting whether it names a known role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	case RoleLibraryAdmin:
		return RoleLibraryAdmin, true
	case RoleFinanceAdmin:
		return RoleFinanceAdmin, true
	case RoleAttendanceAdmin:
		return RoleAttendanceAdmin, true
	case RoleScheduleAdmin:
		return RoleScheduleAdmin, true
	case RoleAppAdmin:
		return RoleAppAdmin, true
	}
	return "", false
}

// Valid reports whether the role is one of the known tags.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Label returns the human-readable name for the role. The switch is
// exhaustive over the role set so a new role cannot ship without one.
func (r Role) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "Super Administrator"
	case RoleLibraryAdmin:
		return "Library Administrator"
	case RoleFinanceAdmin:
		return "Finance Administrator"
	case RoleAttendanceAdmin:
		return "Attendance Administrator"
	case RoleScheduleAdmin:
		return "Schedule Administrator"
	case RoleAppAdmin:
		return "Application Administrator"
	}
	return "Unknown Role"
}

// Resource names a guarded area of the dashboard.
type Resource string

const (
	ResourceBooks         Resource = "books"
	ResourceAnnouncements Resource = "announcements"
	ResourceSchedule      Resource = "schedule"
	ResourceAttendance    Resource = "attendance"
	ResourceFinance       Resource = "finance"
	ResourceDevices       Resource = "devices"
	ResourceAudit         Resource = "audit"
	ResourceAdmins        Resource = "admins"
	ResourceSystem        Resource = "system"
)

// Action names an operation on a resource.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionExport  Action = "export"
)

// Capability pairs a resource with a permitted action.
type Capability struct {
	Resource Resource
	Action   Action
}

// CapabilityGrant assigns a set of actions on one resource to a role.
// A slice of grants per role forms the static permission table.
type CapabilityGrant struct {
	Resource Resource
	Actions  []Action
}
