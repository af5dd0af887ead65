package usecase

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/edcore/school-admin-guard/internal/core/domain"
)

// PermissionEngine answers capability questions from a static role table.
// The table is built once at construction and never mutated afterwards, so
// lookups are plain map reads with no locking. Unknown roles, resources,
// and actions all answer false; there is no error path.
type PermissionEngine struct {
	table     map[domain.Role]map[domain.Resource]map[domain.Action]struct{}
	grants    map[domain.Role][]domain.CapabilityGrant
	resources []domain.Resource
}

// NewPermissionEngine builds the engine from role grants. The super admin
// role is a wildcard regardless of what the grants say, and that cannot
// be revoked at runtime.
func NewPermissionEngine(grants map[domain.Role][]domain.CapabilityGrant) *PermissionEngine {
	table := make(map[domain.Role]map[domain.Resource]map[domain.Action]struct{}, len(grants))
	resourceSet := make(map[domain.Resource]struct{})

	for role, roleGrants := range grants {
		byResource := make(map[domain.Resource]map[domain.Action]struct{}, len(roleGrants))
		for _, grant := range roleGrants {
			actions, ok := byResource[grant.Resource]
			if !ok {
				actions = make(map[domain.Action]struct{}, len(grant.Actions))
				byResource[grant.Resource] = actions
			}
			for _, action := range grant.Actions {
				actions[action] = struct{}{}
			}
			resourceSet[grant.Resource] = struct{}{}
		}
		table[role] = byResource
	}

	resources := make([]domain.Resource, 0, len(resourceSet))
	for _, resource := range knownResources() {
		if _, ok := resourceSet[resource]; ok {
			resources = append(resources, resource)
		}
	}

	return &PermissionEngine{table: table, grants: grants, resources: resources}
}

// Grants returns the configured capability grants for a role, used to
// render the permission matrix in the dashboard.
func (e *PermissionEngine) Grants(role domain.Role) []domain.CapabilityGrant {
	grants := e.grants[role]
	out := make([]domain.CapabilityGrant, len(grants))
	copy(out, grants)
	return out
}

// CanPerform reports whether the role holds the (resource, action) capability.
func (e *PermissionEngine) CanPerform(role domain.Role, resource domain.Resource, action domain.Action) bool {
	if role == domain.RoleSuperAdmin {
		return true
	}
	actions, ok := e.table[role][resource]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// AccessibleResources lists the resources a role can reach at all. The
// super admin sees every resource in the table.
func (e *PermissionEngine) AccessibleResources(role domain.Role) []domain.Resource {
	if role == domain.RoleSuperAdmin {
		out := make([]domain.Resource, len(e.resources))
		copy(out, e.resources)
		return out
	}

	byResource, ok := e.table[role]
	if !ok {
		return nil
	}

	var out []domain.Resource
	for _, resource := range e.resources {
		if _, ok := byResource[resource]; ok {
			out = append(out, resource)
		}
	}
	return out
}

// RolesPermitted lists every role holding the capability, used to render
// "who can do this" alongside a denial.
func (e *PermissionEngine) RolesPermitted(resource domain.Resource, action domain.Action) []domain.Role {
	var roles []domain.Role
	for _, role := range domain.Roles() {
		if e.CanPerform(role, resource, action) {
			roles = append(roles, role)
		}
	}
	return roles
}

// DefaultCapabilityTable is the built-in permission configuration. Each
// section admin owns their own area; only the super admin touches admins,
// devices of others, audit export, and system controls.
func DefaultCapabilityTable() map[domain.Role][]domain.CapabilityGrant {
	crud := []domain.Action{domain.ActionView, domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete}

	return map[domain.Role][]domain.CapabilityGrant{
		// The wildcard makes explicit grants for super_admin redundant,
		// but listing the resources keeps AccessibleResources complete.
		domain.RoleSuperAdmin: {
			{Resource: domain.ResourceBooks, Actions: crud},
			{Resource: domain.ResourceAnnouncements, Actions: crud},
			{Resource: domain.ResourceSchedule, Actions: crud},
			{Resource: domain.ResourceAttendance, Actions: crud},
			{Resource: domain.ResourceFinance, Actions: crud},
			{Resource: domain.ResourceDevices, Actions: crud},
			{Resource: domain.ResourceAudit, Actions: []domain.Action{domain.ActionView, domain.ActionExport}},
			{Resource: domain.ResourceAdmins, Actions: crud},
			{Resource: domain.ResourceSystem, Actions: crud},
		},
		domain.RoleLibraryAdmin: {
			{Resource: domain.ResourceBooks, Actions: crud},
			{Resource: domain.ResourceAnnouncements, Actions: []domain.Action{domain.ActionView}},
			{Resource: domain.ResourceDevices, Actions: []domain.Action{domain.ActionView, domain.ActionApprove, domain.ActionDelete}},
		},
		domain.RoleFinanceAdmin: {
			{Resource: domain.ResourceFinance, Actions: append(crud, domain.ActionExport)},
			{Resource: domain.ResourceAnnouncements, Actions: []domain.Action{domain.ActionView}},
			{Resource: domain.ResourceDevices, Actions: []domain.Action{domain.ActionView, domain.ActionApprove, domain.ActionDelete}},
		},
		domain.RoleAttendanceAdmin: {
			{Resource: domain.ResourceAttendance, Actions: append(crud, domain.ActionExport)},
			{Resource: domain.ResourceAnnouncements, Actions: []domain.Action{domain.ActionView}},
			{Resource: domain.ResourceDevices, Actions: []domain.Action{domain.ActionView, domain.ActionApprove, domain.ActionDelete}},
		},
		domain.RoleScheduleAdmin: {
			{Resource: domain.ResourceSchedule, Actions: crud},
			{Resource: domain.ResourceAnnouncements, Actions: []domain.Action{domain.ActionView}},
			{Resource: domain.ResourceDevices, Actions: []domain.Action{domain.ActionView, domain.ActionApprove, domain.ActionDelete}},
		},
		domain.RoleAppAdmin: {
			{Resource: domain.ResourceAnnouncements, Actions: crud},
			{Resource: domain.ResourceDevices, Actions: []domain.Action{domain.ActionView, domain.ActionApprove, domain.ActionDelete}},
		},
	}
}

// LoadCapabilityTable reads a capability table from a JSON file, for
// deployments that override the built-in grants. The file maps role tags
// to grant lists; unknown roles are rejected so typos fail at startup.
func LoadCapabilityTable(path string) (map[domain.Role][]domain.CapabilityGrant, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capability table: %w", err)
	}

	var file map[string][]struct {
		Resource string   `json:"resource"`
		Actions  []string `json:"actions"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse capability table: %w", err)
	}

	table := make(map[domain.Role][]domain.CapabilityGrant, len(file))
	for rawRole, rawGrants := range file {
		role, ok := domain.ParseRole(rawRole)
		if !ok {
			return nil, fmt.Errorf("capability table names unknown role %q", rawRole)
		}

		grants := make([]domain.CapabilityGrant, 0, len(rawGrants))
		for _, rawGrant := range rawGrants {
			grant := domain.CapabilityGrant{Resource: domain.Resource(rawGrant.Resource)}
			for _, action := range rawGrant.Actions {
				grant.Actions = append(grant.Actions, domain.Action(action))
			}
			grants = append(grants, grant)
		}
		table[role] = grants
	}
	return table, nil
}

func knownResources() []domain.Resource {
	return []domain.Resource{
		domain.ResourceBooks,
		domain.ResourceAnnouncements,
		domain.ResourceSchedule,
		domain.ResourceAttendance,
		domain.ResourceFinance,
		domain.ResourceDevices,
		domain.ResourceAudit,
		domain.ResourceAdmins,
		domain.ResourceSystem,
	}
}
