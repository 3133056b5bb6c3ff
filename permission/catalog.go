package permission

import "sort"

// Role identifies one of the fixed platform roles.
type Role string

const (
	// RoleSuperAdmin has unrestricted access to every operation.
	RoleSuperAdmin Role = "super_admin"
	// RoleContentManager curates courses, lessons, and media uploads.
	RoleContentManager Role = "content_manager"
	// RoleCommunityManager moderates community spaces and site banners.
	RoleCommunityManager Role = "community_manager"
	// RoleUserSupport handles learner-facing support operations.
	RoleUserSupport Role = "user_support"
	// RoleUser is the default learner role and the lowest-privilege role.
	RoleUser Role = "user"
)

// PermAll is the sentinel permission meaning unrestricted access. The legacy
// override literal "all" normalizes to this value; it is never expanded into
// the full permission list.
const PermAll = "*"

// Base permission strings. The catalog is intentionally a compiled-in table:
// no network or store access is ever needed to answer a permission question.
const (
	PermCoursesView      = "courses:view"
	PermCoursesManage    = "courses:manage"
	PermLessonsView      = "lessons:view"
	PermLessonsManage    = "lessons:manage"
	PermProgressOwn      = "progress:own"
	PermProgressView     = "progress:view"
	PermCertificatesOwn  = "certificates:own"
	PermCommunityJoin    = "community:participate"
	PermCommunityModerat = "community:moderate"
	PermBannersManage    = "banners:manage"
	PermAnnouncements    = "announcements:manage"
	PermUploadsCreate    = "uploads:create"
	PermVideosManage     = "videos:manage"
	PermUsersView        = "users:view"
	PermSupportTickets   = "support:tickets"
	PermProfileOwn       = "profile:own"
)

var userBase = []string{
	PermCoursesView,
	PermLessonsView,
	PermProgressOwn,
	PermCertificatesOwn,
	PermCommunityJoin,
	PermProfileOwn,
}

var basePermissions = map[Role][]string{
	RoleUser: userBase,
	RoleUserSupport: append([]string{
		PermUsersView,
		PermProgressView,
		PermSupportTickets,
	}, userBase...),
	RoleCommunityManager: append([]string{
		PermCommunityModerat,
		PermBannersManage,
		PermAnnouncements,
	}, userBase...),
	RoleContentManager: append([]string{
		PermCoursesManage,
		PermLessonsManage,
		PermUploadsCreate,
		PermVideosManage,
	}, userBase...),
	RoleSuperAdmin: {PermAll},
}

// manageableRoles defines the delegated-management hierarchy: which roles an
// acting role may assign, change, or deactivate.
var manageableRoles = map[Role][]Role{
	RoleSuperAdmin: {
		RoleSuperAdmin,
		RoleContentManager,
		RoleCommunityManager,
		RoleUserSupport,
		RoleUser,
	},
	RoleContentManager:   {RoleUser},
	RoleCommunityManager: {RoleUser},
	RoleUserSupport:      {RoleUser},
	RoleUser:             {},
}

// Known reports whether role is one of the fixed platform roles.
func Known(role Role) bool {
	_, ok := basePermissions[role]
	return ok
}

// PermissionsForRole returns a copy of the base permission set for role.
// Unknown roles fail closed to the lowest-privilege role's set — never to an
// empty-but-ambiguous set.
func PermissionsForRole(role Role) []string {
	base, ok := basePermissions[role]
	if !ok {
		base = basePermissions[RoleUser]
	}
	out := make([]string, len(base))
	copy(out, base)
	return out
}

// CanManage reports whether actingRole may manage accounts holding
// targetRole. Any unknown role on either side yields false.
func CanManage(actingRole, targetRole Role) bool {
	if !Known(actingRole) || !Known(targetRole) {
		return false
	}
	for _, r := range manageableRoles[actingRole] {
		if r == targetRole {
			return true
		}
	}
	return false
}

// ManageableRoles returns a copy of the roles actingRole may manage.
// Unknown roles get an empty slice.
func ManageableRoles(actingRole Role) []Role {
	roles := manageableRoles[actingRole]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// Resolve computes the effective permission set for an account:
// PermissionsForRole(role) united with overrides, deduplicated and sorted.
// Overrides are expected to be already normalized at the store boundary.
func Resolve(role Role, overrides []string) []string {
	seen := make(map[string]struct{})
	for _, p := range PermissionsForRole(role) {
		seen[p] = struct{}{}
	}
	for _, p := range overrides {
		if p == "" {
			continue
		}
		seen[p] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether perms grants perm, honoring the [PermAll] sentinel.
func Contains(perms []string, perm string) bool {
	for _, p := range perms {
		if p == PermAll || p == perm {
			return true
		}
	}
	return false
}
