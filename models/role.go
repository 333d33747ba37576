package models

// Role identifies a user's data scope within the system
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleAgencyAdmin Role = "agency_admin"
	RoleStaff       Role = "staff"
	RoleSalesperson Role = "salesperson"
)

// AllRoles returns every role in order of data scope, widest first
func AllRoles() []Role {
	return []Role{RoleSuperAdmin, RoleAgencyAdmin, RoleStaff, RoleSalesperson}
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}

// RequiresAgency reports whether users with this role must belong to an agency
func (r Role) RequiresAgency() bool {
	return r != RoleSuperAdmin
}
