package services

import "github.com/kendall-kelly/agency-sales-api/models"

// Identity is the caller on whose behalf a service operation runs
type Identity struct {
	UserID   uint
	Username string
	Role     models.Role
	AgencyID *uint
}

// IdentityFor builds the identity of a stored user
func IdentityFor(user models.User) Identity {
	return Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		AgencyID: user.AgencyID,
	}
}

// IsSuperAdmin reports whether the identity is unrestricted
func (id Identity) IsSuperAdmin() bool {
	return id.Role == models.RoleSuperAdmin
}

// IsSalesperson reports whether the identity sees only its own orders
func (id Identity) IsSalesperson() bool {
	return id.Role == models.RoleSalesperson
}

// InAgency reports whether rows of agencyID are visible to the identity
func (id Identity) InAgency(agencyID uint) bool {
	if id.IsSuperAdmin() {
		return true
	}
	return id.AgencyID != nil && *id.AgencyID == agencyID
}

// CanManageCatalog reports whether the identity may change locations, customers and products
func (id Identity) CanManageCatalog() bool {
	switch id.Role {
	case models.RoleSuperAdmin, models.RoleAgencyAdmin, models.RoleStaff:
		return true
	}
	return false
}

// CanManageUsers reports whether the identity may administer user accounts
func (id Identity) CanManageUsers() bool {
	return id.Role == models.RoleSuperAdmin || id.Role == models.RoleAgencyAdmin
}

// authorizeAgency rejects references to an agency outside the identity's scope
func (id Identity) authorizeAgency(agencyID uint) error {
	if !id.InAgency(agencyID) {
		return ErrNotPermitted
	}
	return nil
}

func (id Identity) requireCatalogManager() error {
	if !id.CanManageCatalog() {
		return ErrNotPermitted
	}
	return nil
}

// defaultAgency resolves the agency a new row belongs to: the requested one
// for super admins, the caller's own agency for everyone else.
func (id Identity) defaultAgency(requested uint) (uint, error) {
	if id.IsSuperAdmin() {
		if requested == 0 {
			return 0, validationError("agency_id", "Agency is required")
		}
		return requested, nil
	}
	if id.AgencyID == nil {
		return 0, ErrNotPermitted
	}
	if requested != 0 && requested != *id.AgencyID {
		return 0, ErrNotPermitted
	}
	return *id.AgencyID, nil
}
