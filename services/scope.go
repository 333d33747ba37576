package services

import (
	"gorm.io/gorm"
)

// Scope restricts a query to the rows an identity may see
type Scope func(*gorm.DB) *gorm.DB

func denyAll(db *gorm.DB) *gorm.DB {
	return db.Where("1 = 0")
}

func agencyColumnScope(id Identity, column string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if id.IsSuperAdmin() {
			return db
		}
		if id.AgencyID == nil {
			return denyAll(db)
		}
		return db.Where(column+" = ?", *id.AgencyID)
	}
}

// ScopeAgencies limits agencies to the caller's own unless super admin
func ScopeAgencies(id Identity) Scope {
	return agencyColumnScope(id, "agencies.id")
}

// ScopeUsers limits users to the caller's agency unless super admin
func ScopeUsers(id Identity) Scope {
	return agencyColumnScope(id, "users.agency_id")
}

// ScopeLocations limits locations to the caller's agency unless super admin
func ScopeLocations(id Identity) Scope {
	return agencyColumnScope(id, "locations.agency_id")
}

// ScopeProducts limits products to the caller's agency unless super admin
func ScopeProducts(id Identity) Scope {
	return agencyColumnScope(id, "products.agency_id")
}

// ScopeCustomers limits customers through their location's agency
func ScopeCustomers(id Identity) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if id.IsSuperAdmin() {
			return db
		}
		if id.AgencyID == nil {
			return denyAll(db)
		}
		return db.Joins("JOIN locations ON locations.id = customers.location_id").
			Where("locations.agency_id = ?", *id.AgencyID)
	}
}

// ScopeOrders limits salespersons to their own orders and agency staff to
// their agency's orders
func ScopeOrders(id Identity) Scope {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case id.IsSuperAdmin():
			return db
		case id.IsSalesperson():
			return db.Where("orders.salesperson_id = ?", id.UserID)
		case id.AgencyID == nil:
			return denyAll(db)
		default:
			return db.Where("orders.agency_id = ?", *id.AgencyID)
		}
	}
}
