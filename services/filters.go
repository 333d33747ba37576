package services

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const filterDateLayout = "2006-01-02"

// ListFilter carries the optional list filters accepted by the list endpoints.
// Zero values mean "no filter".
type ListFilter struct {
	DateFrom      string
	DateTo        string
	AgencyID      uint
	LocationID    uint
	CustomerID    uint
	SalespersonID uint
	Category      string
	Status        string
	Search        string
}

// applyDateRange filters column to [date_from, date_to], both inclusive.
// Unparseable dates are ignored.
func (f ListFilter) applyDateRange(db *gorm.DB, column string) *gorm.DB {
	if from, err := time.Parse(filterDateLayout, f.DateFrom); err == nil {
		db = db.Where(column+" >= ?", from)
	}
	if to, err := time.Parse(filterDateLayout, f.DateTo); err == nil {
		db = db.Where(column+" < ?", to.AddDate(0, 0, 1))
	}
	return db
}

// applyAgency filters column by agency, honoured for super admins only since
// everyone else is already pinned to their own agency by scope.
func (f ListFilter) applyAgency(db *gorm.DB, id Identity, column string) *gorm.DB {
	if f.AgencyID != 0 && id.IsSuperAdmin() {
		db = db.Where(column+" = ?", f.AgencyID)
	}
	return db
}

// applyActive interprets Status as "active" or "inactive" for catalog entities
func (f ListFilter) applyActive(db *gorm.DB, column string) *gorm.DB {
	switch f.Status {
	case "active":
		db = db.Where(column+" = ?", true)
	case "inactive":
		db = db.Where(column+" = ?", false)
	}
	return db
}

func (f ListFilter) applySearch(db *gorm.DB, columns ...string) *gorm.DB {
	if f.Search == "" || len(columns) == 0 {
		return db
	}
	pattern := "%" + strings.ToLower(f.Search) + "%"
	conds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, column := range columns {
		conds[i] = "LOWER(" + column + ") LIKE ?"
		args[i] = pattern
	}
	return db.Where("("+strings.Join(conds, " OR ")+")", args...)
}
