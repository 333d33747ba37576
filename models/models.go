package models

// All returns every model, in dependency order, for auto-migration
func All() []interface{} {
	return []interface{}{
		&Agency{},
		&User{},
		&Location{},
		&Customer{},
		&Product{},
		&Order{},
		&OrderItem{},
		&ActivityLog{},
	}
}
