package models

import "time"

// Location is a branch or territory of an agency; customers belong to one
type Location struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;index" json:"name"`
	Address   string    `gorm:"type:text" json:"address"`
	City      string    `gorm:"size:50" json:"city"`
	State     string    `gorm:"size:50" json:"state"`
	ZipCode   string    `gorm:"size:10" json:"zip_code"`
	Phone     string    `gorm:"size:20" json:"phone"`
	AgencyID  uint      `gorm:"not null;index" json:"agency_id"`
	Agency    *Agency   `gorm:"foreignKey:AgencyID" json:"agency,omitempty"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Location model
func (Location) TableName() string {
	return "locations"
}
