package models

import (
	"strings"
	"time"
)

// User represents an account in the system. Super admins have no agency.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:256;not null" json:"-"`
	FirstName    string     `gorm:"size:50" json:"first_name"`
	LastName     string     `gorm:"size:50" json:"last_name"`
	Role         Role       `gorm:"size:20;not null;index" json:"role"`
	AgencyID     *uint      `gorm:"index" json:"agency_id"` // nil only for super_admin
	Agency       *Agency    `gorm:"foreignKey:AgencyID" json:"agency,omitempty"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name, falling back to the username
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
