package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is an agency catalog entry. SKU is unique across all agencies.
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	SKU           string          `gorm:"column:sku;size:50;uniqueIndex;not null" json:"sku"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Cost          decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"cost"`
	StockQuantity int             `gorm:"not null;default:0" json:"stock_quantity"`
	Category      string          `gorm:"size:50;index" json:"category"`
	AgencyID      uint            `gorm:"not null;index" json:"agency_id"`
	Agency        *Agency         `gorm:"foreignKey:AgencyID" json:"agency,omitempty"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
