package services

import (
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AgencyOrderCount ranks agencies by number of orders
type AgencyOrderCount struct {
	AgencyID   uint   `json:"agency_id"`
	Name       string `json:"name"`
	OrderCount int64  `json:"order_count"`
}

// DashboardStats summarizes the data visible to one caller
type DashboardStats struct {
	TotalOrders    int64                        `json:"total_orders"`
	PendingOrders  int64                        `json:"pending_orders"`
	TotalRevenue   decimal.Decimal              `json:"total_revenue"`
	OrdersByStatus map[models.OrderStatus]int64 `json:"orders_by_status"`
	TotalCustomers int64                        `json:"total_customers"`
	TotalProducts  int64                        `json:"total_products"`
	TotalLocations int64                        `json:"total_locations"`
	RecentOrders   []models.Order               `json:"recent_orders"`

	TotalAgencies  int64                `json:"total_agencies,omitempty"`
	ActiveAgencies int64                `json:"active_agencies,omitempty"`
	TotalUsers     int64                `json:"total_users,omitempty"`
	ActiveUsers    int64                `json:"active_users,omitempty"`
	TopAgencies    []AgencyOrderCount   `json:"top_agencies,omitempty"`
	RecentActivity []models.ActivityLog `json:"recent_activity,omitempty"`
}

// DashboardService computes dashboard figures through the same scopes as the lists
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a DashboardService backed by db
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Stats returns the dashboard figures for id. Agency and user totals, the
// agency ranking and recent activity are filled in for super admins only.
func (s *DashboardService) Stats(id Identity) (*DashboardStats, error) {
	stats := &DashboardStats{OrdersByStatus: map[models.OrderStatus]int64{}}
	orders := func() *gorm.DB { return s.db.Model(&models.Order{}).Scopes(ScopeOrders(id)) }

	if err := orders().Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}

	var byStatus []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := orders().Select("orders.status AS status, COUNT(*) AS count").Group("orders.status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.OrdersByStatus[row.Status] = row.Count
	}
	stats.PendingOrders = stats.OrdersByStatus[models.OrderPending]

	if err := orders().
		Where("orders.status <> ?", models.OrderCancelled).
		Select("COALESCE(SUM(orders.total_amount), 0)").
		Row().Scan(&stats.TotalRevenue); err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Customer{}).Scopes(ScopeCustomers(id)).Count(&stats.TotalCustomers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Product{}).Scopes(ScopeProducts(id)).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Location{}).Scopes(ScopeLocations(id)).Count(&stats.TotalLocations).Error; err != nil {
		return nil, err
	}

	err := s.db.Scopes(ScopeOrders(id)).
		Preload("Customer").
		Preload("Salesperson").
		Order("orders.created_at DESC").
		Order("orders.id DESC").
		Limit(5).
		Find(&stats.RecentOrders).Error
	if err != nil {
		return nil, err
	}

	if id.IsSuperAdmin() {
		if err := s.fillSystemStats(stats); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *DashboardService) fillSystemStats(stats *DashboardStats) error {
	if err := s.db.Model(&models.Agency{}).Count(&stats.TotalAgencies).Error; err != nil {
		return err
	}
	if err := s.db.Model(&models.Agency{}).Where("is_active = ?", true).Count(&stats.ActiveAgencies).Error; err != nil {
		return err
	}
	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return err
	}
	if err := s.db.Model(&models.User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error; err != nil {
		return err
	}

	err := s.db.Model(&models.Agency{}).
		Select("agencies.id AS agency_id, agencies.name AS name, COUNT(orders.id) AS order_count").
		Joins("JOIN orders ON orders.agency_id = agencies.id").
		Group("agencies.id, agencies.name").
		Order("order_count DESC").
		Limit(5).
		Scan(&stats.TopAgencies).Error
	if err != nil {
		return err
	}

	stats.RecentActivity, err = NewAuditService(s.db, nil).Recent(10)
	return err
}
