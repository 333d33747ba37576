package services

import (
	"strings"

	"github.com/kendall-kelly/agency-sales-api/models"
	"gorm.io/gorm"
)

// CustomerInput holds the editable fields of a customer
type CustomerInput struct {
	Name       string `json:"name" form:"name"`
	Email      string `json:"email" form:"email"`
	Phone      string `json:"phone" form:"phone"`
	Address    string `json:"address" form:"address"`
	LocationID uint   `json:"location_id" form:"location_id"`
}

// CustomerService manages customers. A customer's agency is that of its location.
type CustomerService struct {
	db *gorm.DB
}

// NewCustomerService creates a CustomerService backed by db
func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{db: db}
}

// List returns the customers visible to id
func (s *CustomerService) List(id Identity, filter ListFilter) ([]models.Customer, error) {
	query := s.db.Model(&models.Customer{}).
		Preload("Location").
		Preload("Location.Agency").
		Scopes(ScopeCustomers(id))
	if filter.AgencyID != 0 && id.IsSuperAdmin() {
		query = query.Where("customers.location_id IN (?)",
			s.db.Model(&models.Location{}).Select("id").Where("agency_id = ?", filter.AgencyID))
	}
	if filter.LocationID != 0 {
		query = query.Where("customers.location_id = ?", filter.LocationID)
	}
	query = filter.applyActive(query, "customers.is_active")
	query = filter.applySearch(query, "customers.name", "customers.email", "customers.phone")
	query = filter.applyDateRange(query, "customers.created_at")

	var customers []models.Customer
	if err := query.Order("customers.name").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// ListByLocation returns the active customers of one location, used by order forms
func (s *CustomerService) ListByLocation(id Identity, locationID uint) ([]models.Customer, error) {
	location, err := NewLocationService(s.db).Get(id, locationID)
	if err != nil {
		return nil, err
	}
	var customers []models.Customer
	err = s.db.Where("location_id = ? AND is_active = ?", location.ID, true).
		Order("name").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// Get loads one customer within the caller's scope
func (s *CustomerService) Get(id Identity, customerID uint) (*models.Customer, error) {
	var customer models.Customer
	db := s.db.Preload("Location").Preload("Location.Agency")
	if err := findByID(db, &customer, customerID, "customer"); err != nil {
		return nil, err
	}
	if customer.Location == nil {
		return nil, notFoundError("location")
	}
	if err := id.authorizeAgency(customer.Location.AgencyID); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Create adds a customer to a location in the caller's scope
func (s *CustomerService) Create(id Identity, in CustomerInput) (*models.Customer, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validationError("name", "Name is required")
	}
	if _, err := s.scopedLocation(id, in.LocationID); err != nil {
		return nil, err
	}

	customer := models.Customer{
		Name:       in.Name,
		Email:      strings.TrimSpace(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		Address:    strings.TrimSpace(in.Address),
		LocationID: in.LocationID,
		IsActive:   true,
	}
	if err := s.db.Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// Update edits a customer. A new location must also be within scope.
func (s *CustomerService) Update(id Identity, customerID uint, in CustomerInput) (*models.Customer, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	customer, err := s.Get(id, customerID)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validationError("name", "Name is required")
	}
	if in.LocationID == 0 {
		in.LocationID = customer.LocationID
	}
	if in.LocationID != customer.LocationID {
		if _, err := s.scopedLocation(id, in.LocationID); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{
		"name":        in.Name,
		"email":       strings.TrimSpace(in.Email),
		"phone":       strings.TrimSpace(in.Phone),
		"address":     strings.TrimSpace(in.Address),
		"location_id": in.LocationID,
	}
	if err := updateRow(s.db, &models.Customer{}, customer.ID, updates); err != nil {
		return nil, err
	}
	return s.Get(id, customer.ID)
}

// ToggleStatus flips the customer's active flag
func (s *CustomerService) ToggleStatus(id Identity, customerID uint) (*models.Customer, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	customer, err := s.Get(id, customerID)
	if err != nil {
		return nil, err
	}
	customer.IsActive = !customer.IsActive
	if err := updateRow(s.db, &models.Customer{}, customer.ID, map[string]interface{}{"is_active": customer.IsActive}); err != nil {
		return nil, err
	}
	return customer, nil
}

// Delete removes a customer that has no orders
func (s *CustomerService) Delete(id Identity, customerID uint) (*models.Customer, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	customer, err := s.Get(id, customerID)
	if err != nil {
		return nil, err
	}

	var orders int64
	if err := s.db.Model(&models.Order{}).Where("customer_id = ?", customer.ID).Count(&orders).Error; err != nil {
		return nil, err
	}
	if orders > 0 {
		return nil, dependentError("Cannot delete customer with existing orders")
	}

	if err := deleteGuarded(s.db, customer, "Cannot delete customer with existing orders"); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *CustomerService) scopedLocation(id Identity, locationID uint) (*models.Location, error) {
	if locationID == 0 {
		return nil, validationError("location_id", "Location is required")
	}
	return NewLocationService(s.db).Get(id, locationID)
}
