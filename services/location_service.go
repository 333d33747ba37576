package services

import (
	"strings"

	"github.com/kendall-kelly/agency-sales-api/models"
	"gorm.io/gorm"
)

// LocationInput holds the editable fields of a location
type LocationInput struct {
	Name     string `json:"name" form:"name"`
	Address  string `json:"address" form:"address"`
	City     string `json:"city" form:"city"`
	State    string `json:"state" form:"state"`
	ZipCode  string `json:"zip_code" form:"zip_code"`
	Phone    string `json:"phone" form:"phone"`
	AgencyID uint   `json:"agency_id" form:"agency_id"`
}

// LocationService manages agency locations
type LocationService struct {
	db *gorm.DB
}

// NewLocationService creates a LocationService backed by db
func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{db: db}
}

// List returns the locations visible to id
func (s *LocationService) List(id Identity, filter ListFilter) ([]models.Location, error) {
	query := s.db.Model(&models.Location{}).Preload("Agency").Scopes(ScopeLocations(id))
	query = filter.applyAgency(query, id, "locations.agency_id")
	query = filter.applyActive(query, "locations.is_active")
	query = filter.applySearch(query, "locations.name", "locations.city")
	query = filter.applyDateRange(query, "locations.created_at")

	var locations []models.Location
	if err := query.Order("locations.name").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// Get loads one location within the caller's scope
func (s *LocationService) Get(id Identity, locationID uint) (*models.Location, error) {
	var location models.Location
	if err := findByID(s.db.Preload("Agency"), &location, locationID, "location"); err != nil {
		return nil, err
	}
	if err := id.authorizeAgency(location.AgencyID); err != nil {
		return nil, err
	}
	return &location, nil
}

// Create adds a location to the caller's agency, or to any agency for super admins
func (s *LocationService) Create(id Identity, in LocationInput) (*models.Location, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validationError("name", "Name is required")
	}
	agencyID, err := id.defaultAgency(in.AgencyID)
	if err != nil {
		return nil, err
	}
	var agency models.Agency
	if err := findByID(s.db, &agency, agencyID, "agency"); err != nil {
		return nil, err
	}

	location := models.Location{
		Name:     in.Name,
		Address:  strings.TrimSpace(in.Address),
		City:     strings.TrimSpace(in.City),
		State:    strings.TrimSpace(in.State),
		ZipCode:  strings.TrimSpace(in.ZipCode),
		Phone:    strings.TrimSpace(in.Phone),
		AgencyID: agency.ID,
		IsActive: true,
	}
	if err := s.db.Create(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

// Update edits a location. Only super admins may move it to another agency.
func (s *LocationService) Update(id Identity, locationID uint, in LocationInput) (*models.Location, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	location, err := s.Get(id, locationID)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validationError("name", "Name is required")
	}
	if in.AgencyID == 0 {
		in.AgencyID = location.AgencyID
	}
	agencyID, err := id.defaultAgency(in.AgencyID)
	if err != nil {
		return nil, err
	}
	if agencyID != location.AgencyID {
		var agency models.Agency
		if err := findByID(s.db, &agency, agencyID, "agency"); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{
		"name":      in.Name,
		"address":   strings.TrimSpace(in.Address),
		"city":      strings.TrimSpace(in.City),
		"state":     strings.TrimSpace(in.State),
		"zip_code":  strings.TrimSpace(in.ZipCode),
		"phone":     strings.TrimSpace(in.Phone),
		"agency_id": agencyID,
	}
	if err := updateRow(s.db, &models.Location{}, location.ID, updates); err != nil {
		return nil, err
	}
	return s.Get(id, location.ID)
}

// ToggleStatus flips the location's active flag
func (s *LocationService) ToggleStatus(id Identity, locationID uint) (*models.Location, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	location, err := s.Get(id, locationID)
	if err != nil {
		return nil, err
	}
	location.IsActive = !location.IsActive
	if err := updateRow(s.db, &models.Location{}, location.ID, map[string]interface{}{"is_active": location.IsActive}); err != nil {
		return nil, err
	}
	return location, nil
}

// Delete removes a location that has no customers
func (s *LocationService) Delete(id Identity, locationID uint) (*models.Location, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	location, err := s.Get(id, locationID)
	if err != nil {
		return nil, err
	}

	var customers int64
	if err := s.db.Model(&models.Customer{}).Where("location_id = ?", location.ID).Count(&customers).Error; err != nil {
		return nil, err
	}
	if customers > 0 {
		return nil, dependentError("Cannot delete location with existing customers")
	}

	if err := deleteGuarded(s.db, location, "Cannot delete location with existing customers"); err != nil {
		return nil, err
	}
	return location, nil
}
