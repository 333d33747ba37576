package services

import (
	"errors"
	"strings"

	"github.com/kendall-kelly/agency-sales-api/models"
	"gorm.io/gorm"
)

// AgencyInput holds the editable fields of an agency
type AgencyInput struct {
	Name    string `json:"name" form:"name"`
	Code    string `json:"code" form:"code"`
	Address string `json:"address" form:"address"`
	Phone   string `json:"phone" form:"phone"`
	Email   string `json:"email" form:"email"`
}

func (in AgencyInput) normalize() AgencyInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

func (in AgencyInput) validate() error {
	if in.Name == "" {
		return validationError("name", "Name is required")
	}
	if in.Code == "" {
		return validationError("code", "Code is required")
	}
	return nil
}

// AgencyService manages tenants
type AgencyService struct {
	db *gorm.DB
}

// NewAgencyService creates an AgencyService backed by db
func NewAgencyService(db *gorm.DB) *AgencyService {
	return &AgencyService{db: db}
}

// List returns the agencies visible to id, ordered by name
func (s *AgencyService) List(id Identity, filter ListFilter) ([]models.Agency, error) {
	query := s.db.Model(&models.Agency{}).Scopes(ScopeAgencies(id))
	query = filter.applyActive(query, "agencies.is_active")
	query = filter.applySearch(query, "agencies.name", "agencies.code")
	query = filter.applyDateRange(query, "agencies.created_at")

	var agencies []models.Agency
	if err := query.Order("agencies.name").Find(&agencies).Error; err != nil {
		return nil, err
	}
	return agencies, nil
}

// Get loads one agency, rejecting agencies outside the caller's scope
func (s *AgencyService) Get(id Identity, agencyID uint) (*models.Agency, error) {
	var agency models.Agency
	if err := findByID(s.db, &agency, agencyID, "agency"); err != nil {
		return nil, err
	}
	if err := id.authorizeAgency(agency.ID); err != nil {
		return nil, err
	}
	return &agency, nil
}

// Create adds a new agency. Only super admins may create agencies.
func (s *AgencyService) Create(id Identity, in AgencyInput) (*models.Agency, error) {
	if !id.IsSuperAdmin() {
		return nil, ErrNotPermitted
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(in.Code, 0); err != nil {
		return nil, err
	}

	agency := models.Agency{
		Name:     in.Name,
		Code:     in.Code,
		Address:  in.Address,
		Phone:    in.Phone,
		Email:    in.Email,
		IsActive: true,
	}
	if err := s.db.Create(&agency).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, agencyCodeConflict()
		}
		return nil, err
	}
	return &agency, nil
}

// Update changes an agency's details. Super admins may edit any agency,
// agency admins only their own.
func (s *AgencyService) Update(id Identity, agencyID uint, in AgencyInput) (*models.Agency, error) {
	agency, err := s.Get(id, agencyID)
	if err != nil {
		return nil, err
	}
	if !id.IsSuperAdmin() && id.Role != models.RoleAgencyAdmin {
		return nil, ErrNotPermitted
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(in.Code, agency.ID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":    in.Name,
		"code":    in.Code,
		"address": in.Address,
		"phone":   in.Phone,
		"email":   in.Email,
	}
	if err := updateRow(s.db, &models.Agency{}, agency.ID, updates); err != nil {
		if isUniqueViolation(err) {
			return nil, agencyCodeConflict()
		}
		return nil, err
	}
	return s.Get(id, agency.ID)
}

// ToggleStatus flips the agency's active flag (super admin only)
func (s *AgencyService) ToggleStatus(id Identity, agencyID uint) (*models.Agency, error) {
	if !id.IsSuperAdmin() {
		return nil, ErrNotPermitted
	}
	agency, err := s.Get(id, agencyID)
	if err != nil {
		return nil, err
	}
	agency.IsActive = !agency.IsActive
	if err := updateRow(s.db, &models.Agency{}, agency.ID, map[string]interface{}{"is_active": agency.IsActive}); err != nil {
		return nil, err
	}
	return agency, nil
}

// Delete removes an agency that owns no users, locations, products or
// orders (super admin only)
func (s *AgencyService) Delete(id Identity, agencyID uint) (*models.Agency, error) {
	if !id.IsSuperAdmin() {
		return nil, ErrNotPermitted
	}
	agency, err := s.Get(id, agencyID)
	if err != nil {
		return nil, err
	}

	err = ensureNoDependents(s.db, agency.ID,
		dependency{&models.User{}, "agency_id = ?", "Cannot delete agency with existing users"},
		dependency{&models.Location{}, "agency_id = ?", "Cannot delete agency with existing locations"},
		dependency{&models.Product{}, "agency_id = ?", "Cannot delete agency with existing products"},
		dependency{&models.Order{}, "agency_id = ?", "Cannot delete agency with existing orders"},
	)
	if err != nil {
		return nil, err
	}

	if err := deleteGuarded(s.db, agency, "Cannot delete agency that is still referenced"); err != nil {
		return nil, err
	}
	return agency, nil
}

// FindByCode returns the agency with the given code, if any
func (s *AgencyService) FindByCode(code string) (*models.Agency, error) {
	return findAgencyByCode(s.db, code)
}

func (s *AgencyService) ensureCodeFree(code string, exceptID uint) error {
	var count int64
	query := s.db.Model(&models.Agency{}).Where("code = ?", code)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return agencyCodeConflict()
	}
	return nil
}

func agencyCodeConflict() *Error {
	return &Error{Kind: KindConflict, Code: "AGENCY_CODE_EXISTS", Field: "code", Message: "Agency code already exists"}
}

func findAgencyByCode(db *gorm.DB, code string) (*models.Agency, error) {
	var agency models.Agency
	err := db.Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&agency).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("agency")
		}
		return nil, err
	}
	return &agency, nil
}
