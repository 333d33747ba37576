package services

import (
	"errors"
	"strings"

	"github.com/kendall-kelly/agency-sales-api/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength is the shortest password accepted on create or reset
const MinPasswordLength = 6

// CreateUserInput holds the fields needed to open an account
type CreateUserInput struct {
	Username  string      `json:"username" form:"username"`
	Email     string      `json:"email" form:"email"`
	Password  string      `json:"password" form:"password"`
	FirstName string      `json:"first_name" form:"first_name"`
	LastName  string      `json:"last_name" form:"last_name"`
	Role      models.Role `json:"role" form:"role"`
	AgencyID  uint        `json:"agency_id" form:"agency_id"`
}

// UpdateUserInput holds the editable fields of an account. An empty
// NewPassword leaves the password unchanged.
type UpdateUserInput struct {
	Email       string      `json:"email" form:"email"`
	FirstName   string      `json:"first_name" form:"first_name"`
	LastName    string      `json:"last_name" form:"last_name"`
	Role        models.Role `json:"role" form:"role"`
	AgencyID    uint        `json:"agency_id" form:"agency_id"`
	NewPassword string      `json:"new_password" form:"new_password"`
}

// UserService manages accounts
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService backed by db
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return validationError("password", "Password must be at least 6 characters long")
	}
	return nil
}

// List returns the accounts the caller administers
func (s *UserService) List(id Identity, filter ListFilter) ([]models.User, error) {
	if !id.CanManageUsers() {
		return nil, ErrNotPermitted
	}
	query := s.db.Model(&models.User{}).Preload("Agency").Scopes(ScopeUsers(id))
	query = filter.applyAgency(query, id, "users.agency_id")
	query = filter.applyActive(query, "users.is_active")
	query = filter.applySearch(query, "users.username", "users.email", "users.first_name", "users.last_name")
	query = filter.applyDateRange(query, "users.created_at")

	var users []models.User
	if err := query.Order("users.username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Get loads one account. Users may always read their own account.
func (s *UserService) Get(id Identity, userID uint) (*models.User, error) {
	var user models.User
	if err := findByID(s.db.Preload("Agency"), &user, userID, "user"); err != nil {
		return nil, err
	}
	if user.ID == id.UserID {
		return &user, nil
	}
	if !id.CanManageUsers() {
		return nil, ErrNotPermitted
	}
	if !id.IsSuperAdmin() && (user.AgencyID == nil || !id.InAgency(*user.AgencyID)) {
		return nil, ErrNotPermitted
	}
	return &user, nil
}

// Create opens an account. Agency admins may only create staff and
// salespersons inside their own agency.
func (s *UserService) Create(id Identity, in CreateUserInput) (*models.User, error) {
	if !id.CanManageUsers() {
		return nil, ErrNotPermitted
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		return nil, validationError("username", "Username is required")
	}
	if in.Email == "" {
		return nil, validationError("email", "Email is required")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	agencyID, err := s.resolveRoleAndAgency(id, in.Role, in.AgencyID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(in.Username, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		AgencyID:     agencyID,
		IsActive:     true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflictError("USER_EXISTS", "A user with this username or email already exists")
		}
		return nil, err
	}
	return &user, nil
}

// Update edits an account's profile, role and optionally its password
func (s *UserService) Update(id Identity, userID uint, in UpdateUserInput) (*models.User, error) {
	user, err := s.managedUser(id, userID)
	if err != nil {
		return nil, err
	}

	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" {
		return nil, validationError("email", "Email is required")
	}
	if in.Role == "" {
		in.Role = user.Role
	}
	requestedAgency := in.AgencyID
	if requestedAgency == 0 && user.AgencyID != nil {
		requestedAgency = *user.AgencyID
	}
	agencyID := user.AgencyID
	if !(user.ID == id.UserID && in.Role == user.Role) {
		if agencyID, err = s.resolveRoleAndAgency(id, in.Role, requestedAgency); err != nil {
			return nil, err
		}
	}
	if user.Role == models.RoleSuperAdmin && in.Role != models.RoleSuperAdmin && user.IsActive {
		if err := s.ensureAnotherActiveSuperAdmin(user.ID); err != nil {
			return nil, err
		}
	}
	if err := s.ensureUnique("", in.Email, user.ID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"email":      in.Email,
		"first_name": strings.TrimSpace(in.FirstName),
		"last_name":  strings.TrimSpace(in.LastName),
		"role":       in.Role,
		"agency_id":  agencyID,
	}
	if in.NewPassword != "" {
		if err := validatePassword(in.NewPassword); err != nil {
			return nil, err
		}
		hash, err := HashPassword(in.NewPassword)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}

	if err := updateRow(s.db, &models.User{}, user.ID, updates); err != nil {
		if isUniqueViolation(err) {
			return nil, conflictError("EMAIL_EXISTS", "A user with this email already exists")
		}
		return nil, err
	}
	return s.reload(user.ID)
}

// ToggleStatus activates or deactivates an account. The last active super
// admin can never be deactivated.
func (s *UserService) ToggleStatus(id Identity, userID uint) (*models.User, error) {
	user, err := s.managedUser(id, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleSuperAdmin && user.IsActive {
		if err := s.ensureAnotherActiveSuperAdmin(user.ID); err != nil {
			return nil, err
		}
	}
	user.IsActive = !user.IsActive
	if err := updateRow(s.db, &models.User{}, user.ID, map[string]interface{}{"is_active": user.IsActive}); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword sets a new password after checking its length and confirmation
func (s *UserService) ResetPassword(id Identity, userID uint, password, confirm string) (*models.User, error) {
	user, err := s.managedUser(id, userID)
	if err != nil {
		return nil, err
	}
	if password != confirm {
		return nil, validationError("confirm_password", "Passwords do not match")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := updateRow(s.db, &models.User{}, user.ID, map[string]interface{}{"password_hash": hash}); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes an account that has no orders and no activity history.
// Accounts that have been used are deactivated instead.
func (s *UserService) Delete(id Identity, userID uint) (*models.User, error) {
	user, err := s.managedUser(id, userID)
	if err != nil {
		return nil, err
	}
	if user.ID == id.UserID {
		return nil, validationError("id", "You cannot delete your own account")
	}
	if user.Role == models.RoleSuperAdmin && user.IsActive {
		if err := s.ensureAnotherActiveSuperAdmin(user.ID); err != nil {
			return nil, err
		}
	}

	err = ensureNoDependents(s.db, user.ID,
		dependency{&models.Order{}, "salesperson_id = ?", "Cannot delete user with existing orders"},
		dependency{&models.ActivityLog{}, "user_id = ?", "Cannot delete user with activity history"},
	)
	if err != nil {
		return nil, err
	}

	if err := deleteGuarded(s.db, user, "Cannot delete user that is still referenced"); err != nil {
		return nil, err
	}
	return user, nil
}

// SeedSuperAdmin creates the default super admin when none exists yet.
// It reports whether an account was created.
func (s *UserService) SeedSuperAdmin(username, email, password string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Super",
		LastName:     "Admin",
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}

// managedUser loads a user the caller may modify. Agency admins cannot
// modify other agency admins.
func (s *UserService) managedUser(id Identity, userID uint) (*models.User, error) {
	if !id.CanManageUsers() {
		return nil, ErrNotPermitted
	}
	user, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}
	if id.IsSuperAdmin() {
		return user, nil
	}
	if user.AgencyID == nil || !id.InAgency(*user.AgencyID) {
		return nil, ErrNotPermitted
	}
	if user.Role == models.RoleAgencyAdmin && user.ID != id.UserID {
		return nil, forbidden("You cannot modify other agency administrators")
	}
	return user, nil
}

// resolveRoleAndAgency validates a role assignment and returns the agency
// the account belongs to (nil for super admins).
func (s *UserService) resolveRoleAndAgency(id Identity, role models.Role, requested uint) (*uint, error) {
	if !role.Valid() {
		return nil, validationError("role", "Invalid role")
	}
	if !id.IsSuperAdmin() {
		if role != models.RoleStaff && role != models.RoleSalesperson {
			return nil, forbidden("You can only assign staff and salesperson roles")
		}
		agencyID, err := id.defaultAgency(requested)
		if err != nil {
			return nil, err
		}
		return &agencyID, nil
	}

	if !role.RequiresAgency() {
		return nil, nil
	}
	if requested == 0 {
		return nil, validationError("agency_id", "Agency is required for this role")
	}
	var agency models.Agency
	if err := findByID(s.db, &agency, requested, "agency"); err != nil {
		return nil, err
	}
	return &agency.ID, nil
}

func (s *UserService) ensureUnique(username, email string, exceptID uint) error {
	if username != "" {
		var count int64
		if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &Error{Kind: KindConflict, Code: "USERNAME_EXISTS", Field: "username", Message: "Username already exists"}
		}
	}
	var count int64
	query := s.db.Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &Error{Kind: KindConflict, Code: "EMAIL_EXISTS", Field: "email", Message: "Email already exists"}
	}
	return nil
}

func (s *UserService) ensureAnotherActiveSuperAdmin(exceptID uint) error {
	var count int64
	err := s.db.Model(&models.User{}).
		Where("role = ? AND is_active = ? AND id <> ?", models.RoleSuperAdmin, true, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return conflictError("LAST_SUPER_ADMIN", "Cannot remove the last active super admin")
	}
	return nil
}

func (s *UserService) reload(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Agency").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("user")
		}
		return nil, err
	}
	return &user, nil
}
