package testutil

import (
	"testing"
	"time"

	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plain-text password of every fixture user
const Password = "secret123"

// TestConfig returns a configuration suitable for in-process tests and
// installs it as the current configuration
func TestConfig() *config.Config {
	cfg := &config.Config{
		DatabaseURL:       "sqlite::memory:",
		Port:              "8080",
		GoEnv:             "test",
		JWTSecret:         "integration-secret",
		JWTIssuer:         "agency-sales-api",
		JWTAudience:       "agency-sales-clients",
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   24 * time.Hour,
		SessionCookieName: "session",
		LogLevel:          "error",
		ImportMaxErrors:   10,
	}
	config.SetConfig(cfg)
	return cfg
}

// SetupTestDB opens a migrated in-memory SQLite database and installs it as
// the application database
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every connection to ":memory:" is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	config.SetDB(db)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateAgency inserts an active agency
func CreateAgency(t *testing.T, db *gorm.DB, name, code string) *models.Agency {
	t.Helper()
	agency := &models.Agency{Name: name, Code: code, IsActive: true}
	require.NoError(t, db.Create(agency).Error)
	return agency
}

// CreateUser inserts an active user whose password is Password
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role, agencyID *uint) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		FirstName:    username,
		Role:         role,
		AgencyID:     agencyID,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateLocation inserts an active location of agencyID
func CreateLocation(t *testing.T, db *gorm.DB, name string, agencyID uint) *models.Location {
	t.Helper()
	location := &models.Location{Name: name, City: "Springfield", AgencyID: agencyID, IsActive: true}
	require.NoError(t, db.Create(location).Error)
	return location
}

// CreateCustomer inserts an active customer at locationID
func CreateCustomer(t *testing.T, db *gorm.DB, name string, locationID uint) *models.Customer {
	t.Helper()
	customer := &models.Customer{Name: name, LocationID: locationID, IsActive: true}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

// CreateProduct inserts an active product of agencyID
func CreateProduct(t *testing.T, db *gorm.DB, name, sku, price string, agencyID uint) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:          name,
		SKU:           sku,
		Price:         decimal.RequireFromString(price),
		StockQuantity: 100,
		Category:      "General",
		AgencyID:      agencyID,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// Tenant is a minimal agency with one user per role, a location, a
// customer and a product
type Tenant struct {
	Agency      *models.Agency
	Admin       *models.User
	Staff       *models.User
	Salesperson *models.User
	Location    *models.Location
	Customer    *models.Customer
	Product     *models.Product
}

// CreateTenant builds a Tenant whose usernames and SKU are prefixed with prefix
func CreateTenant(t *testing.T, db *gorm.DB, prefix, code string) *Tenant {
	t.Helper()
	agency := CreateAgency(t, db, prefix+" Agency", code)
	location := CreateLocation(t, db, prefix+" Office", agency.ID)
	return &Tenant{
		Agency:      agency,
		Admin:       CreateUser(t, db, prefix+"_admin", models.RoleAgencyAdmin, &agency.ID),
		Staff:       CreateUser(t, db, prefix+"_staff", models.RoleStaff, &agency.ID),
		Salesperson: CreateUser(t, db, prefix+"_sales", models.RoleSalesperson, &agency.ID),
		Location:    location,
		Customer:    CreateCustomer(t, db, prefix+" Customer", location.ID),
		Product:     CreateProduct(t, db, prefix+" Widget", prefix+"-W1", "9.99", agency.ID),
	}
}
