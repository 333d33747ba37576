package services

import (
	"testing"

	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const fixturePassword = "secret123"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// enableForeignKeys turns on SQLite foreign key enforcement, which is off by
// default, for the single connection behind db
func enableForeignKeys(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
}

// world is a two-agency data set shared by the service tests
type world struct {
	db *gorm.DB

	agencyA, agencyB models.Agency

	super, adminA, staffA, salesA, salesA2, adminB models.User

	locA, locB   models.Location
	custA, custB models.Customer

	prodA, prodA2, prodInactive, prodB models.Product
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{db: setupTestDB(t)}

	w.agencyA = mustCreate(t, w.db, models.Agency{Name: "Alpha Sales", Code: "AAA", IsActive: true})
	w.agencyB = mustCreate(t, w.db, models.Agency{Name: "Beta Sales", Code: "BBB", IsActive: true})

	w.super = w.user(t, "root", models.RoleSuperAdmin, nil)
	w.adminA = w.user(t, "admin_a", models.RoleAgencyAdmin, &w.agencyA.ID)
	w.staffA = w.user(t, "staff_a", models.RoleStaff, &w.agencyA.ID)
	w.salesA = w.user(t, "sales_a", models.RoleSalesperson, &w.agencyA.ID)
	w.salesA2 = w.user(t, "sales_a2", models.RoleSalesperson, &w.agencyA.ID)
	w.adminB = w.user(t, "admin_b", models.RoleAgencyAdmin, &w.agencyB.ID)

	w.locA = mustCreate(t, w.db, models.Location{Name: "Downtown", City: "Springfield", AgencyID: w.agencyA.ID, IsActive: true})
	w.locB = mustCreate(t, w.db, models.Location{Name: "Harbor", City: "Shelbyville", AgencyID: w.agencyB.ID, IsActive: true})

	w.custA = mustCreate(t, w.db, models.Customer{Name: "Acme Corp", Email: "buyer@acme.test", LocationID: w.locA.ID, IsActive: true})
	w.custB = mustCreate(t, w.db, models.Customer{Name: "Globex", LocationID: w.locB.ID, IsActive: true})

	w.prodA = w.product(t, "Widget", "A-1", "9.99", w.agencyA.ID, true)
	w.prodA2 = w.product(t, "Gadget", "A-2", "20.00", w.agencyA.ID, true)
	w.prodInactive = w.product(t, "Retired", "A-OLD", "5.00", w.agencyA.ID, false)
	w.prodB = w.product(t, "Sprocket", "B-1", "3.50", w.agencyB.ID, true)

	return w
}

func (w *world) user(t *testing.T, username string, role models.Role, agencyID *uint) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(fixturePassword), bcrypt.MinCost)
	require.NoError(t, err)
	return mustCreate(t, w.db, models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		FirstName:    username,
		Role:         role,
		AgencyID:     agencyID,
		IsActive:     true,
	})
}

func (w *world) product(t *testing.T, name, sku, price string, agencyID uint, active bool) models.Product {
	t.Helper()
	p := mustCreate(t, w.db, models.Product{
		Name:     name,
		SKU:      sku,
		Price:    decimal.RequireFromString(price),
		Category: "General",
		AgencyID: agencyID,
		IsActive: true,
	})
	if !active {
		require.NoError(t, w.db.Model(&p).Update("is_active", false).Error)
		p.IsActive = false
	}
	return p
}

func (w *world) order(t *testing.T, seller models.User, customer models.Customer, status models.OrderStatus) models.Order {
	t.Helper()
	svc := NewOrderService(w.db)
	order, err := svc.Create(IdentityFor(seller), CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []OrderLineInput{{ProductID: w.productFor(customer).ID, Quantity: 1}},
	})
	require.NoError(t, err)
	if status != models.OrderPending {
		require.NoError(t, w.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", status).Error)
		order.Status = status
	}
	return *order
}

func (w *world) productFor(customer models.Customer) models.Product {
	if customer.LocationID == w.locB.ID {
		return w.prodB
	}
	return w.prodA
}

func mustCreate[T any](t *testing.T, db *gorm.DB, row T) T {
	t.Helper()
	require.NoError(t, db.Create(&row).Error)
	return row
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
