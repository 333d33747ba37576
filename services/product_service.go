package services

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductInput holds the editable fields of a product. Money and quantity
// fields arrive as text from forms and are parsed here.
type ProductInput struct {
	Name          string `json:"name" form:"name"`
	Description   string `json:"description" form:"description"`
	SKU           string `json:"sku" form:"sku"`
	Price         string `json:"price" form:"price"`
	Cost          string `json:"cost" form:"cost"`
	StockQuantity string `json:"stock_quantity" form:"stock_quantity"`
	Category      string `json:"category" form:"category"`
	AgencyID      uint   `json:"agency_id" form:"agency_id"`
}

type productValues struct {
	price decimal.Decimal
	cost  decimal.Decimal
	stock int
}

func (in *ProductInput) parse() (productValues, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)

	var v productValues
	if in.Name == "" {
		return v, validationError("name", "Name is required")
	}
	if in.SKU == "" {
		return v, validationError("sku", "SKU is required")
	}
	price, err := parseMoney(in.Price)
	if errors.Is(err, errAmountTooLarge) {
		return v, validationError("price", "Price cannot exceed "+models.MaxAmount.StringFixed(2))
	}
	if err != nil || strings.TrimSpace(in.Price) == "" {
		return v, validationError("price", "Price must be a valid amount")
	}
	cost, err := parseMoney(in.Cost)
	if errors.Is(err, errAmountTooLarge) {
		return v, validationError("cost", "Cost cannot exceed "+models.MaxAmount.StringFixed(2))
	}
	if err != nil {
		return v, validationError("cost", "Cost must be a valid amount")
	}
	stock, err := parseQuantity(in.StockQuantity)
	if err != nil {
		return v, validationError("stock_quantity", "Stock quantity must be a whole number")
	}
	v.price, v.cost, v.stock = price, cost, stock
	return v, nil
}

// errAmountTooLarge is returned by parseMoney for amounts a money column cannot hold
var errAmountTooLarge = errors.New("amount exceeds the money column limit")

// parseMoney parses a non-negative amount rounded to cents; blank means zero
func parseMoney(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, strconv.ErrRange
	}
	if !models.AmountFits(amount) {
		return decimal.Zero, errAmountTooLarge
	}
	return amount.Round(2), nil
}

// parseQuantity parses a non-negative whole number; blank means zero.
// Spreadsheet cells such as "12.0" are accepted.
func parseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, strconv.ErrRange
		}
		return n, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.Equal(d.Truncate(0)) || d.IsNegative() {
		return 0, strconv.ErrSyntax
	}
	return int(d.IntPart()), nil
}

// ProductService manages agency catalogs
type ProductService struct {
	db *gorm.DB
}

// NewProductService creates a ProductService backed by db
func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

// List returns the products visible to id
func (s *ProductService) List(id Identity, filter ListFilter) ([]models.Product, error) {
	query := s.db.Model(&models.Product{}).Preload("Agency").Scopes(ScopeProducts(id))
	query = filter.applyAgency(query, id, "products.agency_id")
	if filter.Category != "" {
		query = query.Where("products.category = ?", filter.Category)
	}
	query = filter.applyActive(query, "products.is_active")
	query = filter.applySearch(query, "products.name", "products.sku")
	query = filter.applyDateRange(query, "products.created_at")

	var products []models.Product
	if err := query.Order("products.name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Categories returns the distinct non-empty categories visible to id
func (s *ProductService) Categories(id Identity) ([]string, error) {
	var categories []string
	err := s.db.Model(&models.Product{}).
		Scopes(ScopeProducts(id)).
		Where("products.category <> ''").
		Distinct().
		Order("products.category").
		Pluck("products.category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// Get loads one product within the caller's scope
func (s *ProductService) Get(id Identity, productID uint) (*models.Product, error) {
	var product models.Product
	if err := findByID(s.db.Preload("Agency"), &product, productID, "product"); err != nil {
		return nil, err
	}
	if err := id.authorizeAgency(product.AgencyID); err != nil {
		return nil, err
	}
	return &product, nil
}

// Create adds a product to the caller's agency catalog
func (s *ProductService) Create(id Identity, in ProductInput) (*models.Product, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	values, err := in.parse()
	if err != nil {
		return nil, err
	}
	agencyID, err := id.defaultAgency(in.AgencyID)
	if err != nil {
		return nil, err
	}
	var agency models.Agency
	if err := findByID(s.db, &agency, agencyID, "agency"); err != nil {
		return nil, err
	}
	if err := s.ensureSKUFree(in.SKU, 0); err != nil {
		return nil, err
	}

	product := models.Product{
		Name:          in.Name,
		Description:   in.Description,
		SKU:           in.SKU,
		Price:         values.price,
		Cost:          values.cost,
		StockQuantity: values.stock,
		Category:      in.Category,
		AgencyID:      agency.ID,
		IsActive:      true,
	}
	if err := s.db.Create(&product).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, skuConflict()
		}
		return nil, err
	}
	return &product, nil
}

// Update edits a product. Only super admins may move it to another agency.
func (s *ProductService) Update(id Identity, productID uint, in ProductInput) (*models.Product, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	product, err := s.Get(id, productID)
	if err != nil {
		return nil, err
	}
	values, err := in.parse()
	if err != nil {
		return nil, err
	}
	if in.AgencyID == 0 {
		in.AgencyID = product.AgencyID
	}
	agencyID, err := id.defaultAgency(in.AgencyID)
	if err != nil {
		return nil, err
	}
	if agencyID != product.AgencyID {
		var agency models.Agency
		if err := findByID(s.db, &agency, agencyID, "agency"); err != nil {
			return nil, err
		}
	}
	if err := s.ensureSKUFree(in.SKU, product.ID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":           in.Name,
		"description":    in.Description,
		"sku":            in.SKU,
		"price":          values.price,
		"cost":           values.cost,
		"stock_quantity": values.stock,
		"category":       in.Category,
		"agency_id":      agencyID,
	}
	if err := updateRow(s.db, &models.Product{}, product.ID, updates); err != nil {
		if isUniqueViolation(err) {
			return nil, skuConflict()
		}
		return nil, err
	}
	return s.Get(id, product.ID)
}

// ToggleStatus flips the product's active flag
func (s *ProductService) ToggleStatus(id Identity, productID uint) (*models.Product, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	product, err := s.Get(id, productID)
	if err != nil {
		return nil, err
	}
	product.IsActive = !product.IsActive
	if err := updateRow(s.db, &models.Product{}, product.ID, map[string]interface{}{"is_active": product.IsActive}); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product that no order line references
func (s *ProductService) Delete(id Identity, productID uint) (*models.Product, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	product, err := s.Get(id, productID)
	if err != nil {
		return nil, err
	}

	var lines int64
	if err := s.db.Model(&models.OrderItem{}).Where("product_id = ?", product.ID).Count(&lines).Error; err != nil {
		return nil, err
	}
	if lines > 0 {
		return nil, dependentError("Cannot delete product that has been ordered")
	}

	if err := deleteGuarded(s.db, product, "Cannot delete product that has been ordered"); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) ensureSKUFree(sku string, exceptID uint) error {
	var count int64
	query := s.db.Model(&models.Product{}).Where("sku = ?", sku)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return skuConflict()
	}
	return nil
}

func skuConflict() *Error {
	return &Error{Kind: KindConflict, Code: "SKU_EXISTS", Field: "sku", Message: "SKU already exists"}
}
