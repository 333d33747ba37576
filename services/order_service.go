package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxOrderNumberAttempts bounds retries after an order number collision
const maxOrderNumberAttempts = 3

const deliveryDateLayout = "2006-01-02"

// OrderLineInput is one requested product line
type OrderLineInput struct {
	ProductID uint `json:"product_id" form:"product_id"`
	Quantity  int  `json:"quantity" form:"quantity"`
}

// CreateOrderInput is a request to place an order for a customer
type CreateOrderInput struct {
	CustomerID   uint             `json:"customer_id" binding:"required"`
	Items        []OrderLineInput `json:"items" binding:"required"`
	Discount     decimal.Decimal  `json:"discount"`
	Tax          decimal.Decimal  `json:"tax"`
	Notes        string           `json:"notes"`
	DeliveryDate string           `json:"delivery_date"`
}

// UpdateOrderInput holds the fields that may change before shipment
type UpdateOrderInput struct {
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	Notes        string          `json:"notes"`
	DeliveryDate string          `json:"delivery_date"`
}

// OrderService composes orders and drives their status lifecycle
type OrderService struct {
	db        *gorm.DB
	now       func() time.Time
	newNumber func(time.Time) string
}

// NewOrderService creates an OrderService backed by db
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{
		db:        db,
		now:       time.Now,
		newNumber: GenerateOrderNumber,
	}
}

// GenerateOrderNumber returns ORD-YYYYMMDD-XXXXXXXX with a random upper-case hex suffix
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// Create places an order. Lines with a non-positive quantity or an unknown,
// inactive or foreign product are dropped; an order with no remaining lines
// is rejected. Header and lines are written in one transaction.
func (s *OrderService) Create(id Identity, in CreateOrderInput) (*models.Order, error) {
	customer, err := NewCustomerService(s.db).Get(id, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if !customer.IsActive {
		return nil, validationError("customer_id", "Customer is inactive")
	}
	agencyID := customer.Location.AgencyID

	if err := validateCharges(in.Discount, in.Tax); err != nil {
		return nil, err
	}
	deliveryDate, err := parseDeliveryDate(in.DeliveryDate)
	if err != nil {
		return nil, err
	}

	lines, err := s.composeLines(agencyID, in.Items)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, validationError("items", "Order must contain at least one valid item")
	}
	if !models.AmountFits(models.Order{Items: lines}.ItemsTotal()) {
		return nil, validationError("items", "Order total cannot exceed "+models.MaxAmount.StringFixed(2))
	}

	var order models.Order
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		now := s.now()
		order = models.Order{
			OrderNumber:   s.newNumber(now),
			CustomerID:    customer.ID,
			AgencyID:      agencyID,
			SalespersonID: id.UserID,
			Status:        models.OrderPending,
			Discount:      in.Discount.Round(2),
			Tax:           in.Tax.Round(2),
			Notes:         strings.TrimSpace(in.Notes),
			OrderDate:     now,
			DeliveryDate:  deliveryDate,
		}
		order.Items = lines
		order.TotalAmount = order.ItemsTotal()
		order.Items = nil

		items := make([]models.OrderItem, len(lines))
		copy(items, lines)

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].OrderID = order.ID
			}
			return tx.Create(&items).Error
		})
		if err == nil {
			break
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		if attempt == maxOrderNumberAttempts {
			return nil, conflictError("ORDER_NUMBER_EXHAUSTED", "Could not allocate a unique order number")
		}
	}

	return s.Get(id, order.ID)
}

// validateCharges checks that discount and tax fit a money column
func validateCharges(discount, tax decimal.Decimal) error {
	if discount.IsNegative() {
		return validationError("discount", "Discount cannot be negative")
	}
	if tax.IsNegative() {
		return validationError("tax", "Tax cannot be negative")
	}
	if !models.AmountFits(discount) {
		return validationError("discount", "Discount cannot exceed "+models.MaxAmount.StringFixed(2))
	}
	if !models.AmountFits(tax) {
		return validationError("tax", "Tax cannot exceed "+models.MaxAmount.StringFixed(2))
	}
	return nil
}

// composeLines turns requested lines into priced order items for one agency
func (s *OrderService) composeLines(agencyID uint, requested []OrderLineInput) ([]models.OrderItem, error) {
	ids := make([]uint, 0, len(requested))
	for _, line := range requested {
		if line.Quantity > 0 && line.ProductID != 0 {
			ids = append(ids, line.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var products []models.Product
	if err := s.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var items []models.OrderItem
	for _, line := range requested {
		if line.Quantity <= 0 {
			continue
		}
		product, ok := byID[line.ProductID]
		if !ok || !product.IsActive || product.AgencyID != agencyID {
			continue
		}
		items = append(items, models.NewOrderItem(product.ID, line.Quantity, product.Price))
	}
	return items, nil
}

// Get loads an order with its customer, agency, salesperson and lines
func (s *OrderService) Get(id Identity, orderID uint) (*models.Order, error) {
	var order models.Order
	db := s.db.
		Preload("Customer").
		Preload("Customer.Location").
		Preload("Agency").
		Preload("Salesperson").
		Preload("Items").
		Preload("Items.Product")
	if err := findByID(db, &order, orderID, "order"); err != nil {
		return nil, err
	}
	if err := authorizeOrder(id, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func authorizeOrder(id Identity, order *models.Order) error {
	if id.IsSalesperson() {
		if order.SalespersonID != id.UserID {
			return ErrNotPermitted
		}
		return nil
	}
	return id.authorizeAgency(order.AgencyID)
}

// List returns the orders visible to id, newest first
func (s *OrderService) List(id Identity, filter ListFilter) ([]models.Order, error) {
	query := s.db.Model(&models.Order{}).
		Preload("Customer").
		Preload("Customer.Location").
		Preload("Agency").
		Preload("Salesperson").
		Preload("Items").
		Preload("Items.Product").
		Scopes(ScopeOrders(id))
	query = filter.applyAgency(query, id, "orders.agency_id")
	if filter.CustomerID != 0 {
		query = query.Where("orders.customer_id = ?", filter.CustomerID)
	}
	if filter.SalespersonID != 0 && !id.IsSalesperson() {
		query = query.Where("orders.salesperson_id = ?", filter.SalespersonID)
	}
	if filter.LocationID != 0 {
		query = query.Where("orders.customer_id IN (?)",
			s.db.Model(&models.Customer{}).Select("id").Where("location_id = ?", filter.LocationID))
	}
	if status := models.OrderStatus(filter.Status); status.Valid() {
		query = query.Where("orders.status = ?", status)
	}
	query = filter.applySearch(query, "orders.order_number")
	query = filter.applyDateRange(query, "orders.created_at")

	var orders []models.Order
	if err := query.Order("orders.created_at DESC").Order("orders.id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves an order along its lifecycle. Salespersons may only set
// pending, confirmed or cancelled on their own orders.
func (s *OrderService) UpdateStatus(id Identity, orderID uint, status string) (*models.Order, error) {
	next := models.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, validationError("status", "Invalid status")
	}
	order, err := s.Get(id, orderID)
	if err != nil {
		return nil, err
	}
	if id.IsSalesperson() && next != models.OrderPending && next != models.OrderConfirmed && next != models.OrderCancelled {
		return nil, forbidden("Salespersons can only set orders to pending, confirmed or cancelled")
	}
	if order.Status == next {
		return order, nil
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, &Error{
			Kind:    KindValidation,
			Code:    "INVALID_STATUS_TRANSITION",
			Field:   "status",
			Message: fmt.Sprintf("Cannot change order status from %s to %s", order.Status, next),
		}
	}

	if err := updateRow(s.db, &models.Order{}, order.ID, map[string]interface{}{"status": next}); err != nil {
		return nil, err
	}
	order.Status = next
	return order, nil
}

// Update edits discount, tax, notes and delivery date of an order that has
// not shipped yet
func (s *OrderService) Update(id Identity, orderID uint, in UpdateOrderInput) (*models.Order, error) {
	order, err := s.Get(id, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Editable() {
		return nil, conflictError("ORDER_NOT_EDITABLE", "Cannot edit shipped or delivered orders")
	}
	if err := validateCharges(in.Discount, in.Tax); err != nil {
		return nil, err
	}
	deliveryDate, err := parseDeliveryDate(in.DeliveryDate)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"discount":      in.Discount.Round(2),
		"tax":           in.Tax.Round(2),
		"notes":         strings.TrimSpace(in.Notes),
		"delivery_date": deliveryDate,
	}
	if err := updateRow(s.db, &models.Order{}, order.ID, updates); err != nil {
		return nil, err
	}
	return s.Get(id, order.ID)
}

// Delete removes a pending or cancelled order together with its lines
func (s *OrderService) Delete(id Identity, orderID uint) (*models.Order, error) {
	order, err := s.Get(id, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Deletable() {
		return nil, conflictError("ORDER_NOT_DELETABLE", "Only pending or cancelled orders can be deleted")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, order.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func parseDeliveryDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse(deliveryDateLayout, raw)
	if err != nil {
		return nil, validationError("delivery_date", "Delivery date must be in YYYY-MM-DD format")
	}
	return &date, nil
}
