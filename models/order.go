package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value a numeric(10,2) money column holds
var MaxAmount = decimal.New(9999999999, -2)

// AmountFits reports whether d can be stored in a money column
func AmountFits(d decimal.Decimal) bool {
	return d.Round(2).LessThanOrEqual(MaxAmount)
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// orderTransitions lists the statuses reachable from each non-terminal status
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered, OrderCancelled},
}

// AllOrderStatuses returns every status in lifecycle order
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled}
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	for _, known := range AllOrderStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransitionTo reports whether an order may move from s to next.
// Re-applying the current status is allowed and has no effect.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Editable reports whether discount, tax, notes and delivery date may change
func (s OrderStatus) Editable() bool {
	return s != OrderShipped && s != OrderDelivered
}

// Deletable reports whether the order may be removed
func (s OrderStatus) Deletable() bool {
	return s == OrderPending || s == OrderCancelled
}

// Order is a customer purchase placed by a salesperson within one agency
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderNumber   string          `gorm:"size:50;uniqueIndex;not null" json:"order_number"`
	CustomerID    uint            `gorm:"not null;index" json:"customer_id"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	AgencyID      uint            `gorm:"not null;index" json:"agency_id"` // copied from the customer's location at creation
	Agency        *Agency         `gorm:"foreignKey:AgencyID" json:"agency,omitempty"`
	SalespersonID uint            `gorm:"not null;index" json:"salesperson_id"`
	Salesperson   *User           `gorm:"foreignKey:SalespersonID" json:"salesperson,omitempty"`
	Status        OrderStatus     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"total_amount"`
	Discount      decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"discount"`
	Tax           decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"tax"`
	Notes         string          `gorm:"type:text" json:"notes"`
	OrderDate     time.Time       `gorm:"not null" json:"order_date"`
	DeliveryDate  *time.Time      `json:"delivery_date"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// ItemsTotal sums the line totals of the loaded items
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

// OrderItem is one product line of an order. UnitPrice is the product price
// at the moment the order was placed.
type OrderItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index" json:"order_id"`
	ProductID  uint            `gorm:"not null;index" json:"product_id"`
	Product    *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity   int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_price"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderItem builds a line with its total computed from quantity and price
func NewOrderItem(productID uint, quantity int, unitPrice decimal.Decimal) OrderItem {
	return OrderItem{
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}
