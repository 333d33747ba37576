package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "agencies", Agency{}.TableName())
	assert.Equal(t, "users", User{}.TableName())
	assert.Equal(t, "locations", Location{}.TableName())
	assert.Equal(t, "customers", Customer{}.TableName())
	assert.Equal(t, "products", Product{}.TableName())
	assert.Equal(t, "orders", Order{}.TableName())
	assert.Equal(t, "order_items", OrderItem{}.TableName())
	assert.Equal(t, "activity_logs", ActivityLog{}.TableName())
}

func TestRoleValues(t *testing.T) {
	tests := []struct {
		name           string
		role           Role
		valid          bool
		requiresAgency bool
	}{
		{"super admin", RoleSuperAdmin, true, false},
		{"agency admin", RoleAgencyAdmin, true, true},
		{"staff", RoleStaff, true, true},
		{"salesperson", RoleSalesperson, true, true},
		{"unknown role", Role("technician"), false, true},
		{"empty role", Role(""), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.Valid())
			assert.Equal(t, tt.requiresAgency, tt.role.RequiresAgency())
		})
	}
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Jane Staff", User{Username: "jane", FirstName: "Jane", LastName: "Staff"}.FullName())
	assert.Equal(t, "Jane", User{Username: "jane", FirstName: "Jane"}.FullName())
	assert.Equal(t, "jane", User{Username: "jane"}.FullName())
}

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderPending, OrderDelivered, false},
		{OrderConfirmed, OrderShipped, true},
		{OrderConfirmed, OrderCancelled, true},
		{OrderConfirmed, OrderPending, false},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, true},
		{OrderShipped, OrderConfirmed, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderDelivered, OrderPending, false},
		{OrderCancelled, OrderPending, false},
		{OrderCancelled, OrderConfirmed, false},
		{OrderPending, OrderPending, true},
		{OrderDelivered, OrderDelivered, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatusFlags(t *testing.T) {
	assert.True(t, OrderPending.Valid())
	assert.False(t, OrderStatus("lost").Valid())

	assert.True(t, OrderDelivered.IsTerminal())
	assert.True(t, OrderCancelled.IsTerminal())
	assert.False(t, OrderShipped.IsTerminal())

	assert.True(t, OrderPending.Editable())
	assert.True(t, OrderConfirmed.Editable())
	assert.True(t, OrderCancelled.Editable())
	assert.False(t, OrderShipped.Editable())
	assert.False(t, OrderDelivered.Editable())

	assert.True(t, OrderPending.Deletable())
	assert.True(t, OrderCancelled.Deletable())
	assert.False(t, OrderConfirmed.Deletable())
	assert.False(t, OrderShipped.Deletable())
}

func TestNewOrderItemComputesTotal(t *testing.T) {
	item := NewOrderItem(7, 3, decimal.RequireFromString("9.99"))

	assert.Equal(t, uint(7), item.ProductID)
	assert.Equal(t, 3, item.Quantity)
	assert.True(t, decimal.RequireFromString("29.97").Equal(item.TotalPrice))
}

func TestOrderItemsTotal(t *testing.T) {
	order := Order{Items: []OrderItem{
		NewOrderItem(1, 2, decimal.RequireFromString("10.50")),
		NewOrderItem(2, 1, decimal.RequireFromString("0.99")),
	}}

	assert.Equal(t, "21.99", order.ItemsTotal().StringFixed(2))
	assert.True(t, Order{}.ItemsTotal().IsZero())
}
