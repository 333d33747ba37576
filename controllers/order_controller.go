package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/services"
	"github.com/shopspring/decimal"
)

const ordersPath = "/orders"

func orderService() *services.OrderService {
	return services.NewOrderService(config.GetDB())
}

// CreateOrder handles POST /api/v1/orders - composes an order from JSON
func CreateOrder(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := orderService().Create(id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	recordActivity(c, "create_order", orderDescription("Created order", order))
	respondOK(c, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders - the orders visible to the caller
func ListOrders(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}

	orders, err := orderService().List(id, parseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := orderService().Get(id, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// OrdersPage handles GET /orders - the order list plus the options of the order form
func OrdersPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	filter := parseFilter(c)
	orders, err := orderService().List(id, filter)
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	active := services.ListFilter{Status: "active"}
	customers, err := customerService().List(id, active)
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	products, err := productService().List(id, active)
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	renderPage(c, gin.H{
		"orders":    orders,
		"customers": customers,
		"products":  products,
		"statuses":  models.AllOrderStatuses(),
		"filters":   filter,
	})
}

// OrderPage handles GET /orders/:id
func OrderPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	orderID, ok := webPathID(c, ordersPath)
	if !ok {
		return
	}

	order, err := orderService().Get(id, orderID)
	if err != nil {
		failForm(c, ordersPath, err)
		return
	}
	renderPage(c, gin.H{"order": order, "statuses": models.AllOrderStatuses()})
}

// SubmitOrder handles POST /orders - the order form posts parallel
// product_id and quantity fields, one pair per line
func SubmitOrder(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	in, err := orderFormInput(c)
	if err != nil {
		failForm(c, ordersPath, err)
		return
	}
	order, err := orderService().Create(id, in)
	if err != nil {
		failForm(c, ordersPath, err)
		return
	}
	succeedForm(c, ordersPath+"/"+strconv.FormatUint(uint64(order.ID), 10), "create_order",
		orderDescription("Created order", order),
		fmt.Sprintf("Order %s created successfully.", order.OrderNumber))
}

func orderFormInput(c *gin.Context) (services.CreateOrderInput, error) {
	in := services.CreateOrderInput{
		CustomerID:   uintParam(c.PostForm("customer_id")),
		Notes:        c.PostForm("notes"),
		DeliveryDate: c.PostForm("delivery_date"),
	}

	productIDs := c.PostFormArray("product_id")
	quantities := c.PostFormArray("quantity")
	for i, raw := range productIDs {
		if i >= len(quantities) {
			break
		}
		quantity, err := strconv.Atoi(strings.TrimSpace(quantities[i]))
		if err != nil {
			continue
		}
		in.Items = append(in.Items, services.OrderLineInput{ProductID: uintParam(raw), Quantity: quantity})
	}

	var err error
	if in.Discount, err = formDecimal(c, "discount"); err != nil {
		return in, err
	}
	if in.Tax, err = formDecimal(c, "tax"); err != nil {
		return in, err
	}
	return in, nil
}

// formDecimal parses an optional money field; blank means zero
func formDecimal(c *gin.Context, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &services.Error{
			Kind:    services.KindValidation,
			Code:    "VALIDATION_ERROR",
			Field:   key,
			Message: fmt.Sprintf("Invalid %s amount", key),
		}
	}
	return d, nil
}

// EditOrder handles POST /orders/:id/edit - discount, tax, notes and delivery date
func EditOrder(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	orderID, ok := webPathID(c, ordersPath)
	if !ok {
		return
	}
	back := ordersPath + "/" + c.Param("id")

	in := services.UpdateOrderInput{
		Notes:        c.PostForm("notes"),
		DeliveryDate: c.PostForm("delivery_date"),
	}
	var err error
	if in.Discount, err = formDecimal(c, "discount"); err != nil {
		failForm(c, back, err)
		return
	}
	if in.Tax, err = formDecimal(c, "tax"); err != nil {
		failForm(c, back, err)
		return
	}

	order, err := orderService().Update(id, orderID, in)
	if err != nil {
		failForm(c, back, err)
		return
	}
	succeedForm(c, back, "edit_order", orderDescription("Updated order", order), "Order updated successfully.")
}

// UpdateOrderStatus handles POST /orders/:id/update-status
func UpdateOrderStatus(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	orderID, ok := webPathID(c, ordersPath)
	if !ok {
		return
	}
	back := ordersPath + "/" + c.Param("id")

	order, err := orderService().UpdateStatus(id, orderID, c.PostForm("status"))
	if err != nil {
		failForm(c, back, err)
		return
	}
	succeedForm(c, back, "update_order_status",
		fmt.Sprintf("Updated order %s status to %s", order.OrderNumber, order.Status),
		fmt.Sprintf("Order status updated to %s.", order.Status))
}

// DeleteOrder handles POST /orders/:id/delete
func DeleteOrder(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	orderID, ok := webPathID(c, ordersPath)
	if !ok {
		return
	}

	order, err := orderService().Delete(id, orderID)
	if err != nil {
		failForm(c, ordersPath, err)
		return
	}
	succeedForm(c, ordersPath, "delete_order", "Deleted order: "+order.OrderNumber, "Order deleted successfully.")
}

func orderDescription(verb string, order *models.Order) string {
	return fmt.Sprintf("%s %s (total %s)", verb, order.OrderNumber, order.TotalAmount.StringFixed(2))
}
