package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/services"
)

const customersPath = "/customers"

func customerService() *services.CustomerService {
	return services.NewCustomerService(config.GetDB())
}

// ListCustomers handles GET /api/v1/customers
func ListCustomers(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}

	customers, err := customerService().List(id, parseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, customers)
}

// CustomersPage handles GET /customers
func CustomersPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	filter := parseFilter(c)
	customers, err := customerService().List(id, filter)
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	locations, err := locationService().List(id, services.ListFilter{Status: "active"})
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	renderPage(c, gin.H{"customers": customers, "locations": locations, "filters": filter})
}

// CustomerPage handles GET /customers/:id
func CustomerPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	customerID, ok := webPathID(c, customersPath)
	if !ok {
		return
	}

	customer, err := customerService().Get(id, customerID)
	if err != nil {
		failForm(c, customersPath, err)
		return
	}
	renderPage(c, gin.H{"customer": customer})
}

// CreateCustomer handles POST /customers
func CreateCustomer(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	var in services.CustomerInput
	if !bindForm(c, &in, customersPath) {
		return
	}
	customer, err := customerService().Create(id, in)
	if err != nil {
		failForm(c, customersPath, err)
		return
	}
	succeedForm(c, customersPath, "create_customer", "Created customer: "+customer.Name, "Customer created successfully.")
}

// EditCustomer handles POST /customers/:id/edit
func EditCustomer(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	customerID, ok := webPathID(c, customersPath)
	if !ok {
		return
	}

	var in services.CustomerInput
	if !bindForm(c, &in, customersPath) {
		return
	}
	customer, err := customerService().Update(id, customerID, in)
	if err != nil {
		failForm(c, customersPath, err)
		return
	}
	succeedForm(c, customersPath, "edit_customer", "Updated customer: "+customer.Name, "Customer updated successfully.")
}

// ToggleCustomerStatus handles POST /customers/:id/toggle-status
func ToggleCustomerStatus(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	customerID, ok := webPathID(c, customersPath)
	if !ok {
		return
	}

	customer, err := customerService().ToggleStatus(id, customerID)
	if err != nil {
		failForm(c, customersPath, err)
		return
	}
	word := statusWord(customer.IsActive)
	succeedForm(c, customersPath, "toggle_customer_status",
		fmt.Sprintf("Customer %s %s", customer.Name, word),
		fmt.Sprintf("Customer %s has been %s.", customer.Name, word))
}

// DeleteCustomer handles POST /customers/:id/delete
func DeleteCustomer(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	customerID, ok := webPathID(c, customersPath)
	if !ok {
		return
	}

	customer, err := customerService().Delete(id, customerID)
	if err != nil {
		failForm(c, customersPath, err)
		return
	}
	succeedForm(c, customersPath, "delete_customer", "Deleted customer: "+customer.Name, "Customer deleted successfully.")
}
