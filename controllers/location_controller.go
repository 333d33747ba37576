package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/services"
)

const locationsPath = "/locations"

func locationService() *services.LocationService {
	return services.NewLocationService(config.GetDB())
}

// ListLocations handles GET /api/v1/locations
func ListLocations(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}

	locations, err := locationService().List(id, parseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, locations)
}

// LocationsPage handles GET /locations
func LocationsPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	filter := parseFilter(c)
	locations, err := locationService().List(id, filter)
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	agencies, err := agencyService().List(id, services.ListFilter{Status: "active"})
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	renderPage(c, gin.H{"locations": locations, "agencies": agencies, "filters": filter})
}

// LocationPage handles GET /locations/:id
func LocationPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	locationID, ok := webPathID(c, locationsPath)
	if !ok {
		return
	}

	location, err := locationService().Get(id, locationID)
	if err != nil {
		failForm(c, locationsPath, err)
		return
	}
	renderPage(c, gin.H{"location": location})
}

// LocationCustomers handles GET /locations/:id/customers - the active
// customers offered by the order form once a location is picked
func LocationCustomers(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	locationID, ok := parseID(c, "id")
	if !ok {
		return
	}

	customers, err := customerService().ListByLocation(id, locationID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, customers)
}

// CreateLocation handles POST /locations
func CreateLocation(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	var in services.LocationInput
	if !bindForm(c, &in, locationsPath) {
		return
	}
	location, err := locationService().Create(id, in)
	if err != nil {
		failForm(c, locationsPath, err)
		return
	}
	succeedForm(c, locationsPath, "create_location", "Created location: "+location.Name, "Location created successfully.")
}

// EditLocation handles POST /locations/:id/edit
func EditLocation(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	locationID, ok := webPathID(c, locationsPath)
	if !ok {
		return
	}

	var in services.LocationInput
	if !bindForm(c, &in, locationsPath) {
		return
	}
	location, err := locationService().Update(id, locationID, in)
	if err != nil {
		failForm(c, locationsPath, err)
		return
	}
	succeedForm(c, locationsPath, "edit_location", "Updated location: "+location.Name, "Location updated successfully.")
}

// ToggleLocationStatus handles POST /locations/:id/toggle-status
func ToggleLocationStatus(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	locationID, ok := webPathID(c, locationsPath)
	if !ok {
		return
	}

	location, err := locationService().ToggleStatus(id, locationID)
	if err != nil {
		failForm(c, locationsPath, err)
		return
	}
	word := statusWord(location.IsActive)
	succeedForm(c, locationsPath, "toggle_location_status",
		fmt.Sprintf("Location %s %s", location.Name, word),
		fmt.Sprintf("Location %s has been %s.", location.Name, word))
}

// DeleteLocation handles POST /locations/:id/delete
func DeleteLocation(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	locationID, ok := webPathID(c, locationsPath)
	if !ok {
		return
	}

	location, err := locationService().Delete(id, locationID)
	if err != nil {
		failForm(c, locationsPath, err)
		return
	}
	succeedForm(c, locationsPath, "delete_location", "Deleted location: "+location.Name, "Location deleted successfully.")
}
