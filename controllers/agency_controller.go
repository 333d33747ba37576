package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/services"
)

const agenciesPath = "/agencies"

func agencyService() *services.AgencyService {
	return services.NewAgencyService(config.GetDB())
}

// statusWord describes the outcome of a toggle
func statusWord(active bool) string {
	if active {
		return "activated"
	}
	return "deactivated"
}

// ListAgencies handles GET /api/v1/agencies - all agencies for super admins, the caller's own otherwise
func ListAgencies(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}

	agencies, err := agencyService().List(id, parseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, agencies)
}

// AgenciesPage handles GET /agencies
func AgenciesPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	filter := parseFilter(c)
	agencies, err := agencyService().List(id, filter)
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	renderPage(c, gin.H{"agencies": agencies, "filters": filter})
}

// AgencyPage handles GET /agencies/:id - the agency shown by the edit form
func AgencyPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	agencyID, ok := webPathID(c, agenciesPath)
	if !ok {
		return
	}

	agency, err := agencyService().Get(id, agencyID)
	if err != nil {
		failForm(c, agenciesPath, err)
		return
	}
	renderPage(c, gin.H{"agency": agency})
}

// CreateAgency handles POST /agencies
func CreateAgency(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	var in services.AgencyInput
	if !bindForm(c, &in, agenciesPath) {
		return
	}
	agency, err := agencyService().Create(id, in)
	if err != nil {
		failForm(c, agenciesPath, err)
		return
	}
	succeedForm(c, agenciesPath, "create_agency", "Created agency: "+agency.Name, "Agency created successfully.")
}

// EditAgency handles POST /agencies/:id/edit
func EditAgency(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	agencyID, ok := webPathID(c, agenciesPath)
	if !ok {
		return
	}

	var in services.AgencyInput
	if !bindForm(c, &in, agenciesPath) {
		return
	}
	agency, err := agencyService().Update(id, agencyID, in)
	if err != nil {
		failForm(c, agenciesPath, err)
		return
	}
	succeedForm(c, agenciesPath, "edit_agency", "Updated agency: "+agency.Name, "Agency updated successfully.")
}

// ToggleAgencyStatus handles POST /agencies/:id/toggle-status
func ToggleAgencyStatus(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	agencyID, ok := webPathID(c, agenciesPath)
	if !ok {
		return
	}

	agency, err := agencyService().ToggleStatus(id, agencyID)
	if err != nil {
		failForm(c, agenciesPath, err)
		return
	}
	word := statusWord(agency.IsActive)
	succeedForm(c, agenciesPath, "toggle_agency_status",
		fmt.Sprintf("Agency %s %s", agency.Name, word),
		fmt.Sprintf("Agency %s has been %s.", agency.Name, word))
}

// DeleteAgency handles POST /agencies/:id/delete
func DeleteAgency(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	agencyID, ok := webPathID(c, agenciesPath)
	if !ok {
		return
	}

	agency, err := agencyService().Delete(id, agencyID)
	if err != nil {
		failForm(c, agenciesPath, err)
		return
	}
	succeedForm(c, agenciesPath, "delete_agency", "Deleted agency: "+agency.Name, "Agency deleted successfully.")
}
