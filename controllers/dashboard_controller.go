package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/services"
)

// GetDashboardStats handles GET /api/v1/dashboard/stats
func GetDashboardStats(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}

	stats, err := services.NewDashboardService(config.GetDB()).Stats(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}

// DashboardPage handles GET /dashboard
func DashboardPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	stats, err := services.NewDashboardService(config.GetDB()).Stats(id)
	if err != nil {
		respondError(c, err)
		return
	}
	renderPage(c, gin.H{"stats": stats})
}

// ActivitiesPage handles GET /activities?page=N - the audit log, super admins only
func ActivitiesPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	page := int(queryUint(c, "page"))
	result, err := services.NewAuditService(config.GetDB(), nil).List(id, page)
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	renderPage(c, gin.H{"activities": result})
}
