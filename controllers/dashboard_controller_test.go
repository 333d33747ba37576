package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dashboardRoutes(r *gin.Engine) {
	r.GET("/api/v1/health", HealthCheck)
	r.GET("/api/v1/database/status", DatabaseStatus)
	r.GET("/api/v1/dashboard/stats", GetDashboardStats)
	r.GET("/dashboard", DashboardPage)
	r.GET("/activities", ActivitiesPage)
}

func TestHealthCheck(t *testing.T) {
	setupFixture(t)

	w := doJSON(routerAs(nil, dashboardRoutes), http.MethodGet, "/api/v1/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "Agency Sales API is running", response["message"])
	assert.Len(t, response, 2)
}

func TestDatabaseStatus(t *testing.T) {
	setupFixture(t)

	w := doJSON(routerAs(nil, dashboardRoutes), http.MethodGet, "/api/v1/database/status", nil)

	require.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, "Database connected", response["message"])
	assert.Contains(t, response["tables"], "orders")
	assert.Contains(t, response["tables"], "activity_logs")

	t.Run("without a database", func(t *testing.T) {
		db := config.GetDB()
		config.SetDB(nil)
		t.Cleanup(func() { config.SetDB(db) })

		w := doJSON(routerAs(nil, dashboardRoutes), http.MethodGet, "/api/v1/database/status", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "DATABASE_ERROR", decodeBody(t, w)["code"])
	})
}

func TestDashboardStats(t *testing.T) {
	f := setupFixture(t)
	placeOrder(t, f, f.a, f.a.Salesperson, 2)
	placeOrder(t, f, f.b, f.b.Salesperson, 1)

	t.Run("agency view", func(t *testing.T) {
		w := doJSON(routerAs(f.a.Admin, dashboardRoutes), http.MethodGet, "/api/v1/dashboard/stats", nil)

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, float64(1), data["total_orders"])
		assert.Equal(t, float64(1), data["pending_orders"])
		assert.NotContains(t, data, "total_agencies")
	})

	t.Run("super admin view", func(t *testing.T) {
		w := doJSON(routerAs(f.super, dashboardRoutes), http.MethodGet, "/dashboard", nil)

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		stats := data["stats"].(map[string]interface{})
		assert.Equal(t, float64(2), stats["total_orders"])
		assert.Equal(t, float64(2), stats["total_agencies"])
		assert.Empty(t, data["flashes"])
	})
}

func TestActivitiesPage(t *testing.T) {
	f := setupFixture(t)
	placeOrder(t, f, f.a, f.a.Salesperson, 1)

	w := doJSON(routerAs(f.super, dashboardRoutes), http.MethodGet, "/activities?page=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	activities := decodeBody(t, w)["data"].(map[string]interface{})["activities"].(map[string]interface{})
	assert.Equal(t, float64(1), activities["page"])

	w = doJSON(routerAs(f.a.Admin, dashboardRoutes), http.MethodGet, "/activities", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, DashboardPath, w.Header().Get("Location"))
}
