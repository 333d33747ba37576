package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/controllers"
	"github.com/kendall-kelly/agency-sales-api/middleware"
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/services"
	"go.uber.org/zap"
)

var (
	superAdminOnly = []models.Role{models.RoleSuperAdmin}
	userManagers   = []models.Role{models.RoleSuperAdmin, models.RoleAgencyAdmin}
	catalogEditors = []models.Role{models.RoleSuperAdmin, models.RoleAgencyAdmin, models.RoleStaff}
)

// setupRouter wires the JSON API under /api/v1 and the cookie-session web
// surface at the root. metrics may be nil.
func setupRouter(cfg *config.Config, logger *zap.Logger, metrics *middleware.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))
	if metrics != nil {
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}

	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", controllers.HealthCheck)
		v1.GET("/database/status", controllers.DatabaseStatus)
		v1.POST("/auth/token", controllers.IssueToken)
		v1.POST("/auth/refresh", controllers.RefreshToken)
	}

	api := v1.Group("", middleware.EnsureValidToken(cfg), middleware.LoadIdentity())
	{
		api.GET("/profile", controllers.GetProfile)
		api.GET("/agencies", controllers.ListAgencies)
		api.GET("/locations", controllers.ListLocations)
		api.GET("/locations/:id/customers", controllers.LocationCustomers)
		api.GET("/products", controllers.ListProducts)
		api.GET("/customers", controllers.ListCustomers)
		api.GET("/orders", controllers.ListOrders)
		api.GET("/orders/:id", controllers.GetOrder)
		api.POST("/orders", controllers.CreateOrder)
		api.GET("/dashboard/stats", controllers.GetDashboardStats)
		api.POST("/exports/:entity", controllers.ArchiveExport)
	}

	router.GET(middleware.LoginPath, controllers.LoginPage)
	router.POST(middleware.LoginPath, controllers.Login)

	web := router.Group("", middleware.EnsureSession(cfg), middleware.LoadIdentity())
	{
		web.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, controllers.DashboardPath) })
		web.POST("/logout", controllers.Logout)
		web.GET(controllers.DashboardPath, controllers.DashboardPage)
		web.GET("/profile", controllers.ProfilePage)
		web.GET("/activities", middleware.RequireRole(superAdminOnly...), controllers.ActivitiesPage)

		agencies := web.Group("/agencies", middleware.RequireRole(userManagers...))
		agencies.GET("", controllers.AgenciesPage)
		agencies.GET("/:id", controllers.AgencyPage)
		agencies.POST("/:id/edit", controllers.EditAgency)
		agencies.POST("", middleware.RequireRole(superAdminOnly...), controllers.CreateAgency)
		agencies.POST("/:id/toggle-status", middleware.RequireRole(superAdminOnly...), controllers.ToggleAgencyStatus)
		agencies.POST("/:id/delete", middleware.RequireRole(superAdminOnly...), controllers.DeleteAgency)

		users := web.Group("/users", middleware.RequireRole(userManagers...))
		users.GET("", controllers.UsersPage)
		users.GET("/:id", controllers.UserPage)
		users.POST("", controllers.CreateUser)
		users.POST("/:id/edit", controllers.EditUser)
		users.POST("/:id/toggle-status", controllers.ToggleUserStatus)
		users.POST("/:id/reset-password", controllers.ResetUserPassword)
		users.POST("/:id/delete", controllers.DeleteUser)

		web.GET("/locations/:id/customers", controllers.LocationCustomers)
		locations := web.Group("/locations", middleware.RequireRole(catalogEditors...))
		locations.GET("", controllers.LocationsPage)
		locations.GET("/:id", controllers.LocationPage)
		locations.POST("", controllers.CreateLocation)
		locations.POST("/:id/edit", controllers.EditLocation)
		locations.POST("/:id/toggle-status", controllers.ToggleLocationStatus)
		locations.POST("/:id/delete", controllers.DeleteLocation)
		registerTransfers(locations, services.EntityLocations)

		customers := web.Group("/customers")
		customers.GET("", controllers.CustomersPage)
		customers.GET("/:id", controllers.CustomerPage)
		customers.GET("/export", controllers.ExportEntity(services.EntityCustomers))
		customerEditors := customers.Group("", middleware.RequireRole(catalogEditors...))
		customerEditors.POST("", controllers.CreateCustomer)
		customerEditors.POST("/:id/edit", controllers.EditCustomer)
		customerEditors.POST("/:id/toggle-status", controllers.ToggleCustomerStatus)
		customerEditors.POST("/:id/delete", controllers.DeleteCustomer)
		customerEditors.POST("/import", controllers.ImportEntity(services.EntityCustomers))
		customerEditors.GET("/import/template", controllers.ImportTemplate(services.EntityCustomers))

		products := web.Group("/products")
		products.GET("", controllers.ProductsPage)
		products.GET("/:id", controllers.ProductPage)
		products.GET("/export", controllers.ExportEntity(services.EntityProducts))
		productEditors := products.Group("", middleware.RequireRole(catalogEditors...))
		productEditors.POST("", controllers.CreateProduct)
		productEditors.POST("/:id/edit", controllers.EditProduct)
		productEditors.POST("/:id/toggle-status", controllers.ToggleProductStatus)
		productEditors.POST("/:id/delete", controllers.DeleteProduct)
		productEditors.POST("/import", controllers.ImportEntity(services.EntityProducts))
		productEditors.GET("/import/template", controllers.ImportTemplate(services.EntityProducts))

		orders := web.Group("/orders")
		orders.GET("", controllers.OrdersPage)
		orders.GET("/export", controllers.ExportEntity(services.EntityOrders))
		orders.GET("/:id", controllers.OrderPage)
		orders.POST("", controllers.SubmitOrder)
		orders.POST("/:id/edit", controllers.EditOrder)
		orders.POST("/:id/update-status", controllers.UpdateOrderStatus)
		orders.POST("/:id/delete", controllers.DeleteOrder)
	}

	return router
}

// registerTransfers adds the export, import and template routes of a catalog entity
func registerTransfers(group *gin.RouterGroup, entity string) {
	group.GET("/export", controllers.ExportEntity(entity))
	group.POST("/import", controllers.ImportEntity(entity))
	group.GET("/import/template", controllers.ImportTemplate(entity))
}
