package acceptance

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/controllers"
	"github.com/kendall-kelly/agency-sales-api/middleware"
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/services"
	"github.com/kendall-kelly/agency-sales-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// createRouter wires the routes the acceptance suites drive, with the same
// middleware chain as the server
func createRouter(cfg *config.Config) *gin.Engine {
	logger := zap.NewNop()
	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", controllers.HealthCheck)
		v1.POST("/auth/token", controllers.IssueToken)
		v1.POST("/auth/refresh", controllers.RefreshToken)
	}
	api := v1.Group("", middleware.EnsureValidToken(cfg), middleware.LoadIdentity())
	{
		api.GET("/profile", controllers.GetProfile)
		api.GET("/orders", controllers.ListOrders)
		api.GET("/orders/:id", controllers.GetOrder)
		api.POST("/orders", controllers.CreateOrder)
		api.GET("/dashboard/stats", controllers.GetDashboardStats)
	}

	router.GET(middleware.LoginPath, controllers.LoginPage)
	router.POST(middleware.LoginPath, controllers.Login)

	web := router.Group("", middleware.EnsureSession(cfg), middleware.LoadIdentity())
	{
		web.POST("/logout", controllers.Logout)
		web.GET(controllers.DashboardPath, controllers.DashboardPage)
		web.GET("/orders", controllers.OrdersPage)
		web.GET("/orders/:id", controllers.OrderPage)
		web.POST("/orders/:id/update-status", controllers.UpdateOrderStatus)
		web.GET("/products", controllers.ProductsPage)
		web.GET("/products/export", controllers.ExportEntity(services.EntityProducts))
		editors := web.Group("", middleware.RequireRole(models.RoleSuperAdmin, models.RoleAgencyAdmin, models.RoleStaff))
		editors.POST("/products/import", controllers.ImportEntity(services.EntityProducts))
	}
	return router
}

// browserLogin returns a cookie-carrying client logged in through the form
func browserLogin(t *testing.T, serverURL, username string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.PostForm(serverURL+middleware.LoginPath, url.Values{
		"username": {username},
		"password": {testutil.Password},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, controllers.DashboardPath, resp.Request.URL.Path, "login of %s failed", username)
	return client
}

// page decodes the data of a web view model and the flash messages it carried
func page(t *testing.T, resp *http.Response) (map[string]interface{}, []string) {
	t.Helper()
	defer resp.Body.Close()

	var response struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))

	var messages []string
	if flashes, ok := response.Data["flashes"].([]interface{}); ok {
		for _, f := range flashes {
			messages = append(messages, f.(map[string]interface{})["message"].(string))
		}
	}
	return response.Data, messages
}
