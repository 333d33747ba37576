package testutil

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/middleware"
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/services"
	"github.com/stretchr/testify/require"
)

// MockIdentity returns a middleware that authenticates every request as user,
// standing in for EnsureValidToken + LoadIdentity
func MockIdentity(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetIdentity(c, user)
		c.Next()
	}
}

// AccessToken signs an access token for user with cfg
func AccessToken(t *testing.T, cfg *config.Config, user *models.User) string {
	t.Helper()
	pair, err := services.NewAuthService(cfg, nil).IssueTokens(user)
	require.NoError(t, err)
	return pair.AccessToken
}

// CreateTestContext creates a test Gin context
func CreateTestContext() (*gin.Context, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	c, engine := gin.CreateTestContext(nil)
	return c, engine
}
