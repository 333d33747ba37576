package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/middleware"
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/services"
	"github.com/kendall-kelly/agency-sales-api/utils"
)

// DashboardPath is where browsers land after logging in
const DashboardPath = "/dashboard"

// TokenRequest represents the request body for obtaining API tokens
type TokenRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// RefreshRequest represents the request body for refreshing API tokens
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func authService() *services.AuthService {
	return services.NewAuthService(config.GetConfig(), config.GetDB())
}

// IssueToken handles POST /api/v1/auth/token - exchanges credentials for a token pair
func IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	auth := authService()
	user, err := auth.Authenticate(req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	pair, err := auth.IssueTokens(user)
	if err != nil {
		respondError(c, err)
		return
	}

	recordActivityFor(c, user.ID, "login", "User "+user.Username+" obtained an API token")
	respondOK(c, http.StatusOK, gin.H{
		"tokens": pair,
		"user":   user,
	})
}

// RefreshToken handles POST /api/v1/auth/refresh - trades a refresh token for a new pair
func RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, pair, err := authService().Refresh(req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"tokens": pair,
		"user":   user,
	})
}

// GetProfile handles GET /api/v1/profile - returns the authenticated user
func GetProfile(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		respondFailure(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var profile models.User
	if err := config.GetDB().Preload("Agency").First(&profile, user.ID).Error; err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}

// LoginPage handles GET /login - returns the pending flashes for the login form
func LoginPage(c *gin.Context) {
	renderPage(c, gin.H{})
}

// Login handles POST /login - checks the form credentials and opens a cookie session
func Login(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, middleware.LoginPath, utils.FlashError, "Username and password are required")
		return
	}

	auth := authService()
	user, err := auth.Authenticate(req.Username, req.Password)
	if err != nil {
		failForm(c, middleware.LoginPath, err)
		return
	}
	pair, err := auth.IssueTokens(user)
	if err != nil {
		failForm(c, middleware.LoginPath, err)
		return
	}

	cfg := config.GetConfig()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.SessionCookieName, pair.AccessToken, int(cfg.AccessTokenTTL.Seconds()), "/", "", cfg.SessionCookieSecure, true)

	recordActivityFor(c, user.ID, "login", "User "+user.Username+" logged in")
	redirectWithFlash(c, DashboardPath, utils.FlashSuccess, "Welcome back, "+user.FullName()+"!")
}

// Logout handles POST /logout - closes the cookie session
func Logout(c *gin.Context) {
	recordActivity(c, "logout", "User logged out")

	cfg := config.GetConfig()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.SessionCookieName, "", -1, "/", "", cfg.SessionCookieSecure, true)
	redirectWithFlash(c, middleware.LoginPath, utils.FlashInfo, "You have been logged out.")
}

// ProfilePage handles GET /profile - the session user's own account
func ProfilePage(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		redirectWithFlash(c, middleware.LoginPath, utils.FlashWarning, "Please log in to access this page.")
		return
	}
	var profile models.User
	if err := config.GetDB().Preload("Agency").First(&profile, user.ID).Error; err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	renderPage(c, gin.H{"user": profile})
}
