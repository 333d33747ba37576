package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/middleware"
	"github.com/kendall-kelly/agency-sales-api/services"
	"github.com/kendall-kelly/agency-sales-api/utils"
	"go.uber.org/zap"
)

// renderPage answers a web GET with its view model and the pending flashes
func renderPage(c *gin.Context, view gin.H) {
	view["flashes"] = utils.PopFlashes(c)
	respondOK(c, http.StatusOK, view)
}

// webIdentity returns the session caller, sending the browser to the login
// page when there is none
func webIdentity(c *gin.Context) (services.Identity, bool) {
	id, err := middleware.GetIdentity(c)
	if err != nil {
		redirectWithFlash(c, middleware.LoginPath, utils.FlashWarning, "Please log in to access this page.")
		return services.Identity{}, false
	}
	return id, true
}

func redirectWithFlash(c *gin.Context, to, category, message string) {
	utils.AddFlash(c, category, message)
	c.Redirect(http.StatusFound, to)
}

// succeedForm records the mutation and returns the browser to to
func succeedForm(c *gin.Context, to, action, description, message string) {
	recordActivity(c, action, description)
	redirectWithFlash(c, to, utils.FlashSuccess, message)
}

// failForm flashes why a form post was rejected and returns the browser to to
func failForm(c *gin.Context, to string, err error) {
	message := "An unexpected error occurred"
	var fileErr *utils.FileUploadError
	if svcErr, ok := services.AsError(err); ok {
		message = svcErr.Message
	} else if errors.As(err, &fileErr) {
		message = fileErr.Message
	} else {
		middleware.GetLogger(c).Error("form post failed", zap.Error(err))
	}
	redirectWithFlash(c, to, utils.FlashError, message)
}

// webPathID reads a numeric path parameter for a web route, redirecting to
// fallback when it is malformed
func webPathID(c *gin.Context, fallback string) (uint, bool) {
	id := uintParam(c.Param("id"))
	if id == 0 {
		redirectWithFlash(c, fallback, utils.FlashError, "Invalid id")
		return 0, false
	}
	return id, true
}

// bindForm decodes a form post into dest, sending the browser back to to
// when a field has the wrong type
func bindForm(c *gin.Context, dest interface{}, to string) bool {
	if err := c.ShouldBind(dest); err != nil {
		redirectWithFlash(c, to, utils.FlashError, "Invalid form data")
		return false
	}
	return true
}
