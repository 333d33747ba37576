package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/middleware"
	"github.com/kendall-kelly/agency-sales-api/services"
	"github.com/kendall-kelly/agency-sales-api/utils"
	"go.uber.org/zap"
)

// respondOK writes the standard success envelope
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondFailure writes the standard failure envelope
func respondFailure(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// respondBindError reports a request body that could not be decoded
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request data",
		"code":    "VALIDATION_ERROR",
		"details": err.Error(),
	})
}

// respondError maps a service error onto its HTTP status. Anything that is
// not a service error is logged and reported as a 500.
func respondError(c *gin.Context, err error) {
	var fileErr *utils.FileUploadError
	if errors.As(err, &fileErr) {
		respondFailure(c, http.StatusBadRequest, fileErr.Code, fileErr.Message)
		return
	}

	svcErr, ok := services.AsError(err)
	if !ok {
		middleware.GetLogger(c).Error("request failed", zap.Error(err))
		respondFailure(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	body := gin.H{
		"success": false,
		"error":   svcErr.Message,
		"code":    svcErr.Code,
	}
	if svcErr.Field != "" {
		body["field"] = svcErr.Field
	}
	c.JSON(statusFor(svcErr.Kind), body)
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuthentication:
		return http.StatusUnauthorized
	case services.KindAuthorization:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict, services.KindDependent:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// currentIdentity returns the caller resolved by middleware.LoadIdentity,
// answering 401 when there is none
func currentIdentity(c *gin.Context) (services.Identity, bool) {
	id, err := middleware.GetIdentity(c)
	if err != nil {
		respondFailure(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return services.Identity{}, false
	}
	return id, true
}

// parseID reads a positive numeric path parameter, answering 400 otherwise
func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		respondFailure(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+param)
		return 0, false
	}
	return uint(id), true
}

// parseFilter reads the list filters from the query string. Malformed
// numeric filters are ignored.
func parseFilter(c *gin.Context) services.ListFilter {
	return services.ListFilter{
		DateFrom:      c.Query("date_from"),
		DateTo:        c.Query("date_to"),
		AgencyID:      queryUint(c, "agency"),
		LocationID:    queryUint(c, "location"),
		CustomerID:    queryUint(c, "customer"),
		SalespersonID: queryUint(c, "salesperson"),
		Category:      c.Query("category"),
		Status:        c.Query("status"),
		Search:        c.Query("search"),
	}
}

func queryUint(c *gin.Context, key string) uint {
	return uintParam(c.Query(key))
}

func uintParam(raw string) uint {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

// recordActivity appends an audit entry for the authenticated caller
func recordActivity(c *gin.Context, action, description string) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return
	}
	recordActivityFor(c, userID, action, description)
}

func recordActivityFor(c *gin.Context, userID uint, action, description string) {
	services.NewAuditService(config.GetDB(), middleware.GetLogger(c)).Record(services.ActivityEntry{
		UserID:      userID,
		Action:      action,
		Description: description,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
}

// importMaxErrors is the number of row messages an import reports
func importMaxErrors() int {
	if cfg := config.GetConfig(); cfg != nil && cfg.ImportMaxErrors > 0 {
		return cfg.ImportMaxErrors
	}
	return services.DefaultMaxImportErrors
}

// sendFile streams a rendered export or template as an attachment
func sendFile(c *gin.Context, file *services.ExportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
