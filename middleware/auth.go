package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/services"
	"github.com/kendall-kelly/agency-sales-api/utils"
	"go.uber.org/zap"
)

// LoginPath is where browsers without a valid session are sent
const LoginPath = "/login"

const (
	userIDKey   = "user_id"
	identityKey = "identity"
	userKey     = "current_user"
)

// CustomClaims contains the application claims signed into our tokens.
type CustomClaims struct {
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	AgencyID  *uint       `json:"agency_id,omitempty"`
	TokenType string      `json:"token_type"`
}

// Validate rejects refresh tokens presented as access tokens.
func (c CustomClaims) Validate(ctx context.Context) error {
	if c.TokenType != services.AccessTokenType {
		return errors.New("token is not an access token")
	}
	return nil
}

// EnsureValidToken is a middleware that checks the JWT of API requests and
// answers 401 JSON when it is missing or invalid.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		logger := loggerFromContext(r.Context())
		logger.Warn("Encountered error while validating JWT", zap.Error(err))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":"Failed to validate JWT.","code":"INVALID_TOKEN"}`)); writeErr != nil {
			logger.Error("Failed to write error response", zap.Error(writeErr))
		}
	}
	return checkJWT(cfg, errorHandler)
}

// EnsureSession is the browser flavour of EnsureValidToken: it reads the
// session cookie and redirects to the login page when it is not valid.
func EnsureSession(cfg *config.Config) gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		if cookie := utils.FlashCookie(utils.Flash{Category: utils.FlashWarning, Message: "Please log in to access this page."}); cookie != nil {
			http.SetCookie(w, cookie)
		}
		http.Redirect(w, r, LoginPath, http.StatusFound)
	}
	return checkJWT(cfg, errorHandler)
}

func checkJWT(cfg *config.Config, errorHandler jwtmiddleware.ErrorHandler) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to set up the jwt validator: %v", err))
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			jwtmiddleware.AuthHeaderTokenExtractor,
			jwtmiddleware.CookieTokenExtractor(cfg.SessionCookieName),
		)),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			passed = true
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			userID, err := strconv.ParseUint(token.RegisteredClaims.Subject, 10, 64)
			if err != nil {
				abortUnauthorized(c, "INVALID_TOKEN", "Token subject is not a user id")
				return
			}
			c.Request = r
			c.Set(userIDKey, uint(userID))

			c.Next()
		}

		r := c.Request.WithContext(contextWithLogger(c.Request.Context(), GetLogger(c)))
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, r)
		if !passed {
			c.Abort()
		}
	}
}

// LoadIdentity resolves the authenticated user from the database so that
// deactivations and role changes apply to tokens already issued.
func LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := GetUserID(c)
		if err != nil {
			abortUnauthorized(c, "MISSING_USER_ID", err.Error())
			return
		}

		var user models.User
		if err := config.GetDB().First(&user, userID).Error; err != nil {
			abortUnauthorized(c, "USER_NOT_FOUND", "User account no longer exists")
			return
		}
		if !user.IsActive {
			abortUnauthorized(c, "ACCOUNT_DISABLED", "Your account has been deactivated")
			return
		}

		SetIdentity(c, &user)
		c.Next()
	}
}

// SetIdentity stores user and its identity in the Gin context
func SetIdentity(c *gin.Context, user *models.User) {
	c.Set(userIDKey, user.ID)
	c.Set(userKey, user)
	c.Set(identityKey, services.IdentityFor(*user))
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0, &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	id, ok := userID.(uint)
	if !ok {
		return 0, &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not numeric"}
	}

	return id, nil
}

// GetIdentity returns the caller resolved by LoadIdentity
func GetIdentity(c *gin.Context) (services.Identity, error) {
	v, exists := c.Get(identityKey)
	if !exists {
		return services.Identity{}, &AuthError{Code: "MISSING_IDENTITY", Message: "Identity not found in context"}
	}
	id, ok := v.(services.Identity)
	if !ok {
		return services.Identity{}, &AuthError{Code: "INVALID_IDENTITY", Message: "Identity is not in the expected format"}
	}
	return id, nil
}

// GetCurrentUser returns the user row loaded by LoadIdentity
func GetCurrentUser(c *gin.Context) (*models.User, error) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_USER", Message: "User not found in context"}
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "INVALID_USER", Message: "User is not in the expected format"}
	}
	return user, nil
}

// RequireRole is a middleware that checks the caller holds one of roles
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := GetIdentity(c)
		if err != nil {
			abortUnauthorized(c, "MISSING_IDENTITY", "Could not resolve the current user")
			return
		}

		for _, role := range roles {
			if id.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "You do not have permission to access this page.",
			"code":    "INSUFFICIENT_ROLE",
		})
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
