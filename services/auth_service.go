package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/models"
	"gorm.io/gorm"
)

// Token types carried in the token_type claim
const (
	AccessTokenType  = "access"
	RefreshTokenType = "refresh"
)

// ErrInvalidCredentials is returned for an unknown user, a wrong password or
// a deactivated account alike
var ErrInvalidCredentials = &Error{Kind: KindAuthentication, Code: "INVALID_CREDENTIALS", Message: "Invalid username or password"}

// ErrInvalidToken is returned when a refresh token cannot be used
var ErrInvalidToken = &Error{Kind: KindAuthentication, Code: "INVALID_TOKEN", Message: "Invalid or expired token"}

// TokenClaims are the claims signed into access and refresh tokens
type TokenClaims struct {
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	AgencyID  *uint       `json:"agency_id,omitempty"`
	TokenType string      `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is the response of a successful login or refresh
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthService checks credentials and issues HS256 tokens
type AuthService struct {
	db         *gorm.DB
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewAuthService creates a new auth service from the application configuration
func NewAuthService(cfg *config.Config, db *gorm.DB) *AuthService {
	return &AuthService{
		db:         db,
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}
}

// Authenticate verifies a username and password and stamps the login time
func (s *AuthService) Authenticate(username, password string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := updateRow(s.db, &models.User{}, user.ID, map[string]interface{}{"last_login": now}); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	return &user, nil
}

// IssueTokens signs a fresh access and refresh token for user
func (s *AuthService) IssueTokens(user *models.User) (*TokenPair, error) {
	now := s.now()
	access, err := s.sign(user, AccessTokenType, now, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(user, RefreshTokenType, now, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		ExpiresAt:    now.Add(s.accessTTL),
	}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The user must
// still exist and be active.
func (s *AuthService) Refresh(refreshToken string) (*models.User, *TokenPair, error) {
	claims, err := s.ParseToken(refreshToken)
	if err != nil || claims.TokenType != RefreshTokenType {
		return nil, nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, uint(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, ErrInvalidToken
	}

	pair, err := s.IssueTokens(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// ParseToken verifies the signature, issuer, audience and expiry of a token
func (s *AuthService) ParseToken(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) sign(user *models.User, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := TokenClaims{
		Username:  user.Username,
		Role:      user.Role,
		AgencyID:  user.AgencyID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
