package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL         string
	Port                string
	GoEnv               string
	JWTSecret           string
	JWTIssuer           string
	JWTAudience         string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	SessionCookieName   string
	SessionCookieSecure bool
	CORSAllowedOrigins  []string
	AWSRegion           string
	AWSS3Bucket         string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	LogLevel            string
	ImportMaxErrors     int
	SeedAdmin           bool
	// EnvFile is the .env file Load read, empty when only the process
	// environment was used
	EnvFile string
}

var current *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// If environment-specific file doesn't exist, try .env
		envFile = ".env"
		if err := godotenv.Load(); err != nil {
			// In production, environment variables are set directly
			// so it's okay if .env files don't exist
			envFile = ""
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		DatabaseURL:         v.GetString("DATABASE_URL"),
		Port:                v.GetString("PORT"),
		GoEnv:               v.GetString("GO_ENV"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		JWTIssuer:           v.GetString("JWT_ISSUER"),
		JWTAudience:         v.GetString("JWT_AUDIENCE"),
		AccessTokenTTL:      v.GetDuration("JWT_ACCESS_TTL"),
		RefreshTokenTTL:     v.GetDuration("JWT_REFRESH_TTL"),
		SessionCookieName:   v.GetString("SESSION_COOKIE_NAME"),
		SessionCookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
		CORSAllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		AWSRegion:           v.GetString("AWS_REGION"),
		AWSS3Bucket:         v.GetString("AWS_S3_BUCKET"),
		AWSAccessKeyID:      v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:  v.GetString("AWS_SECRET_ACCESS_KEY"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		ImportMaxErrors:     v.GetInt("IMPORT_MAX_ERRORS"),
		SeedAdmin:           v.GetBool("SEED_ADMIN"),
		EnvFile:             envFile,
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	current = config
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "development")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "agency-sales-api")
	v.SetDefault("JWT_AUDIENCE", "agency-sales-clients")
	v.SetDefault("JWT_ACCESS_TTL", time.Hour)
	v.SetDefault("JWT_REFRESH_TTL", 30*24*time.Hour)
	v.SetDefault("SESSION_COOKIE_NAME", "session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_S3_BUCKET", "")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("IMPORT_MAX_ERRORS", 10)
	v.SetDefault("SEED_ADMIN", false)
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrNoDatabaseURL
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = "dev-secret-key"
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.ImportMaxErrors <= 0 {
		c.ImportMaxErrors = 10
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// ArchiveEnabled reports whether exports can be archived to S3
func (c *Config) ArchiveEnabled() bool {
	return c.AWSS3Bucket != ""
}

// GetConfig returns the most recently loaded configuration
func GetConfig() *Config {
	return current
}

// SetConfig replaces the current configuration (primarily for testing)
func SetConfig(cfg *Config) {
	current = cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
