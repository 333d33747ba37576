package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/middleware"
	"github.com/kendall-kelly/agency-sales-api/services"
	"go.uber.org/zap"
)

// Default super admin created when SEED_ADMIN is set and none exists
const (
	seedAdminUsername = "admin"
	seedAdminEmail    = "admin@example.com"
	seedAdminPassword = "admin123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := middleware.NewLogger(cfg.GoEnv, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting Agency Sales API server...", zap.String("env", cfg.GoEnv))
	if cfg.EnvFile != "" {
		logger.Info("Loaded configuration file", zap.String("file", cfg.EnvFile))
	} else {
		logger.Info("No .env file found, using system environment variables")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	if err := config.ConnectDatabase(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migration completed successfully")

	if cfg.SeedAdmin {
		created, err := services.NewUserService(db).SeedSuperAdmin(seedAdminUsername, seedAdminEmail, seedAdminPassword)
		if err != nil {
			logger.Fatal("Failed to seed super admin", zap.Error(err))
		}
		if created {
			logger.Warn("Created default super admin, change its password", zap.String("username", seedAdminUsername))
		}
	}

	if cfg.ArchiveEnabled() {
		s3Service, err := services.NewS3Service(context.Background(), cfg)
		if err != nil {
			logger.Fatal("Failed to initialize S3", zap.Error(err))
		}
		services.SetArchiveService(services.NewArchiveService(s3Service))
		logger.Info("Export archive enabled", zap.String("bucket", cfg.AWSS3Bucket))
	}

	metrics := middleware.NewMetrics()
	middleware.SetMetrics(metrics)

	router := setupRouter(cfg, logger, metrics)

	addr := ":" + cfg.Port
	logger.Info("Server is running", zap.String("addr", "http://localhost"+addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
