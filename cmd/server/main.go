package main

import (
	"context" // Context for the Redis ping

	"github.com/Abiya4/expense-tracker/internal/api"        // API handlers
	"github.com/Abiya4/expense-tracker/internal/config"     // Configuration
	"github.com/Abiya4/expense-tracker/internal/db"         // Versioned schema migrations
	"github.com/Abiya4/expense-tracker/internal/ledger"     // Balance ledger core
	"github.com/Abiya4/expense-tracker/internal/middleware" // Middleware
	"github.com/Abiya4/expense-tracker/internal/utils"      // Password hashing

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the database
	gdb, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Apply any unapplied schema migrations on startup
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to migrate schema: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// The ledger owns every balance mutation
	lgr := ledger.New(gdb)
	hasher := utils.BcryptHasher{}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default() // Gin router instance
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	r.Use(middleware.RequestIDMiddleware())

	// Auth routes
	r.POST("/signup", api.SignupHandler(gdb, hasher))
	r.POST("/login", api.LoginHandler(gdb, hasher, cfg.JWTSecret))

	// User routes (JWT, user role)
	userGroup := r.Group("/")
	userGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.UserOnlyMiddleware())
	userGroup.GET("/balance", api.GetBalanceHandler(lgr, redisClient))
	userGroup.GET("/expenses", api.ListExpensesHandler(gdb, redisClient))
	userGroup.POST("/expenses", api.AddExpenseHandler(lgr, redisClient))
	userGroup.PUT("/expenses/:id", api.EditExpenseHandler(lgr, redisClient))
	userGroup.DELETE("/expenses/:id", api.DeleteExpenseHandler(lgr, redisClient))
	userGroup.POST("/expenses/sync", api.SyncExpensesHandler(lgr, redisClient))

	// Admin routes (JWT, role re-checked against the database)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(gdb))
	adminGroup.GET("/users", api.ListUsersHandler(gdb))
	adminGroup.PATCH("/users/:id/active", api.SetUserActiveHandler(gdb))
	adminGroup.DELETE("/users/:id", api.DeleteUserHandler(gdb))
	adminGroup.GET("/expenses", api.ListAllExpensesHandler(gdb))
	adminGroup.GET("/analytics", api.AnalyticsHandler(gdb))

	logrus.Infof("Server running on %s", cfg.AppPort)
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}
