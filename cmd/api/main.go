package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"divvy/internal/config"
	"divvy/internal/database"
	"divvy/internal/handlers"
	"divvy/internal/logger"
	"divvy/internal/middleware"
	"divvy/internal/services"
	"divvy/internal/validator"

	_ "divvy/internal/docs" // Import swagger docs
)

// @title           Divvy API
// @version         1.0
// @description     Divvy is an expense sharing service: it splits shared costs, keeps pairwise balances, and settles debts with netted transfers.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	groupService := services.NewGroupService(db)
	ledgerService := services.NewLedgerService(db)
	expenseService := services.NewExpenseService(db, ledgerService, groupService)
	transactionService := services.NewTransactionService(db, ledgerService, groupService)
	settlementService := services.NewSettlementService(db, ledgerService, groupService)
	activityService := services.NewActivityService(db, groupService)
	auditService := services.NewAuditService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	groupHandler := handlers.NewGroupHandler(groupService, auditService)
	expenseHandler := handlers.NewExpenseHandler(expenseService, ledgerService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, activityService, auditService)
	settlementHandler := handlers.NewSettlementHandler(settlementService, auditService)
	balanceHandler := handlers.NewBalanceHandler(ledgerService, userService, groupService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Metrics())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Group routes
	groups := protected.Group("/groups")
	groups.POST("", groupHandler.CreateGroup)
	groups.GET("", groupHandler.ListGroups)
	groups.GET("/:id", groupHandler.GetGroup)
	groups.POST("/:id/members", groupHandler.AddMember)
	groups.GET("/:id/expenses", expenseHandler.ListGroupExpenses)
	groups.GET("/:id/activity", transactionHandler.GetGroupActivity)
	groups.GET("/:id/balances", balanceHandler.GetGroupBalances)

	// Expense routes
	expenses := protected.Group("/expenses")
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("/:id", expenseHandler.GetExpense)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	// Transaction routes
	protected.POST("/payments", transactionHandler.CreateDirectPayment)
	transactions := protected.Group("/transactions")
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)

	// Activity feed
	protected.GET("/activity", transactionHandler.GetActivity)

	// Balance routes
	balances := protected.Group("/balances")
	balances.GET("", balanceHandler.ListBalances)
	balances.GET("/users/:id", balanceHandler.GetPairBalance)

	// Settlement routes
	settlements := protected.Group("/settlements")
	settlements.POST("/users/:id", settlementHandler.SettleDirect)
	settlements.POST("/groups/:id", settlementHandler.SettleGroup)
	settlements.POST("/expenses/:id", settlementHandler.SettleExpense)

	log.Infof("Starting Divvy backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
