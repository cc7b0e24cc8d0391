package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"fintrack/internal/amqp"
	"fintrack/internal/attachments"
	"fintrack/internal/config"
	"fintrack/internal/database"
	_ "fintrack/internal/docs" // Import swagger docs
	"fintrack/internal/handlers"
	"fintrack/internal/jobs"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/services"
	"fintrack/internal/textgen"
	"fintrack/internal/validator"
)

// @title           Fintrack API
// @version         1.0
// @description     Budget ledger with spending alerts, savings goals and notifications.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey APIKeyAuth
// @in header
// @name X-API-Key

const shutdownTimeout = 15 * time.Second

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.LogLevel != "" {
		if err := logger.SetLevel(appConfig.LogLevel); err != nil {
			return err
		}
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := newCollaborators(ctx, appConfig)
	if err != nil {
		return err
	}
	defer cleanup()

	app := newApp(dbManager.DB(), appConfig, deps)

	validator.Register()
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           newRouter(app, appConfig),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Starting Fintrack server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if appConfig.SweepInterval > 0 {
		sweeper := jobs.NewSweeper(app.reconciler, appConfig.SweepInterval)
		g.Go(func() error {
			return sweeper.Run(gctx)
		})
	} else {
		log.Info("Reconciliation sweeper disabled (SWEEP_INTERVAL=0)")
	}

	return g.Wait()
}

// collaborators are the optional external services. Each field stays nil
// when its configuration is absent.
type collaborators struct {
	generator textgen.Generator
	receipts  attachments.Store
	publisher services.NotificationPublisher
}

func newCollaborators(ctx context.Context, cfg *config.Config) (*collaborators, func(), error) {
	log := logger.Get()
	deps := &collaborators{}
	var closers []func() error

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warnw("failed to close collaborator", "error", err)
			}
		}
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := textgen.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		deps.generator = gemini
		log.Infow("Text generation enabled", "model", cfg.GeminiModel)
	} else {
		log.Info("Text generation disabled (GEMINI_API_KEY not set)")
	}

	if cfg.GCSBucket != "" {
		store, err := attachments.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to create GCS store: %w", err)
		}
		deps.receipts = store
		closers = append(closers, store.Close)
		log.Infow("Receipt attachments enabled", "bucket", cfg.GCSBucket)
	} else {
		log.Info("Receipt attachments disabled (GCS_BUCKET not set)")
	}

	if cfg.AMQPURL != "" {
		publisher, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect notification publisher: %w", err)
		}
		deps.publisher = publisher
		closers = append(closers, publisher.Close)
		log.Infow("Notification fan-out enabled", "exchange", cfg.AMQPExchange)
	}

	return deps, cleanup, nil
}

type app struct {
	reconciler          services.Reconciler
	transactionHandler  *handlers.TransactionHandler
	budgetHandler       *handlers.BudgetHandler
	goalHandler         *handlers.GoalHandler
	notificationHandler *handlers.NotificationHandler
	aiHandler           *handlers.AIHandler
	categoryHandler     *handlers.CategoryHandler
	jobsHandler         *handlers.JobsHandler
}

func newApp(db *gorm.DB, cfg *config.Config, deps *collaborators) *app {
	auditService := services.NewAuditService(db)
	notificationService := services.NewNotificationService(db, deps.publisher)
	maintainer := services.NewAggregateMaintainer(db, notificationService)
	detector := services.NewAnomalyDetector(db, notificationService, cfg.HighValueThreshold)
	reconciler := services.NewReconciler(db, notificationService)

	var categorizer services.CategorySuggester
	if deps.generator != nil {
		categorizer = textgen.NewCategorizer(deps.generator)
	}

	transactionService := services.NewTransactionService(db, maintainer, detector, categorizer, deps.receipts)
	budgetService := services.NewBudgetService(db, maintainer, reconciler)
	goalService := services.NewGoalService(db, notificationService)
	aiService := services.NewAIService(db, deps.generator)

	return &app{
		reconciler:          reconciler,
		transactionHandler:  handlers.NewTransactionHandler(transactionService, auditService),
		budgetHandler:       handlers.NewBudgetHandler(budgetService, auditService),
		goalHandler:         handlers.NewGoalHandler(goalService, auditService),
		notificationHandler: handlers.NewNotificationHandler(notificationService),
		aiHandler:           handlers.NewAIHandler(aiService),
		categoryHandler:     handlers.NewCategoryHandler(),
		jobsHandler:         handlers.NewJobsHandler(reconciler),
	}
}

func newRouter(a *app, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogging())
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	v1.GET("/categories", a.categoryHandler.GetCategories)

	jobsGroup := v1.Group("/jobs")
	jobsGroup.Use(middleware.APIKeyMiddleware(cfg.JobsAPIKey))
	jobsGroup.POST("/sweep", a.jobsHandler.Sweep)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	transactions := protected.Group("/transactions")
	transactions.POST("", a.transactionHandler.CreateTransaction)
	transactions.GET("", a.transactionHandler.GetUserTransactions)
	transactions.GET("/:id", a.transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", a.transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", a.transactionHandler.DeleteTransaction)
	transactions.POST("/:id/receipt", a.transactionHandler.UploadReceipt)

	budgets := protected.Group("/budgets")
	budgets.POST("", a.budgetHandler.CreateBudget)
	budgets.GET("", a.budgetHandler.GetBudgets)
	budgets.POST("/recalculate", a.budgetHandler.Recalculate)
	budgets.GET("/:id", a.budgetHandler.GetBudget)
	budgets.GET("/:id/progress", a.budgetHandler.GetBudgetProgress)
	budgets.PUT("/:id", a.budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", a.budgetHandler.DeleteBudget)

	goals := protected.Group("/goals")
	goals.POST("", a.goalHandler.CreateGoal)
	goals.GET("", a.goalHandler.GetGoals)
	goals.GET("/:id", a.goalHandler.GetGoal)
	goals.PUT("/:id", a.goalHandler.UpdateGoal)
	goals.DELETE("/:id", a.goalHandler.DeleteGoal)
	goals.POST("/:id/add", a.goalHandler.AddAmount)

	notifications := protected.Group("/notifications")
	notifications.GET("", a.notificationHandler.GetNotifications)
	notifications.DELETE("", a.notificationHandler.ClearAll)
	notifications.PUT("/read-all", a.notificationHandler.MarkAllAsRead)
	notifications.PUT("/:id/read", a.notificationHandler.MarkAsRead)
	notifications.DELETE("/:id", a.notificationHandler.DeleteNotification)

	ai := protected.Group("/ai")
	ai.POST("/categorize", a.aiHandler.Categorize)
	ai.POST("/insights", a.aiHandler.Insights)

	return router
}
