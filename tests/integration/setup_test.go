package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/handlers"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/services"
	"fintrack/internal/testutil"
	"fintrack/internal/uuid"
	"fintrack/internal/validator"
)

const testJobsAPIKey = "integration-jobs-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)

	// Services
	auditService := services.NewAuditService(db)
	notificationService := services.NewNotificationService(db, nil)
	maintainer := services.NewAggregateMaintainer(db, notificationService)
	detector := services.NewAnomalyDetector(db, notificationService, decimal.NewFromInt(50000))
	reconciler := services.NewReconciler(db, notificationService)
	transactionService := services.NewTransactionService(db, maintainer, detector, nil, nil)
	budgetService := services.NewBudgetService(db, maintainer, reconciler)
	goalService := services.NewGoalService(db, notificationService)

	// Handlers
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	goalHandler := handlers.NewGoalHandler(goalService, auditService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	categoryHandler := handlers.NewCategoryHandler()
	jobsHandler := handlers.NewJobsHandler(reconciler)

	// Router
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")
	v1.GET("/categories", categoryHandler.GetCategories)

	jobs := v1.Group("/jobs")
	jobs.Use(middleware.APIKeyMiddleware(testJobsAPIKey))
	jobs.POST("/sweep", jobsHandler.Sweep)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.POST("/recalculate", budgetHandler.Recalculate)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetGoals)
	goals.GET("/:id", goalHandler.GetGoal)
	goals.PUT("/:id", goalHandler.UpdateGoal)
	goals.POST("/:id/add", goalHandler.AddAmount)

	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.GetNotifications)
	notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
	notifications.PUT("/:id/read", notificationHandler.MarkAsRead)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return app.serve(req)
}

// serve runs a prepared request through the router.
func (app *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// newUser returns a fresh owner id and an access token for it.
func newUser(t *testing.T) (userID, token string) {
	t.Helper()
	userID = uuid.New()
	token, err := middleware.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return userID, token
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// object extracts a nested JSON object from a response.
func object(t *testing.T, result map[string]interface{}, key string) map[string]interface{} {
	t.Helper()
	obj, ok := result[key].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object at %q, got %T", key, result[key])
	}
	return obj
}

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

// assertDecimalField compares a decimal rendered as a JSON string.
func assertDecimalField(t *testing.T, obj map[string]interface{}, key, want string) {
	t.Helper()
	raw, ok := obj[key].(string)
	if !ok {
		t.Fatalf("expected %q to be a decimal string, got %T", key, obj[key])
	}
	got, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("invalid decimal %q at %q: %v", raw, key, err)
	}
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected %s = %s, got %s", key, want, raw)
	}
}

// errorCode returns the error code from an error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	code, _ := object(t, parseJSON(t, rec), "error")["code"].(string)
	return code
}
