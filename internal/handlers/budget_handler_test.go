package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// --- mock budget service ---

type mockBudgetService struct {
	createBudgetFn      func(ctx context.Context, userID string, input services.CreateBudgetInput) (*models.Budget, error)
	getUserBudgetsFn    func(ctx context.Context, userID string, period models.Period) ([]models.Budget, error)
	getBudgetByIDFn     func(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	updateBudgetFn      func(ctx context.Context, userID, budgetID string, amount *decimal.Decimal, alertThreshold *int) (*models.Budget, error)
	deleteBudgetFn      func(ctx context.Context, userID, budgetID string) error
	getBudgetProgressFn func(ctx context.Context, userID, budgetID string) (*services.BudgetProgress, error)
	recalculateFn       func(ctx context.Context, userID string, period models.Period) ([]models.Budget, error)
}

func (m *mockBudgetService) CreateBudget(ctx context.Context, userID string, input services.CreateBudgetInput) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(ctx, userID, input)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) GetUserBudgets(ctx context.Context, userID string, period models.Period) ([]models.Budget, error) {
	if m.getUserBudgetsFn != nil {
		return m.getUserBudgetsFn(ctx, userID, period)
	}
	return []models.Budget{}, nil
}

func (m *mockBudgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	if m.getBudgetByIDFn != nil {
		return m.getBudgetByIDFn(ctx, userID, budgetID)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) UpdateBudget(ctx context.Context, userID, budgetID string, amount *decimal.Decimal, alertThreshold *int) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(ctx, userID, budgetID, amount, alertThreshold)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(ctx, userID, budgetID)
	}
	return nil
}

func (m *mockBudgetService) GetBudgetProgress(ctx context.Context, userID, budgetID string) (*services.BudgetProgress, error) {
	if m.getBudgetProgressFn != nil {
		return m.getBudgetProgressFn(ctx, userID, budgetID)
	}
	return &services.BudgetProgress{}, nil
}

func (m *mockBudgetService) Recalculate(ctx context.Context, userID string, period models.Period) ([]models.Budget, error) {
	if m.recalculateFn != nil {
		return m.recalculateFn(ctx, userID, period)
	}
	return []models.Budget{}, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/budgets", handler.CreateBudget)
	auth.GET("/budgets", handler.GetBudgets)
	auth.POST("/budgets/recalculate", handler.Recalculate)
	auth.GET("/budgets/:id", handler.GetBudget)
	auth.GET("/budgets/:id/progress", handler.GetBudgetProgress)
	auth.PUT("/budgets/:id", handler.UpdateBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	return r
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 with explicit period", func(t *testing.T) {
		var got services.CreateBudgetInput
		budgetSvc := &mockBudgetService{
			createBudgetFn: func(_ context.Context, userID string, input services.CreateBudgetInput) (*models.Budget, error) {
				got = input
				return &models.Budget{
					Base:     models.Base{ID: testID},
					UserID:   userID,
					Category: input.Category,
					Amount:   input.Amount,
					Month:    input.Period.Month,
					Year:     input.Period.Year,
				}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(budgetSvc, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/budgets",
			`{"category":"Food & Drinks","amount":"100","alert_threshold":80,"month":3,"year":2025}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Period != (models.Period{Month: 3, Year: 2025}) {
			t.Errorf("unexpected period %+v", got.Period)
		}
		if got.AlertThreshold == nil || *got.AlertThreshold != 80 {
			t.Errorf("expected threshold 80, got %v", got.AlertThreshold)
		}
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["category"] != "Food & Drinks" {
			t.Errorf("unexpected category %v", budget["category"])
		}
	})

	t.Run("defaults to the current period", func(t *testing.T) {
		var got services.CreateBudgetInput
		budgetSvc := &mockBudgetService{
			createBudgetFn: func(_ context.Context, _ string, input services.CreateBudgetInput) (*models.Budget, error) {
				got = input
				return &models.Budget{Base: models.Base{ID: testID}}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(budgetSvc, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/budgets", `{"category":"Groceries","amount":"250"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Period != models.PeriodOf(time.Now()) {
			t.Errorf("expected current period, got %+v", got.Period)
		}
		if got.AlertThreshold != nil {
			t.Errorf("expected no threshold, got %v", *got.AlertThreshold)
		}
	})

	t.Run("returns 400 for an income category", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/budgets", `{"category":"Salary","amount":"100"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 for threshold above 100", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/budgets", `{"category":"Groceries","amount":"100","alert_threshold":101}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 for month 13", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/budgets", `{"category":"Groceries","amount":"100","month":13}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_GetBudgets(t *testing.T) {
	t.Run("lists budgets for the requested period", func(t *testing.T) {
		var got models.Period
		budgetSvc := &mockBudgetService{
			getUserBudgetsFn: func(_ context.Context, _ string, period models.Period) ([]models.Budget, error) {
				got = period
				return []models.Budget{{Base: models.Base{ID: testID}, Category: models.CategoryRent}}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(budgetSvc, &mockAuditService{}))

		rec := doRequest(r, http.MethodGet, "/budgets?month=1&year=2025", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got != (models.Period{Month: 1, Year: 2025}) {
			t.Errorf("unexpected period %+v", got)
		}
		budgets := parseJSON(t, rec)["budgets"].([]interface{})
		if len(budgets) != 1 {
			t.Errorf("expected 1 budget, got %d", len(budgets))
		}
	})
}

func TestBudgetHandler_GetBudget(t *testing.T) {
	t.Run("returns 404 for a foreign budget", func(t *testing.T) {
		budgetSvc := &mockBudgetService{
			getBudgetByIDFn: func(context.Context, string, string) (*models.Budget, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(budgetSvc, &mockAuditService{}))

		rec := doRequest(r, http.MethodGet, "/budgets/"+testID, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}

func TestBudgetHandler_UpdateBudget(t *testing.T) {
	t.Run("passes amount and threshold", func(t *testing.T) {
		budgetSvc := &mockBudgetService{
			updateBudgetFn: func(_ context.Context, _, _ string, amount *decimal.Decimal, threshold *int) (*models.Budget, error) {
				if amount == nil || !amount.Equal(decimal.NewFromInt(300)) {
					t.Errorf("expected amount 300, got %v", amount)
				}
				if threshold == nil || *threshold != 90 {
					t.Errorf("expected threshold 90, got %v", threshold)
				}
				return &models.Budget{Base: models.Base{ID: testID}, Amount: *amount, AlertThreshold: *threshold}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(budgetSvc, &mockAuditService{}))

		rec := doRequest(r, http.MethodPut, "/budgets/"+testID, `{"amount":"300","alert_threshold":90}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestBudgetHandler_DeleteBudget(t *testing.T) {
	t.Run("returns 200", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, audit))

		rec := doRequest(r, http.MethodDelete, "/budgets/"+testID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "DELETE_BUDGET" {
			t.Errorf("expected DELETE_BUDGET audit, got %v", audit.actions)
		}
	})
}

func TestBudgetHandler_GetBudgetProgress(t *testing.T) {
	t.Run("returns progress with drift", func(t *testing.T) {
		budgetSvc := &mockBudgetService{
			getBudgetProgressFn: func(_ context.Context, _, id string) (*services.BudgetProgress, error) {
				return &services.BudgetProgress{
					BudgetID:    id,
					Spent:       decimal.NewFromInt(90),
					LedgerSpent: decimal.NewFromInt(95),
					Drift:       decimal.NewFromInt(-5),
				}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(budgetSvc, &mockAuditService{}))

		rec := doRequest(r, http.MethodGet, "/budgets/"+testID+"/progress", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		progress := parseJSON(t, rec)["progress"].(map[string]interface{})
		if progress["drift"] != "-5" {
			t.Errorf("expected drift -5, got %v", progress["drift"])
		}
	})
}

func TestBudgetHandler_Recalculate(t *testing.T) {
	t.Run("recalculates the requested period", func(t *testing.T) {
		var got models.Period
		budgetSvc := &mockBudgetService{
			recalculateFn: func(_ context.Context, _ string, period models.Period) ([]models.Budget, error) {
				got = period
				return []models.Budget{}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(budgetSvc, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/budgets/recalculate", `{"month":3,"year":2025}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got != (models.Period{Month: 3, Year: 2025}) {
			t.Errorf("unexpected period %+v", got)
		}
	})

	t.Run("requires month and year", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/budgets/recalculate", `{"month":3}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
