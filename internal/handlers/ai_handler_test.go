package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// --- mock AI service ---

type mockAIService struct {
	categorizeFn       func(ctx context.Context, description string, amount decimal.Decimal, txType models.TransactionType) (models.Category, error)
	generateInsightsFn func(ctx context.Context, userID string, period models.Period) (*services.Insights, error)
}

func (m *mockAIService) Categorize(ctx context.Context, description string, amount decimal.Decimal, txType models.TransactionType) (models.Category, error) {
	if m.categorizeFn != nil {
		return m.categorizeFn(ctx, description, amount, txType)
	}
	return models.CategoryOtherExpense, nil
}

func (m *mockAIService) GenerateInsights(ctx context.Context, userID string, period models.Period) (*services.Insights, error) {
	if m.generateInsightsFn != nil {
		return m.generateInsightsFn(ctx, userID, period)
	}
	return &services.Insights{Period: period}, nil
}

var _ services.AIServicer = (*mockAIService)(nil)

func setupAIRouter(handler *AIHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/ai/categorize", handler.Categorize)
	auth.POST("/ai/insights", handler.Insights)
	return r
}

func TestAIHandler_Categorize(t *testing.T) {
	t.Run("returns suggested category", func(t *testing.T) {
		svc := &mockAIService{
			categorizeFn: func(_ context.Context, desc string, _ decimal.Decimal, _ models.TransactionType) (models.Category, error) {
				if desc != "Uber to airport" {
					t.Errorf("unexpected description %q", desc)
				}
				return models.CategoryTransportation, nil
			},
		}
		r := setupAIRouter(NewAIHandler(svc))

		rec := doRequest(r, http.MethodPost, "/ai/categorize", `{"description":"Uber to airport","amount":"35"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["category"] != "Transportation" {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("returns 400 without description", func(t *testing.T) {
		r := setupAIRouter(NewAIHandler(&mockAIService{}))

		rec := doRequest(r, http.MethodPost, "/ai/categorize", `{"amount":"35"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("surfaces upstream failures as 502", func(t *testing.T) {
		svc := &mockAIService{
			categorizeFn: func(context.Context, string, decimal.Decimal, models.TransactionType) (models.Category, error) {
				return "", apperrors.Wrap(apperrors.ErrUpstream, errors.New("quota exceeded"))
			},
		}
		r := setupAIRouter(NewAIHandler(svc))

		rec := doRequest(r, http.MethodPost, "/ai/categorize", `{"description":"Coffee"}`)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), apperrors.ErrUpstream.Code)
	})

	t.Run("returns 503 when not configured", func(t *testing.T) {
		svc := &mockAIService{
			categorizeFn: func(context.Context, string, decimal.Decimal, models.TransactionType) (models.Category, error) {
				return "", apperrors.ErrTextGenNotConfigured
			},
		}
		r := setupAIRouter(NewAIHandler(svc))

		rec := doRequest(r, http.MethodPost, "/ai/categorize", `{"description":"Coffee"}`)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestAIHandler_Insights(t *testing.T) {
	t.Run("returns insights for the period", func(t *testing.T) {
		svc := &mockAIService{
			generateInsightsFn: func(_ context.Context, userID string, period models.Period) (*services.Insights, error) {
				if userID != testUserID {
					t.Errorf("unexpected owner %s", userID)
				}
				return &services.Insights{Period: period, Text: "Spend less on coffee."}, nil
			},
		}
		r := setupAIRouter(NewAIHandler(svc))

		rec := doRequest(r, http.MethodPost, "/ai/insights", `{"month":3,"year":2025}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		insights := parseJSON(t, rec)["insights"].(map[string]interface{})
		if insights["insights"] != "Spend less on coffee." {
			t.Errorf("unexpected insights %v", insights)
		}
	})

	t.Run("returns 400 on invalid month", func(t *testing.T) {
		r := setupAIRouter(NewAIHandler(&mockAIService{}))

		rec := doRequest(r, http.MethodPost, "/ai/insights", `{"month":0,"year":2025}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
