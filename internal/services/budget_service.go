package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db         *gorm.DB
	maintainer AggregateMaintainer
	reconciler Reconciler
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, maintainer AggregateMaintainer, reconciler Reconciler) BudgetServicer {
	return &budgetService{db: db, maintainer: maintainer, reconciler: reconciler}
}

// CreateBudget upserts the budget for (owner, category, period). A new budget
// starts from the ledger sum; an existing one keeps its spent and alert
// latch and only takes the new amount and threshold.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, input CreateBudgetInput) (*models.Budget, error) {
	if !input.Category.IsExpense() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCategory, "budgets can only be set for expense categories")
	}
	if !input.Period.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12 and year must be positive")
	}
	if err := validateBudgetFigures(&input.Amount, input.AlertThreshold); err != nil {
		return nil, err
	}

	threshold := models.DefaultAlertThreshold
	if input.AlertThreshold != nil {
		threshold = *input.AlertThreshold
	}

	budget := &models.Budget{
		UserID:         userID,
		Category:       input.Category,
		Month:          input.Period.Month,
		Year:           input.Period.Year,
		Amount:         input.Amount,
		Spent:          decimal.Zero,
		AlertThreshold: threshold,
	}

	var stored models.Budget
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "category"}, {Name: "month"}, {Name: "year"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "alert_threshold", "updated_at"}),
		}).Create(budget).Error; err != nil {
			return err
		}
		if err := tx.Scopes(budgetKey(userID, input.Category, input.Period)).First(&stored).Error; err != nil {
			return err
		}
		if stored.ID != budget.ID {
			return nil
		}
		// Freshly inserted: derive spent after the row exists, so an expense
		// committed in between is counted here or applied to the row as a delta.
		return refreshSpent(tx, &stored)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.checkThreshold(ctx, &stored)
	return &stored, nil
}

func validateBudgetFigures(amount *decimal.Decimal, alertThreshold *int) error {
	if amount != nil && amount.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount cannot be negative")
	}
	if alertThreshold != nil && (*alertThreshold < 0 || *alertThreshold > 100) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "alert_threshold must be between 0 and 100")
	}
	return nil
}

// checkThreshold re-runs the alert check after the amount or threshold moved.
func (s *budgetService) checkThreshold(ctx context.Context, budget *models.Budget) {
	if budget.AlertSent {
		return
	}
	runHook(ctx, "budget_threshold", func(ctx context.Context) error {
		return s.maintainer.CheckThreshold(ctx, budget.UserID, budget.Category, budget.Period())
	}, "budget_id", budget.ID, "user_id", budget.UserID)
}

// GetUserBudgets returns the owner's budgets for one period, ordered by category.
func (s *budgetService) GetUserBudgets(ctx context.Context, userID string, period models.Period) ([]models.Budget, error) {
	if !period.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12 and year must be positive")
	}

	budgets := []models.Budget{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND month = ? AND year = ?", userID, period.Month, period.Year).
		Order("category").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.WithContext(ctx).Scopes(models.OwnedRecord(budgetID, userID)).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget changes the allotted amount and/or alert threshold. Spent and
// the alert latch are never written here.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, amount *decimal.Decimal, alertThreshold *int) (*models.Budget, error) {
	if err := validateBudgetFigures(amount, alertThreshold); err != nil {
		return nil, err
	}

	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if amount != nil {
		updates["amount"] = *amount
		budget.Amount = *amount
	}
	if alertThreshold != nil {
		updates["alert_threshold"] = *alertThreshold
		budget.AlertThreshold = *alertThreshold
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.checkThreshold(ctx, budget)
	}

	return budget, nil
}

// DeleteBudget removes a budget permanently so its key can be reused.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	result := s.db.WithContext(ctx).Unscoped().
		Scopes(models.OwnedRecord(budgetID, userID)).
		Delete(&models.Budget{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrBudgetNotFound
	}
	return nil
}

// GetBudgetProgress reports the cached figures next to a fresh ledger sum so
// callers can see drift without repairing it.
func (s *budgetService) GetBudgetProgress(ctx context.Context, userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	ledger, err := ledgerSpent(s.db.WithContext(ctx), userID, budget.Category, budget.Period())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &BudgetProgress{
		BudgetID:       budget.ID,
		Category:       budget.Category,
		Month:          budget.Month,
		Year:           budget.Year,
		Budgeted:       budget.Amount,
		Spent:          budget.Spent,
		LedgerSpent:    ledger,
		Drift:          budget.Spent.Sub(ledger),
		Remaining:      budget.Remaining(),
		Percentage:     budget.PercentageSpent().Round(2),
		AlertThreshold: budget.AlertThreshold,
		AlertSent:      budget.AlertSent,
	}, nil
}

// Recalculate is the authoritative repair of every budget in the period.
func (s *budgetService) Recalculate(ctx context.Context, userID string, period models.Period) ([]models.Budget, error) {
	if !period.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("invalid period %d-%02d", period.Year, period.Month))
	}
	return s.reconciler.Recalculate(ctx, userID, period)
}
