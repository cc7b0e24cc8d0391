package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// aggregateMaintainer applies ledger deltas to budgets' cached spent.
//
// Each delta is one UPDATE ... SET spent = spent + ? statement, so concurrent
// writers against the same budget never lose an update. Spent is a cache over
// the ledger: anything that bypasses Apply/Retract is repaired by Recalculate,
// and threshold crossings it hides are caught by the sweep.
type aggregateMaintainer struct {
	db            *gorm.DB
	notifications NotificationServicer
}

// NewAggregateMaintainer creates a new AggregateMaintainer.
func NewAggregateMaintainer(db *gorm.DB, notifications NotificationServicer) AggregateMaintainer {
	return &aggregateMaintainer{db: db, notifications: notifications}
}

// Apply adds an expense to its budget. A missing budget is a no-op.
func (m *aggregateMaintainer) Apply(tx *gorm.DB, t *models.Transaction) error {
	return m.shift(tx, t, t.Amount)
}

// Retract removes an expense from its budget. It never touches alert_sent.
func (m *aggregateMaintainer) Retract(tx *gorm.DB, t *models.Transaction) error {
	return m.shift(tx, t, t.Amount.Neg())
}

func (m *aggregateMaintainer) shift(tx *gorm.DB, t *models.Transaction, delta decimal.Decimal) error {
	if !t.IsExpense() || delta.IsZero() {
		return nil
	}

	period := t.Period()
	result := tx.Model(&models.Budget{}).
		Scopes(budgetKey(t.UserID, t.Category, period)).
		UpdateColumn("spent", gorm.Expr("ROUND(spent + ?, 2)", delta))
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}

	if result.RowsAffected > 0 {
		logger.Get().Debugw("budget spent adjusted",
			"user_id", t.UserID,
			"category", t.Category,
			"month", period.Month,
			"year", period.Year,
			"delta", delta.String(),
		)
	}
	return nil
}

// CheckThreshold alerts once when the budget's cached spent meets its
// threshold. Only the caller that wins the conditional latch update emits.
func (m *aggregateMaintainer) CheckThreshold(ctx context.Context, userID string, category models.Category, period models.Period) error {
	var budget models.Budget
	err := m.db.WithContext(ctx).
		Scopes(budgetKey(userID, category, period)).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if budget.AlertSent || !budget.CrossesThreshold(budget.Spent) {
		return nil
	}

	n, err := claimBudgetAlert(ctx, m.db, &budget, budget.Spent)
	if err != nil {
		return err
	}
	if n != nil {
		m.notifications.Published(ctx, n)
	}
	return nil
}
