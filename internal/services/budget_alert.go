package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

// claimBudgetAlert flips the budget's alert latch and records the alert in a
// single store transaction. The latch update is conditional on alert_sent
// still being false, so of any number of concurrent callers exactly one gets
// a notification back; the rest get nil. If the insert fails the claim rolls
// back with it and the next sweep retries.
func claimBudgetAlert(ctx context.Context, db *gorm.DB, budget *models.Budget, spent decimal.Decimal) (*models.Notification, error) {
	var notification *models.Notification

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Budget{}).
			Where("id = ? AND alert_sent = ?", budget.ID, false).
			UpdateColumn("alert_sent", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		n := newBudgetAlert(budget, spent)
		if err := tx.Create(n).Error; err != nil {
			return err
		}
		notification = n
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if notification != nil {
		budget.AlertSent = true
	}
	return notification, nil
}

func newBudgetAlert(budget *models.Budget, spent decimal.Decimal) *models.Notification {
	snapshot := *budget
	snapshot.Spent = spent
	pct := snapshot.PercentageSpent()

	return &models.Notification{
		UserID: budget.UserID,
		Type:   models.NotificationBudgetAlert,
		Title:  fmt.Sprintf("Budget Alert: %s", budget.Category),
		Message: fmt.Sprintf("You've spent %s%% of your %s budget (%s of %s)",
			pct.StringFixed(1), budget.Category, spent.StringFixed(2), budget.Amount.StringFixed(2)),
		Metadata: models.Metadata{
			"budget_id":       budget.ID,
			"category":        string(budget.Category),
			"month":           budget.Month,
			"year":            budget.Year,
			"spent":           spent.StringFixed(2),
			"amount":          budget.Amount.StringFixed(2),
			"percentage":      pct.StringFixed(2),
			"alert_threshold": budget.AlertThreshold,
		},
	}
}
