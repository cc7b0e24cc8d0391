package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// reconciler compares budgets with the ledger they are derived from.
//
// Each budget is handled with its own statements: a failure on one budget is
// recorded and the pass moves on, keeping whatever progress was made.
type reconciler struct {
	db            *gorm.DB
	notifications NotificationServicer
}

// NewReconciler creates a new Reconciler.
func NewReconciler(db *gorm.DB, notifications NotificationServicer) Reconciler {
	return &reconciler{db: db, notifications: notifications}
}

// Sweep re-validates every unalerted budget of the period containing now.
// Spent is recomputed from the ledger for the threshold check only; the
// cached value is left as is. The pass ignores cancellation of ctx and runs
// to completion.
func (r *reconciler) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.Named("sweeper")
	period := models.PeriodOf(now)
	result := &SweepResult{Period: period}

	var budgets []models.Budget
	if err := r.db.WithContext(ctx).
		Where("month = ? AND year = ? AND alert_sent = ?", period.Month, period.Year, false).
		Order("id").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range budgets {
		budget := &budgets[i]
		result.Checked++

		alerted, err := r.revalidate(ctx, budget)
		if err != nil {
			result.Failed++
			log.Errorw("failed to re-validate budget",
				"error", err,
				"budget_id", budget.ID,
				"user_id", budget.UserID,
			)
			continue
		}
		if alerted {
			result.Alerted++
		}
	}

	log.Infow("sweep finished",
		"month", period.Month,
		"year", period.Year,
		"checked", result.Checked,
		"alerted", result.Alerted,
		"failed", result.Failed,
	)
	return result, nil
}

func (r *reconciler) revalidate(ctx context.Context, budget *models.Budget) (bool, error) {
	spent, err := ledgerSpent(r.db.WithContext(ctx), budget.UserID, budget.Category, budget.Period())
	if err != nil {
		return false, err
	}
	if !budget.CrossesThreshold(spent) {
		return false, nil
	}

	n, err := claimBudgetAlert(ctx, r.db, budget, spent)
	if err != nil {
		return false, err
	}
	if n == nil {
		return false, nil
	}
	r.notifications.Published(ctx, n)
	return true, nil
}

// Recalculate overwrites spent with the ledger sum for every budget the owner
// has in period. alert_sent is not touched.
func (r *reconciler) Recalculate(ctx context.Context, userID string, period models.Period) ([]models.Budget, error) {
	db := r.db.WithContext(ctx)

	var budgets []models.Budget
	if err := db.Where("user_id = ? AND month = ? AND year = ?", userID, period.Month, period.Year).
		Order("category").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var errs error
	for i := range budgets {
		budget := &budgets[i]
		if err := refreshSpent(db, budget); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("budget %s: %w", budget.ID, err))
			logger.Get().Errorw("failed to recalculate budget",
				"error", err,
				"budget_id", budget.ID,
				"user_id", userID,
			)
		}
	}

	if errs != nil {
		return budgets, apperrors.Wrap(apperrors.ErrInternalServer, errs)
	}
	return budgets, nil
}
