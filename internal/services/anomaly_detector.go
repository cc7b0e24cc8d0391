package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"fintrack/internal/models"
)

// unusualSpendingFactor is how many times the category average a new expense
// must reach to count as unusual.
var unusualSpendingFactor = decimal.NewFromInt(2)

// anomalyDetector flags new expenses that stand out.
type anomalyDetector struct {
	db                 *gorm.DB
	notifications      NotificationServicer
	highValueThreshold decimal.Decimal
}

// NewAnomalyDetector creates a new AnomalyDetector. Expenses at or above
// highValueThreshold are reported regardless of history.
func NewAnomalyDetector(db *gorm.DB, notifications NotificationServicer, highValueThreshold decimal.Decimal) AnomalyDetector {
	return &anomalyDetector{
		db:                 db,
		notifications:      notifications,
		highValueThreshold: highValueThreshold,
	}
}

// Inspect runs both checks; one failing does not skip the other.
func (d *anomalyDetector) Inspect(ctx context.Context, t *models.Transaction) error {
	if !t.IsExpense() {
		return nil
	}

	var errs error
	errs = multierr.Append(errs, d.checkUnusualSpending(ctx, t))
	errs = multierr.Append(errs, d.checkHighValue(ctx, t))
	return errs
}

func (d *anomalyDetector) checkUnusualSpending(ctx context.Context, t *models.Transaction) error {
	var average decimal.NullDecimal
	row := d.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("AVG(amount)").
		Where("user_id = ? AND category = ? AND type = ? AND id <> ?",
			t.UserID, t.Category, models.TransactionTypeExpense, t.ID).
		Row()
	if err := row.Scan(&average); err != nil {
		return fmt.Errorf("average %s expenses: %w", t.Category, err)
	}
	if !average.Valid {
		return nil
	}

	if t.Amount.LessThan(average.Decimal.Mul(unusualSpendingFactor)) {
		return nil
	}

	return d.notifications.Create(ctx, &models.Notification{
		UserID: t.UserID,
		Type:   models.NotificationUnusualSpending,
		Title:  "Unusual Spending Detected",
		Message: fmt.Sprintf("Your recent %s transaction of %s is significantly higher than your average of %s",
			t.Category, t.Amount.StringFixed(2), average.Decimal.StringFixed(2)),
		Metadata: models.Metadata{
			"transaction_id": t.ID,
			"category":       string(t.Category),
			"amount":         t.Amount.StringFixed(2),
			"average":        average.Decimal.StringFixed(2),
		},
	})
}

func (d *anomalyDetector) checkHighValue(ctx context.Context, t *models.Transaction) error {
	if t.Amount.LessThan(d.highValueThreshold) {
		return nil
	}

	return d.notifications.Create(ctx, &models.Notification{
		UserID:  t.UserID,
		Type:    models.NotificationHighExpense,
		Title:   "High-Value Transaction",
		Message: fmt.Sprintf("You made a large %s of %s in %s", t.Type, t.Amount.StringFixed(2), t.Category),
		Metadata: models.Metadata{
			"transaction_id": t.ID,
			"category":       string(t.Category),
			"amount":         t.Amount.StringFixed(2),
			"threshold":      d.highValueThreshold.StringFixed(2),
		},
	})
}
