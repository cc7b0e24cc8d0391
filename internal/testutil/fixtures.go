package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// FixedNow is the reference instant used by tests that depend on the current period.
var FixedNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

// NewUserID returns a fresh owner id.
func NewUserID() string {
	return uuid.New()
}

// Dec parses a decimal literal, failing the test on malformed input.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

// CreateTestTransaction inserts a ledger row directly, bypassing the aggregate maintainer.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, category models.Category, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Category:    category,
		Amount:      Dec(t, amount),
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Date:        date.UTC(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget inserts a budget with zero spent and the default threshold.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, category models.Category, amount string, period models.Period) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:         userID,
		Category:       category,
		Month:          period.Month,
		Year:           period.Year,
		Amount:         Dec(t, amount),
		Spent:          decimal.Zero,
		AlertThreshold: models.DefaultAlertThreshold,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal inserts an active goal with the given target, due in six months.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string, target string) *models.Goal {
	t.Helper()

	goal := &models.Goal{
		UserID:        userID,
		Name:          fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount:  Dec(t, target),
		CurrentAmount: decimal.Zero,
		Deadline:      FixedNow.AddDate(0, 6, 0),
		Category:      models.GoalCategoryOther,
		Status:        models.GoalStatusActive,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}

// ReloadBudget reads the current state of a budget.
func ReloadBudget(t *testing.T, db *gorm.DB, id string) *models.Budget {
	t.Helper()

	var budget models.Budget
	if err := db.First(&budget, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload budget %s: %v", id, err)
	}
	return &budget
}

// CountNotifications counts stored notifications of one type for an owner.
func CountNotifications(t *testing.T, db *gorm.DB, userID string, notifType models.NotificationType) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, notifType).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count notifications: %v", err)
	}
	return count
}
