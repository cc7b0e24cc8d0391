package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/models"
)

// moneyPlaces is the scale money columns are stored at. Sums and deltas are
// rounded to it in SQL because SQLite evaluates NUMERIC arithmetic as floats.
const moneyPlaces = 2

// sumAmount totals the selected ledger rows at money scale.
const sumAmount = "ROUND(COALESCE(SUM(amount), 0), 2)"

// budgetKey scopes a budget query to one (owner, category, period).
func budgetKey(userID string, category models.Category, period models.Period) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ? AND category = ? AND month = ? AND year = ?",
			userID, category, period.Month, period.Year)
	}
}

// ledgerExpenses selects the expense rows that a budget's spent is derived from.
func ledgerExpenses(db *gorm.DB, userID string, category models.Category, period models.Period) *gorm.DB {
	return db.Model(&models.Transaction{}).
		Where("user_id = ? AND category = ? AND type = ?", userID, category, models.TransactionTypeExpense).
		Where("date >= ? AND date < ?", period.Start(), period.End())
}

// ledgerSpent sums the expense ledger for one budget key.
func ledgerSpent(db *gorm.DB, userID string, category models.Category, period models.Period) (decimal.Decimal, error) {
	var spent decimal.Decimal
	row := ledgerExpenses(db, userID, category, period).
		Select(sumAmount).
		Row()
	if err := row.Scan(&spent); err != nil {
		return decimal.Zero, fmt.Errorf("sum ledger for %s/%s/%d-%02d: %w", userID, category, period.Year, period.Month, err)
	}
	return spent.Round(moneyPlaces), nil
}

// refreshSpent overwrites a budget's spent with its ledger sum. The sum and the
// write are one statement, so an expense committed concurrently is either
// counted here or applied afterwards as a delta, never lost.
func refreshSpent(db *gorm.DB, budget *models.Budget) error {
	sum := ledgerExpenses(db, budget.UserID, budget.Category, budget.Period()).
		Select(sumAmount)

	if err := db.Model(&models.Budget{}).
		Where("id = ?", budget.ID).
		UpdateColumn("spent", gorm.Expr("(?)", sum)).Error; err != nil {
		return err
	}

	if err := db.Select("spent").Where("id = ?", budget.ID).Take(budget).Error; err != nil {
		return err
	}
	budget.Spent = budget.Spent.Round(moneyPlaces)
	return nil
}
