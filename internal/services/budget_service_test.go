package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func newTestBudgetService(db *gorm.DB) BudgetServicer {
	notifications := NewNotificationService(db, nil)
	return NewBudgetService(db, NewAggregateMaintainer(db, notifications), NewReconciler(db, notifications))
}

func intPtr(v int) *int { return &v }

func TestCreateBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("starts_from_ledger_sum", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestBudgetService(db)
		userID := testutil.NewUserID()
		testutil.CreateTestTransaction(t, db, userID, models.TransactionTypeExpense, models.CategoryGroceries, "25", testutil.FixedNow)
		testutil.CreateTestTransaction(t, db, userID, models.TransactionTypeExpense, models.CategoryGroceries, "15", testutil.FixedNow)

		budget, err := svc.CreateBudget(ctx, userID, CreateBudgetInput{
			Category: models.CategoryGroceries,
			Amount:   testutil.Dec(t, "400"),
			Period:   march2025,
		})
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, "40", budget.Spent)
		if budget.AlertThreshold != models.DefaultAlertThreshold {
			t.Errorf("expected default threshold %d, got %d", models.DefaultAlertThreshold, budget.AlertThreshold)
		}
		if budget.AlertSent {
			t.Error("expected alert_sent to be false")
		}
	})

	t.Run("counts_expense_recorded_during_create", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestBudgetService(db)
		userID := testutil.NewUserID()
		testutil.CreateTestTransaction(t, db, userID, models.TransactionTypeExpense, models.CategoryGroceries, "25", testutil.FixedNow)

		// An expense lands right after the budget row is inserted.
		landed := false
		err := db.Callback().Create().After("gorm:create").Register("test:expense_after_budget_insert", func(tx *gorm.DB) {
			if tx.Statement.Table != "budgets" || landed {
				return
			}
			landed = true
			late := &models.Transaction{
				UserID:   userID,
				Type:     models.TransactionTypeExpense,
				Category: models.CategoryGroceries,
				Amount:   testutil.Dec(t, "35"),
				Date:     testutil.FixedNow,
			}
			if err := tx.Session(&gorm.Session{NewDB: true}).Create(late).Error; err != nil {
				t.Errorf("insert late expense: %v", err)
			}
		})
		testutil.AssertNoError(t, err)

		budget, err := svc.CreateBudget(ctx, userID, CreateBudgetInput{
			Category: models.CategoryGroceries,
			Amount:   testutil.Dec(t, "400"),
			Period:   march2025,
		})
		testutil.AssertNoError(t, err)

		if !landed {
			t.Fatal("expected the late expense to be inserted")
		}
		testutil.AssertDecimal(t, "60", budget.Spent)
		testutil.AssertDecimal(t, "60", testutil.ReloadBudget(t, db, budget.ID).Spent)
	})

	t.Run("upsert_keeps_spent_and_latch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestBudgetService(db)
		userID := testutil.NewUserID()
		first, err := svc.CreateBudget(ctx, userID, CreateBudgetInput{
			Category: models.CategoryGroceries,
			Amount:   testutil.Dec(t, "100"),
			Period:   march2025,
		})
		testutil.AssertNoError(t, err)
		db.Model(&models.Budget{}).Where("id = ?", first.ID).
			UpdateColumns(map[string]interface{}{"spent": "90", "alert_sent": true})

		second, err := svc.CreateBudget(ctx, userID, CreateBudgetInput{
			Category:       models.CategoryGroceries,
			Amount:         testutil.Dec(t, "500"),
			AlertThreshold: intPtr(50),
			Period:         march2025,
		})
		testutil.AssertNoError(t, err)

		if second.ID != first.ID {
			t.Errorf("expected the same budget, got %s and %s", first.ID, second.ID)
		}
		testutil.AssertDecimal(t, "500", second.Amount)
		testutil.AssertDecimal(t, "90", second.Spent)
		if second.AlertThreshold != 50 {
			t.Errorf("expected threshold 50, got %d", second.AlertThreshold)
		}
		if !second.AlertSent {
			t.Error("expected alert_sent to stay true")
		}

		var count int64
		db.Model(&models.Budget{}).Where("user_id = ?", userID).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 budget row, got %d", count)
		}
	})

	t.Run("already_over_threshold_alerts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestBudgetService(db)
		userID := testutil.NewUserID()
		testutil.CreateTestTransaction(t, db, userID, models.TransactionTypeExpense, models.CategoryGroceries, "90", testutil.FixedNow)

		budget, err := svc.CreateBudget(ctx, userID, CreateBudgetInput{
			Category: models.CategoryGroceries,
			Amount:   testutil.Dec(t, "100"),
			Period:   march2025,
		})
		testutil.AssertNoError(t, err)

		if !testutil.ReloadBudget(t, db, budget.ID).AlertSent {
			t.Error("expected alert_sent to be true")
		}
		if n := testutil.CountNotifications(t, db, userID, models.NotificationBudgetAlert); n != 1 {
			t.Errorf("expected 1 budget_alert, got %d", n)
		}
	})

	t.Run("income_category_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestBudgetService(db)

		_, err := svc.CreateBudget(ctx, testutil.NewUserID(), CreateBudgetInput{
			Category: models.CategorySalary,
			Amount:   testutil.Dec(t, "100"),
			Period:   march2025,
		})
		testutil.AssertAppError(t, err, "INVALID_CATEGORY")
	})

	t.Run("invalid_figures", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestBudgetService(db)
		userID := testutil.NewUserID()

		_, err := svc.CreateBudget(ctx, userID, CreateBudgetInput{
			Category: models.CategoryGroceries,
			Amount:   testutil.Dec(t, "-1"),
			Period:   march2025,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.CreateBudget(ctx, userID, CreateBudgetInput{
			Category:       models.CategoryGroceries,
			Amount:         testutil.Dec(t, "100"),
			AlertThreshold: intPtr(101),
			Period:         march2025,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.CreateBudget(ctx, userID, CreateBudgetInput{
			Category: models.CategoryGroceries,
			Amount:   testutil.Dec(t, "100"),
			Period:   models.Period{Month: 13, Year: 2025},
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestUpdateBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("lowering_amount_triggers_alert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestBudgetService(db)
		userID := testutil.NewUserID()
		budget := testutil.CreateTestBudget(t, db, userID, models.CategoryGroceries, "200", march2025)
		db.Model(budget).UpdateColumn("spent", "100")

		amount := testutil.Dec(t, "110")
		updated, err := svc.UpdateBudget(ctx, userID, budget.ID, &amount, nil)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, "110", updated.Amount)
		if n := testutil.CountNotifications(t, db, userID, models.NotificationBudgetAlert); n != 1 {
			t.Errorf("expected 1 budget_alert, got %d", n)
		}
	})

	t.Run("does_not_reset_latch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestBudgetService(db)
		userID := testutil.NewUserID()
		budget := testutil.CreateTestBudget(t, db, userID, models.CategoryGroceries, "100", march2025)
		db.Model(budget).UpdateColumns(map[string]interface{}{"spent": "90", "alert_sent": true})

		amount := testutil.Dec(t, "1000")
		_, err := svc.UpdateBudget(ctx, userID, budget.ID, &amount, intPtr(95))
		testutil.AssertNoError(t, err)

		reloaded := testutil.ReloadBudget(t, db, budget.ID)
		if !reloaded.AlertSent {
			t.Error("expected alert_sent to stay true")
		}
		testutil.AssertDecimal(t, "90", reloaded.Spent)
		if reloaded.AlertThreshold != 95 {
			t.Errorf("expected threshold 95, got %d", reloaded.AlertThreshold)
		}
	})

	t.Run("other_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestBudgetService(db)
		budget := testutil.CreateTestBudget(t, db, testutil.NewUserID(), models.CategoryGroceries, "100", march2025)

		amount := testutil.Dec(t, "1")
		_, err := svc.UpdateBudget(ctx, testutil.NewUserID(), budget.ID, &amount, nil)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}

func TestDeleteBudget(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := newTestBudgetService(db)
	userID := testutil.NewUserID()
	budget := testutil.CreateTestBudget(t, db, userID, models.CategoryGroceries, "100", march2025)

	testutil.AssertNoError(t, svc.DeleteBudget(ctx, userID, budget.ID))

	err := svc.DeleteBudget(ctx, userID, budget.ID)
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")

	// The key is free again.
	_, err = svc.CreateBudget(ctx, userID, CreateBudgetInput{
		Category: models.CategoryGroceries,
		Amount:   testutil.Dec(t, "100"),
		Period:   march2025,
	})
	testutil.AssertNoError(t, err)
}

func TestGetUserBudgets(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := newTestBudgetService(db)
	userID := testutil.NewUserID()
	testutil.CreateTestBudget(t, db, userID, models.CategoryRent, "1500", march2025)
	testutil.CreateTestBudget(t, db, userID, models.CategoryGroceries, "400", march2025)
	testutil.CreateTestBudget(t, db, userID, models.CategoryGroceries, "400", models.Period{Month: 4, Year: 2025})
	testutil.CreateTestBudget(t, db, testutil.NewUserID(), models.CategoryRent, "900", march2025)

	budgets, err := svc.GetUserBudgets(ctx, userID, march2025)
	testutil.AssertNoError(t, err)

	if len(budgets) != 2 {
		t.Fatalf("expected 2 budgets, got %d", len(budgets))
	}
	if budgets[0].Category != models.CategoryGroceries || budgets[1].Category != models.CategoryRent {
		t.Errorf("expected budgets ordered by category, got %q, %q", budgets[0].Category, budgets[1].Category)
	}
}

func TestGetBudgetProgress(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := newTestBudgetService(db)
	userID := testutil.NewUserID()
	budget := testutil.CreateTestBudget(t, db, userID, models.CategoryGroceries, "200", march2025)
	db.Model(budget).UpdateColumn("spent", "50")
	testutil.CreateTestTransaction(t, db, userID, models.TransactionTypeExpense, models.CategoryGroceries, "60", testutil.FixedNow)

	progress, err := svc.GetBudgetProgress(ctx, userID, budget.ID)
	testutil.AssertNoError(t, err)

	testutil.AssertDecimal(t, "50", progress.Spent)
	testutil.AssertDecimal(t, "60", progress.LedgerSpent)
	testutil.AssertDecimal(t, "-10", progress.Drift)
	testutil.AssertDecimal(t, "150", progress.Remaining)
	testutil.AssertDecimal(t, "25", progress.Percentage)
}

func TestGetBudgetProgress_CentAmountsHaveNoDrift(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := newTestBudgetService(db)
	transactions := newTestTransactionService(db, nil, nil)
	userID := testutil.NewUserID()
	budget := testutil.CreateTestBudget(t, db, userID, models.CategoryGroceries, "1", march2025)

	for _, amount := range []string{"0.10", "0.20"} {
		_, err := transactions.CreateTransaction(ctx, userID, expense(t, models.CategoryGroceries, amount))
		testutil.AssertNoError(t, err)
	}

	progress, err := svc.GetBudgetProgress(ctx, userID, budget.ID)
	testutil.AssertNoError(t, err)

	testutil.AssertDecimal(t, "0.30", progress.Spent)
	testutil.AssertDecimal(t, "0.30", progress.LedgerSpent)
	testutil.AssertDecimal(t, "0", progress.Drift)
	testutil.AssertDecimal(t, "0.70", progress.Remaining)
}

func TestBudgetServiceRecalculate(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := newTestBudgetService(db)
	userID := testutil.NewUserID()
	budget := testutil.CreateTestBudget(t, db, userID, models.CategoryGroceries, "200", march2025)
	testutil.CreateTestTransaction(t, db, userID, models.TransactionTypeExpense, models.CategoryGroceries, "60", testutil.FixedNow)

	budgets, err := svc.Recalculate(ctx, userID, march2025)
	testutil.AssertNoError(t, err)

	if len(budgets) != 1 || budgets[0].ID != budget.ID {
		t.Fatalf("expected the one budget back, got %d", len(budgets))
	}
	testutil.AssertDecimal(t, "60", budgets[0].Spent)

	_, err = svc.Recalculate(ctx, userID, models.Period{Month: 0, Year: 2025})
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}
