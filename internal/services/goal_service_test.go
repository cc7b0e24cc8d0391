package services

import (
	"context"
	"sync"
	"testing"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func goalInput(t *testing.T, target, current string) CreateGoalInput {
	t.Helper()
	return CreateGoalInput{
		Name:          "Emergency fund",
		TargetAmount:  testutil.Dec(t, target),
		CurrentAmount: testutil.Dec(t, current),
		Deadline:      testutil.FixedNow.AddDate(1, 0, 0),
		Category:      models.GoalCategoryEmergencyFund,
	}
}

func TestCreateGoal(t *testing.T) {
	ctx := context.Background()

	t.Run("active", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))

		goal, err := svc.CreateGoal(ctx, testutil.NewUserID(), goalInput(t, "10000", "500"))
		testutil.AssertNoError(t, err)

		if goal.Status != models.GoalStatusActive {
			t.Errorf("expected active, got %q", goal.Status)
		}
	})

	t.Run("created_at_target_completes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		userID := testutil.NewUserID()

		goal, err := svc.CreateGoal(ctx, userID, goalInput(t, "1000", "1000"))
		testutil.AssertNoError(t, err)

		if goal.Status != models.GoalStatusCompleted {
			t.Errorf("expected completed, got %q", goal.Status)
		}
		if n := testutil.CountNotifications(t, db, userID, models.NotificationGoalProgress); n != 1 {
			t.Errorf("expected 1 goal_progress notification, got %d", n)
		}
	})

	t.Run("defaults_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		input := goalInput(t, "1000", "0")
		input.Category = ""

		goal, err := svc.CreateGoal(ctx, testutil.NewUserID(), input)
		testutil.AssertNoError(t, err)

		if goal.Category != models.GoalCategoryOther {
			t.Errorf("expected %q, got %q", models.GoalCategoryOther, goal.Category)
		}
	})

	t.Run("validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		userID := testutil.NewUserID()

		zeroTarget := goalInput(t, "0", "0")
		_, err := svc.CreateGoal(ctx, userID, zeroTarget)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		negative := goalInput(t, "100", "-1")
		_, err = svc.CreateGoal(ctx, userID, negative)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		blank := goalInput(t, "100", "0")
		blank.Name = "  "
		_, err = svc.CreateGoal(ctx, userID, blank)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAddAmount(t *testing.T) {
	ctx := context.Background()

	t.Run("reaching_target_completes_once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		userID := testutil.NewUserID()
		goal := testutil.CreateTestGoal(t, db, userID, "1000")

		g, err := svc.AddAmount(ctx, userID, goal.ID, testutil.Dec(t, "600"))
		testutil.AssertNoError(t, err)
		if g.Status != models.GoalStatusActive {
			t.Fatalf("expected active at 600, got %q", g.Status)
		}

		g, err = svc.AddAmount(ctx, userID, goal.ID, testutil.Dec(t, "400"))
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "1000", g.CurrentAmount)
		if g.Status != models.GoalStatusCompleted {
			t.Errorf("expected completed, got %q", g.Status)
		}

		// Contributions after completion still accumulate.
		g, err = svc.AddAmount(ctx, userID, goal.ID, testutil.Dec(t, "50"))
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "1050", g.CurrentAmount)
		if g.Status != models.GoalStatusCompleted {
			t.Errorf("expected completed to be terminal, got %q", g.Status)
		}
		if n := testutil.CountNotifications(t, db, userID, models.NotificationGoalProgress); n != 1 {
			t.Errorf("expected 1 goal_progress notification, got %d", n)
		}
	})

	t.Run("cent_contributions_reach_target", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		userID := testutil.NewUserID()
		goal := testutil.CreateTestGoal(t, db, userID, "0.30")

		_, err := svc.AddAmount(ctx, userID, goal.ID, testutil.Dec(t, "0.10"))
		testutil.AssertNoError(t, err)
		g, err := svc.AddAmount(ctx, userID, goal.ID, testutil.Dec(t, "0.20"))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, "0.30", g.CurrentAmount)
		if g.Status != models.GoalStatusCompleted {
			t.Errorf("expected completed at exactly the target, got %q", g.Status)
		}
	})

	t.Run("cancelled_goal_stays_cancelled", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		userID := testutil.NewUserID()
		goal := testutil.CreateTestGoal(t, db, userID, "100")
		db.Model(goal).Update("status", models.GoalStatusCancelled)

		g, err := svc.AddAmount(ctx, userID, goal.ID, testutil.Dec(t, "500"))
		testutil.AssertNoError(t, err)

		if g.Status != models.GoalStatusCancelled {
			t.Errorf("expected cancelled, got %q", g.Status)
		}
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		userID := testutil.NewUserID()
		goal := testutil.CreateTestGoal(t, db, userID, "100")

		_, err := svc.AddAmount(ctx, userID, goal.ID, testutil.Dec(t, "0"))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("concurrent_contributions_complete_once", func(t *testing.T) {
		db := testutil.SetupConcurrentTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		userID := testutil.NewUserID()
		goal := testutil.CreateTestGoal(t, db, userID, "100")

		const workers = 8
		contribution := testutil.Dec(t, "25")
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.AddAmount(ctx, userID, goal.ID, contribution)
			}()
		}
		wg.Wait()

		stored, err := svc.GetGoalByID(ctx, userID, goal.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "200", stored.CurrentAmount)
		if stored.Status != models.GoalStatusCompleted {
			t.Errorf("expected completed, got %q", stored.Status)
		}
		if n := testutil.CountNotifications(t, db, userID, models.NotificationGoalProgress); n != 1 {
			t.Errorf("expected exactly 1 goal_progress notification, got %d", n)
		}
	})
}

func TestUpdateGoal(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel_active", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		userID := testutil.NewUserID()
		goal := testutil.CreateTestGoal(t, db, userID, "100")

		cancelled := models.GoalStatusCancelled
		g, err := svc.UpdateGoal(ctx, userID, goal.ID, UpdateGoalInput{Status: &cancelled})
		testutil.AssertNoError(t, err)
		if g.Status != models.GoalStatusCancelled {
			t.Errorf("expected cancelled, got %q", g.Status)
		}

		active := models.GoalStatusActive
		_, err = svc.UpdateGoal(ctx, userID, goal.ID, UpdateGoalInput{Status: &active})
		testutil.AssertAppError(t, err, "GOAL_NOT_ACTIVE")
	})

	t.Run("cannot_complete_by_hand", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		userID := testutil.NewUserID()
		goal := testutil.CreateTestGoal(t, db, userID, "100")

		completed := models.GoalStatusCompleted
		_, err := svc.UpdateGoal(ctx, userID, goal.ID, UpdateGoalInput{Status: &completed})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("lowering_target_completes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		userID := testutil.NewUserID()
		goal := testutil.CreateTestGoal(t, db, userID, "1000")
		_, err := svc.AddAmount(ctx, userID, goal.ID, testutil.Dec(t, "300"))
		testutil.AssertNoError(t, err)

		target := testutil.Dec(t, "300")
		g, err := svc.UpdateGoal(ctx, userID, goal.ID, UpdateGoalInput{TargetAmount: &target})
		testutil.AssertNoError(t, err)

		if g.Status != models.GoalStatusCompleted {
			t.Errorf("expected completed, got %q", g.Status)
		}
	})

	t.Run("other_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewGoalService(db, NewNotificationService(db, nil))
		goal := testutil.CreateTestGoal(t, db, testutil.NewUserID(), "100")

		name := "mine now"
		_, err := svc.UpdateGoal(ctx, testutil.NewUserID(), goal.ID, UpdateGoalInput{Name: &name})
		testutil.AssertAppError(t, err, "GOAL_NOT_FOUND")
	})
}

func TestGetUserGoalsAndDelete(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := NewGoalService(db, NewNotificationService(db, nil))
	userID := testutil.NewUserID()
	first := testutil.CreateTestGoal(t, db, userID, "100")
	second := testutil.CreateTestGoal(t, db, userID, "200")
	db.Model(second).Update("status", models.GoalStatusCancelled)

	all, err := svc.GetUserGoals(ctx, userID, nil)
	testutil.AssertNoError(t, err)
	if len(all) != 2 {
		t.Fatalf("expected 2 goals, got %d", len(all))
	}

	active := models.GoalStatusActive
	onlyActive, err := svc.GetUserGoals(ctx, userID, &active)
	testutil.AssertNoError(t, err)
	if len(onlyActive) != 1 || onlyActive[0].ID != first.ID {
		t.Errorf("expected only the active goal, got %d", len(onlyActive))
	}

	bogus := models.GoalStatus("paused")
	_, err = svc.GetUserGoals(ctx, userID, &bogus)
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	testutil.AssertNoError(t, svc.DeleteGoal(ctx, userID, first.ID))
	_, err = svc.GetGoalByID(ctx, userID, first.ID)
	testutil.AssertAppError(t, err, "GOAL_NOT_FOUND")
	testutil.AssertAppError(t, svc.DeleteGoal(ctx, userID, first.ID), "GOAL_NOT_FOUND")
}
