package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/services"
	"fintrack/internal/testutil"
)

type countingReconciler struct {
	sweeps atomic.Int32
	err    error
	lastAt atomic.Value
}

func (r *countingReconciler) Sweep(_ context.Context, now time.Time) (*services.SweepResult, error) {
	r.sweeps.Add(1)
	r.lastAt.Store(now)
	if r.err != nil {
		return nil, r.err
	}
	return &services.SweepResult{Period: models.PeriodOf(now)}, nil
}

func (r *countingReconciler) Recalculate(context.Context, string, models.Period) ([]models.Budget, error) {
	return nil, nil
}

var _ services.Reconciler = (*countingReconciler)(nil)

func TestSweeperRunOnce(t *testing.T) {
	r := &countingReconciler{}
	s := NewSweeper(r, time.Hour)
	s.now = func() time.Time { return testutil.FixedNow }

	result, err := s.RunOnce(context.Background())
	testutil.AssertNoError(t, err)

	if result.Period != (models.Period{Month: 3, Year: 2025}) {
		t.Errorf("expected March 2025, got %+v", result.Period)
	}
	if got := r.lastAt.Load().(time.Time); !got.Equal(testutil.FixedNow) {
		t.Errorf("expected sweep at %v, got %v", testutil.FixedNow, got)
	}
}

func TestSweeperRun(t *testing.T) {
	t.Run("sweeps_on_start_and_each_tick", func(t *testing.T) {
		r := &countingReconciler{}
		s := NewSweeper(r, 10*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		deadline := time.After(2 * time.Second)
		for r.sweeps.Load() < 3 {
			select {
			case <-deadline:
				t.Fatalf("expected at least 3 sweeps, got %d", r.sweeps.Load())
			case <-time.After(5 * time.Millisecond):
			}
		}
		cancel()

		select {
		case err := <-done:
			testutil.AssertNoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop after cancellation")
		}
	})

	t.Run("failed_sweep_keeps_running", func(t *testing.T) {
		r := &countingReconciler{err: errors.New("database unavailable")}
		s := NewSweeper(r, 10*time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		testutil.AssertNoError(t, s.Run(ctx))
		if r.sweeps.Load() < 2 {
			t.Errorf("expected sweeps to continue after failures, got %d", r.sweeps.Load())
		}
	})
}

func TestSweeperAgainstStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	notifications := services.NewNotificationService(db, nil)
	s := NewSweeper(services.NewReconciler(db, notifications), time.Hour)
	s.now = func() time.Time { return testutil.FixedNow }

	userID := testutil.NewUserID()
	budget := testutil.CreateTestBudget(t, db, userID, models.CategoryGroceries, "100", models.PeriodOf(testutil.FixedNow))
	testutil.CreateTestTransaction(t, db, userID, models.TransactionTypeExpense, models.CategoryGroceries, "95", testutil.FixedNow)

	result, err := s.RunOnce(context.Background())
	testutil.AssertNoError(t, err)

	if result.Alerted != 1 {
		t.Errorf("expected 1 alert, got %+v", *result)
	}
	if !testutil.ReloadBudget(t, db, budget.ID).AlertSent {
		t.Error("expected alert_sent to be true")
	}
}
