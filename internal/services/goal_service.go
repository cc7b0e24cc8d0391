package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

// goalService handles savings goals and their status transitions.
type goalService struct {
	db            *gorm.DB
	notifications NotificationServicer
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB, notifications NotificationServicer) GoalServicer {
	return &goalService{db: db, notifications: notifications}
}

// CreateGoal creates an active savings goal. A goal created already at its
// target completes immediately.
func (s *goalService) CreateGoal(ctx context.Context, userID string, input CreateGoalInput) (*models.Goal, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}
	if !input.TargetAmount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target_amount must be greater than zero")
	}
	if input.CurrentAmount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "current_amount cannot be negative")
	}
	if input.Deadline.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "deadline is required")
	}

	category := input.Category
	if category == "" {
		category = models.GoalCategoryOther
	}
	if !category.IsValid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported goal category "+string(category))
	}

	goal := &models.Goal{
		UserID:        userID,
		Name:          name,
		TargetAmount:  input.TargetAmount,
		CurrentAmount: input.CurrentAmount,
		Deadline:      input.Deadline.UTC(),
		Category:      category,
		Status:        models.GoalStatusActive,
		Icon:          input.Icon,
	}

	if err := s.db.WithContext(ctx).Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.completeIfReached(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// GetUserGoals lists the owner's goals, optionally by status, nearest deadline first.
func (s *goalService) GetUserGoals(ctx context.Context, userID string, status *models.GoalStatus) ([]models.Goal, error) {
	q := s.db.WithContext(ctx).Scopes(models.OwnedBy(userID))
	if status != nil {
		if !status.IsValid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be active, completed or cancelled")
		}
		q = q.Where("status = ?", *status)
	}

	goals := []models.Goal{}
	if err := q.Order("deadline").Order("id").Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goals, nil
}

// GetGoalByID returns a goal by ID if it belongs to the user.
func (s *goalService) GetGoalByID(ctx context.Context, userID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.WithContext(ctx).Scopes(models.OwnedRecord(goalID, userID)).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// UpdateGoal edits a goal's details. The only status change accepted is an
// active goal being cancelled; completed and cancelled goals are terminal.
func (s *goalService) UpdateGoal(ctx context.Context, userID, goalID string, input UpdateGoalInput) (*models.Goal, error) {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name cannot be empty")
		}
		updates["name"] = name
		goal.Name = name
	}
	if input.TargetAmount != nil {
		if !input.TargetAmount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target_amount must be greater than zero")
		}
		updates["target_amount"] = *input.TargetAmount
		goal.TargetAmount = *input.TargetAmount
	}
	if input.Deadline != nil {
		updates["deadline"] = input.Deadline.UTC()
		goal.Deadline = input.Deadline.UTC()
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported goal category "+string(*input.Category))
		}
		updates["category"] = *input.Category
		goal.Category = *input.Category
	}
	if input.Icon != nil {
		updates["icon"] = *input.Icon
		goal.Icon = *input.Icon
	}

	cancel := false
	if input.Status != nil && *input.Status != goal.Status {
		if goal.Status.IsTerminal() {
			return nil, apperrors.ErrGoalNotActive
		}
		if *input.Status != models.GoalStatusCancelled {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "an active goal can only be cancelled")
		}
		cancel = true
	}

	db := s.db.WithContext(ctx)
	if len(updates) > 0 {
		if err := db.Model(goal).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if cancel {
		result := db.Model(&models.Goal{}).
			Where("id = ? AND status = ?", goal.ID, models.GoalStatusActive).
			Update("status", models.GoalStatusCancelled)
		if result.Error != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.ErrGoalNotActive
		}
		goal.Status = models.GoalStatusCancelled
		return goal, nil
	}

	if err := s.completeIfReached(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// DeleteGoal soft-deletes a goal.
func (s *goalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	result := s.db.WithContext(ctx).Scopes(models.OwnedRecord(goalID, userID)).Delete(&models.Goal{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrGoalNotFound
	}
	return nil
}

// AddAmount adds a contribution. Contributions to completed or cancelled
// goals still accumulate but never change their status.
func (s *goalService) AddAmount(ctx context.Context, userID, goalID string, amount decimal.Decimal) (*models.Goal, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Goal{}).
		Where("id = ?", goal.ID).
		UpdateColumn("current_amount", gorm.Expr("ROUND(current_amount + ?, 2)", amount)).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := db.Select("current_amount", "status").Where("id = ?", goal.ID).Take(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.completeIfReached(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// completeIfReached moves an active goal that has met its target to
// completed. The transition is a conditional update, so concurrent
// contributions complete a goal exactly once and only that caller notifies.
func (s *goalService) completeIfReached(ctx context.Context, goal *models.Goal) error {
	if goal.Status != models.GoalStatusActive || !goal.IsReached() {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&models.Goal{}).
		Where("id = ? AND status = ? AND current_amount >= target_amount", goal.ID, models.GoalStatusActive).
		Update("status", models.GoalStatusCompleted)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}
	goal.Status = models.GoalStatusCompleted

	notification := &models.Notification{
		UserID:  goal.UserID,
		Type:    models.NotificationGoalProgress,
		Title:   "Goal Reached: " + goal.Name,
		Message: fmt.Sprintf("You've saved %s of your %s goal", goal.CurrentAmount.StringFixed(2), goal.TargetAmount.StringFixed(2)),
		Metadata: models.Metadata{
			"goal_id":        goal.ID,
			"target_amount":  goal.TargetAmount.StringFixed(2),
			"current_amount": goal.CurrentAmount.StringFixed(2),
			"completed_at":   time.Now().UTC().Format(time.RFC3339),
		},
	}
	runHook(ctx, "goal_completed_notification", func(ctx context.Context) error {
		return s.notifications.Create(ctx, notification)
	}, "goal_id", goal.ID, "user_id", goal.UserID)
	return nil
}
