package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalStatus is the lifecycle state of a savings goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusCancelled GoalStatus = "cancelled"
)

// IsValid reports whether s is a known goal status.
func (s GoalStatus) IsValid() bool {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is allowed.
func (s GoalStatus) IsTerminal() bool {
	return s == GoalStatusCompleted || s == GoalStatusCancelled
}

// GoalCategory groups savings goals.
type GoalCategory string

const (
	GoalCategoryEmergencyFund GoalCategory = "Emergency Fund"
	GoalCategoryVacation      GoalCategory = "Vacation"
	GoalCategoryElectronics   GoalCategory = "Electronics"
	GoalCategoryEducation     GoalCategory = "Education"
	GoalCategoryHome          GoalCategory = "Home"
	GoalCategoryVehicle       GoalCategory = "Vehicle"
	GoalCategoryOther         GoalCategory = "Other"
)

// GoalCategories lists every goal category.
var GoalCategories = []GoalCategory{
	GoalCategoryEmergencyFund,
	GoalCategoryVacation,
	GoalCategoryElectronics,
	GoalCategoryEducation,
	GoalCategoryHome,
	GoalCategoryVehicle,
	GoalCategoryOther,
}

// IsValid reports whether c is a known goal category.
func (c GoalCategory) IsValid() bool {
	for _, g := range GoalCategories {
		if c == g {
			return true
		}
	}
	return false
}

// Goal is a savings target the owner contributes to over time.
type Goal struct {
	Base
	UserID        string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name          string          `gorm:"not null" json:"name"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"current_amount"`
	Deadline      time.Time       `gorm:"not null" json:"deadline"`
	Category      GoalCategory    `gorm:"not null;default:'Other'" json:"category"`
	Status        GoalStatus      `gorm:"not null;default:'active';index" json:"status"`
	Icon          string          `json:"icon,omitempty"`
}

// ProgressPercentage is current as a percentage of target, 0 when target is 0.
func (g *Goal) ProgressPercentage() decimal.Decimal {
	return percentageOf(g.CurrentAmount, g.TargetAmount)
}

// Remaining is the amount still needed, never negative.
func (g *Goal) Remaining() decimal.Decimal {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// RequiredMonthlySaving spreads the remaining amount over the whole months
// left until the deadline, counting at least one month.
func (g *Goal) RequiredMonthlySaving(now time.Time) decimal.Decimal {
	months := monthsBetween(now, g.Deadline)
	if months < 1 {
		months = 1
	}
	return g.Remaining().Div(decimal.NewFromInt(int64(months))).Round(2)
}

// IsReached reports whether the target has been met.
func (g *Goal) IsReached() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

func monthsBetween(from, to time.Time) int {
	from, to = from.UTC(), to.UTC()
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return months
}

// GoalView is a goal with its derived figures, as returned by the API.
type GoalView struct {
	Goal
	ProgressPercentage    decimal.Decimal `json:"progress_percentage"`
	RequiredMonthlySaving decimal.Decimal `json:"required_monthly_saving"`
}

// NewGoalView computes the derived figures of g at now.
func NewGoalView(g Goal, now time.Time) GoalView {
	return GoalView{
		Goal:                  g,
		ProgressPercentage:    g.ProgressPercentage().Round(2),
		RequiredMonthlySaving: g.RequiredMonthlySaving(now),
	}
}
