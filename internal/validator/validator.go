// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"fintrack/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("category", validateCategory)
		_ = v.RegisterValidation("expense_category", validateExpenseCategory)
		_ = v.RegisterValidation("recurrence_frequency", validateRecurrenceFrequency)
		_ = v.RegisterValidation("goal_category", validateGoalCategory)
		_ = v.RegisterValidation("goal_status", validateGoalStatus)
	}
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).IsValid()
}

func validateCategory(fl validator.FieldLevel) bool {
	return models.Category(fl.Field().String()).IsValid()
}

func validateExpenseCategory(fl validator.FieldLevel) bool {
	return models.Category(fl.Field().String()).IsExpense()
}

func validateRecurrenceFrequency(fl validator.FieldLevel) bool {
	return models.Frequency(fl.Field().String()).IsValid()
}

func validateGoalCategory(fl validator.FieldLevel) bool {
	return models.GoalCategory(fl.Field().String()).IsValid()
}

func validateGoalStatus(fl validator.FieldLevel) bool {
	return models.GoalStatus(fl.Field().String()).IsValid()
}
