package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/textgen"
)

const insightsInstructions = "You are a personal finance assistant. Give three to five short, practical " +
	"observations about the user's month. Use only the figures you are given."

// aiService serves foreground text-generation requests. Unlike background
// categorization, upstream failures here are returned to the caller.
type aiService struct {
	db          *gorm.DB
	generator   textgen.Generator
	categorizer *textgen.Categorizer
}

// NewAIService creates a new AIServicer. A nil generator disables the AI endpoints.
func NewAIService(db *gorm.DB, generator textgen.Generator) AIServicer {
	return &aiService{
		db:          db,
		generator:   generator,
		categorizer: textgen.NewCategorizer(generator),
	}
}

// Categorize suggests a category for a description.
func (s *aiService) Categorize(ctx context.Context, description string, amount decimal.Decimal, txType models.TransactionType) (models.Category, error) {
	if s.generator == nil {
		return "", apperrors.ErrTextGenNotConfigured
	}
	if strings.TrimSpace(description) == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if txType == "" {
		txType = models.TransactionTypeExpense
	}
	if !txType.IsValid() {
		return "", apperrors.ErrInvalidTransactionType
	}

	category, err := s.categorizer.Categorize(ctx, description, amount, txType)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrUpstream, err)
	}
	return category, nil
}

type categoryTotal struct {
	Type     models.TransactionType
	Category models.Category
	Total    decimal.Decimal
}

// GenerateInsights summarizes the owner's ledger for a period and asks the
// model to comment on it.
func (s *aiService) GenerateInsights(ctx context.Context, userID string, period models.Period) (*Insights, error) {
	if s.generator == nil {
		return nil, apperrors.ErrTextGenNotConfigured
	}
	if !period.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12 and year must be positive")
	}

	var totals []categoryTotal
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("type, category, " + sumAmount + " AS total").
		Where("user_id = ? AND date >= ? AND date < ?", userID, period.Start(), period.End()).
		Group("type, category").
		Scan(&totals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	insights := &Insights{
		Period:     period,
		Income:     decimal.Zero,
		Expenses:   decimal.Zero,
		ByCategory: make(map[models.Category]decimal.Decimal),
	}
	for _, t := range totals {
		switch t.Type {
		case models.TransactionTypeIncome:
			insights.Income = insights.Income.Add(t.Total)
		case models.TransactionTypeExpense:
			insights.Expenses = insights.Expenses.Add(t.Total)
			insights.ByCategory[t.Category] = t.Total
		}
	}

	text, err := s.generator.Generate(ctx, insightsPrompt(insights), insightsInstructions)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUpstream, err)
	}
	insights.Text = text
	return insights, nil
}

func insightsPrompt(in *Insights) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Month: %d-%02d\n", in.Period.Year, in.Period.Month)
	fmt.Fprintf(&b, "Total income: %s\n", in.Income.StringFixed(2))
	fmt.Fprintf(&b, "Total expenses: %s\n", in.Expenses.StringFixed(2))
	fmt.Fprintf(&b, "Net: %s\n", in.Income.Sub(in.Expenses).StringFixed(2))

	categories := make([]string, 0, len(in.ByCategory))
	for c := range in.ByCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	b.WriteString("Expenses by category:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s: %s\n", c, in.ByCategory[models.Category(c)].StringFixed(2))
	}
	return b.String()
}
