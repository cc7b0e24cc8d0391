package textgen

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/models"

	"github.com/shopspring/decimal"
)

const categorizeInstructions = "You categorize personal finance transactions. " +
	"Answer with exactly one category name from the list you are given and nothing else."

// Categorizer maps a free-text description onto the fixed category vocabulary.
type Categorizer struct {
	gen Generator
}

// NewCategorizer returns a categorizer. A nil generator always yields the fallback category.
func NewCategorizer(gen Generator) *Categorizer {
	return &Categorizer{gen: gen}
}

// Categorize returns a category valid for txType. Output outside the
// vocabulary yields the fallback with a nil error; a generator failure yields
// the fallback together with the error so callers can decide whether to surface it.
func (c *Categorizer) Categorize(ctx context.Context, description string, amount decimal.Decimal, txType models.TransactionType) (models.Category, error) {
	fallback := models.FallbackCategory(txType)
	if c == nil || c.gen == nil {
		return fallback, nil
	}

	out, err := c.gen.Generate(ctx, categorizePrompt(description, amount, txType), categorizeInstructions)
	if err != nil {
		return fallback, err
	}

	if category, ok := matchCategory(out, txType); ok {
		return category, nil
	}
	return fallback, nil
}

func categorizePrompt(description string, amount decimal.Decimal, txType models.TransactionType) string {
	names := make([]string, 0, len(models.CategoriesFor(txType)))
	for _, c := range models.CategoriesFor(txType) {
		names = append(names, string(c))
	}

	return fmt.Sprintf("Categorize this %s transaction.\nDescription: %q\nAmount: %s\nCategories: %s",
		txType, description, amount.StringFixed(2), strings.Join(names, ", "))
}

// matchCategory accepts the model output when, after trimming quotes and
// punctuation, it names a category case-insensitively.
func matchCategory(out string, txType models.TransactionType) (models.Category, bool) {
	cleaned := strings.Trim(strings.TrimSpace(out), "\"'`.*")
	cleaned = strings.TrimSpace(cleaned)
	for _, c := range models.CategoriesFor(txType) {
		if strings.EqualFold(cleaned, string(c)) {
			return c, true
		}
	}
	return "", false
}
