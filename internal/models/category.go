package models

// Category is one of the fixed transaction categories. The vocabulary is
// closed: budgets, the categorizer and the validator all draw from it.
type Category string

// Expense categories.
const (
	CategoryFoodAndDrinks  Category = "Food & Drinks"
	CategoryTransportation Category = "Transportation"
	CategoryShopping       Category = "Shopping"
	CategoryEntertainment  Category = "Entertainment"
	CategoryBillsUtilities Category = "Bills & Utilities"
	CategoryHealthcare     Category = "Healthcare"
	CategoryEducation      Category = "Education"
	CategoryTravel         Category = "Travel"
	CategoryGroceries      Category = "Groceries"
	CategoryRent           Category = "Rent"
	CategoryInsurance      Category = "Insurance"
	CategoryOtherExpense   Category = "Other Expense"
)

// Income categories.
const (
	CategorySalary      Category = "Salary"
	CategoryFreelance   Category = "Freelance"
	CategoryInvestment  Category = "Investment"
	CategoryGift        Category = "Gift"
	CategoryOtherIncome Category = "Other Income"
)

// ExpenseCategories lists every category an expense (and therefore a budget) may use.
var ExpenseCategories = []Category{
	CategoryFoodAndDrinks,
	CategoryTransportation,
	CategoryShopping,
	CategoryEntertainment,
	CategoryBillsUtilities,
	CategoryHealthcare,
	CategoryEducation,
	CategoryTravel,
	CategoryGroceries,
	CategoryRent,
	CategoryInsurance,
	CategoryOtherExpense,
}

// IncomeCategories lists every category an income transaction may use.
var IncomeCategories = []Category{
	CategorySalary,
	CategoryFreelance,
	CategoryInvestment,
	CategoryGift,
	CategoryOtherIncome,
}

// IsValid reports whether c belongs to the category vocabulary.
func (c Category) IsValid() bool {
	return c.IsExpense() || c.IsIncome()
}

// IsExpense reports whether c is an expense category.
func (c Category) IsExpense() bool {
	for _, e := range ExpenseCategories {
		if c == e {
			return true
		}
	}
	return false
}

// IsIncome reports whether c is an income category.
func (c Category) IsIncome() bool {
	for _, i := range IncomeCategories {
		if c == i {
			return true
		}
	}
	return false
}

// AllowsType reports whether a transaction of type t may be filed under c.
func (c Category) AllowsType(t TransactionType) bool {
	switch t {
	case TransactionTypeExpense:
		return c.IsExpense()
	case TransactionTypeIncome:
		return c.IsIncome()
	default:
		return false
	}
}

// FallbackCategory is used when no better category is known for type t.
func FallbackCategory(t TransactionType) Category {
	if t == TransactionTypeIncome {
		return CategoryOtherIncome
	}
	return CategoryOtherExpense
}

// CategoriesFor returns the vocabulary for transactions of type t.
func CategoriesFor(t TransactionType) []Category {
	if t == TransactionTypeIncome {
		return IncomeCategories
	}
	return ExpenseCategories
}
