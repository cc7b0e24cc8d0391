package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAlertThreshold is the percentage of a budget at which an alert fires
// when none is given.
const DefaultAlertThreshold = 80

// Period is a calendar month in UTC.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// PeriodOf returns the period containing t, using its UTC month.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Month: int(u.Month()), Year: u.Year()}
}

// Valid reports whether the period names a real month.
func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year > 0
}

// Start is the first instant of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following period; ranges are half-open.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Budget is the cached spending aggregate for one owner, category and month.
type Budget struct {
	Base
	UserID         string          `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_key,priority:1" json:"user_id"`
	Category       Category        `gorm:"not null;uniqueIndex:idx_budgets_key,priority:2" json:"category"`
	Month          int             `gorm:"not null;uniqueIndex:idx_budgets_key,priority:3" json:"month"`
	Year           int             `gorm:"not null;uniqueIndex:idx_budgets_key,priority:4" json:"year"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Spent          decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"spent"`
	AlertThreshold int             `gorm:"not null" json:"alert_threshold"`
	AlertSent      bool            `gorm:"not null;default:false" json:"alert_sent"`
}

// Period returns the budget's month.
func (b *Budget) Period() Period {
	return Period{Month: b.Month, Year: b.Year}
}

// PercentageSpent reports spent as a percentage of amount, 0 when amount is 0.
func (b *Budget) PercentageSpent() decimal.Decimal {
	return percentageOf(b.Spent, b.Amount)
}

// Remaining is amount minus spent and may be negative.
func (b *Budget) Remaining() decimal.Decimal {
	return b.Amount.Sub(b.Spent)
}

// CrossesThreshold reports whether spending spent against this budget would
// meet its alert threshold.
func (b *Budget) CrossesThreshold(spent decimal.Decimal) bool {
	pct := percentageOf(spent, b.Amount)
	return pct.GreaterThanOrEqual(decimal.NewFromInt(int64(b.AlertThreshold)))
}

func percentageOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}
