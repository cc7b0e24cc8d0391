package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// IsValid reports whether t is a supported transaction type.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Frequency is how often a recurring transaction repeats.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// IsValid reports whether f is a supported frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// ErrInvalidFrequency is returned when a recurrence carries an unknown or empty frequency.
var ErrInvalidFrequency = errors.New("recurrence frequency must be one of daily, weekly, monthly, yearly")

// Recurrence describes a repeating transaction. A nil *Recurrence means the
// transaction does not repeat; a non-nil one always has a valid frequency.
type Recurrence struct {
	Frequency Frequency `json:"frequency"`
}

// NewRecurrence builds a recurrence, rejecting unknown frequencies.
func NewRecurrence(f Frequency) (*Recurrence, error) {
	if !f.IsValid() {
		return nil, ErrInvalidFrequency
	}
	return &Recurrence{Frequency: f}, nil
}

// GormDataType maps the recurrence to a plain string column.
func (Recurrence) GormDataType() string {
	return "string"
}

// Value stores the frequency in the nullable recurrence_frequency column.
func (r Recurrence) Value() (driver.Value, error) {
	if !r.Frequency.IsValid() {
		return nil, ErrInvalidFrequency
	}
	return string(r.Frequency), nil
}

// Scan reads the frequency column. NULL rows never reach Scan because gorm
// leaves the pointer nil.
func (r *Recurrence) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported recurrence column type %T", value)
	}
	f := Frequency(raw)
	if !f.IsValid() {
		return ErrInvalidFrequency
	}
	r.Frequency = f
	return nil
}

// UnmarshalJSON rejects recurrence objects without a valid frequency.
func (r *Recurrence) UnmarshalJSON(data []byte) error {
	var aux struct {
		Frequency Frequency `json:"frequency"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if !aux.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	r.Frequency = aux.Frequency
	return nil
}

// Transaction represents a financial transaction in the system
type Transaction struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index:idx_transactions_owner_category_date,priority:1" json:"user_id"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Category    Category        `gorm:"not null;index:idx_transactions_owner_category_date,priority:2" json:"category"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	Date        time.Time       `gorm:"not null;index:idx_transactions_owner_category_date,priority:3" json:"date"`
	Recurrence  *Recurrence     `gorm:"column:recurrence_frequency;type:varchar(16)" json:"recurrence,omitempty"`

	ReceiptKey string `json:"receipt_key,omitempty"`
	ReceiptURL string `json:"receipt_url,omitempty"`
}

// IsExpense reports whether the transaction counts against budgets.
func (t *Transaction) IsExpense() bool {
	return t.Type == TransactionTypeExpense
}

// Period returns the budget period the transaction falls in.
func (t *Transaction) Period() Period {
	return PeriodOf(t.Date)
}
