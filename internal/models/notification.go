package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// NotificationType identifies what raised a notification.
type NotificationType string

const (
	NotificationBudgetAlert     NotificationType = "budget_alert"
	NotificationHighExpense     NotificationType = "high_expense"
	NotificationGoalProgress    NotificationType = "goal_progress"
	NotificationUnusualSpending NotificationType = "unusual_spending"
	NotificationWeeklySummary   NotificationType = "weekly_summary"
)

// Metadata is a free-form JSON object attached to a notification.
type Metadata map[string]interface{}

// GormDataType stores metadata as text; both supported dialects accept it.
func (Metadata) GormDataType() string {
	return "text"
}

// Value encodes the metadata as a JSON object.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes a JSON object column.
func (m *Metadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}
	out := Metadata{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// Notification is an append-only message addressed to one owner.
type Notification struct {
	Base
	UserID   string           `gorm:"type:uuid;not null;index" json:"user_id"`
	Type     NotificationType `gorm:"not null" json:"type"`
	Title    string           `gorm:"not null" json:"title"`
	Message  string           `gorm:"not null" json:"message"`
	IsRead   bool             `gorm:"not null;default:false" json:"is_read"`
	Metadata Metadata         `json:"metadata"`
}
