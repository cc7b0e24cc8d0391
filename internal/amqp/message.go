package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/models"
)

// NotificationMessage is the wire form of a stored notification.
type NotificationMessage struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"user_id"`
	Type      models.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Metadata  models.Metadata         `json:"metadata,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewNotificationMessage converts a notification for publishing.
func NewNotificationMessage(n *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt.UTC(),
	}
}

// ToJSON encodes the message body.
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ParseNotificationMessage decodes a message body.
func ParseNotificationMessage(body []byte) (*NotificationMessage, error) {
	var m NotificationMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
