package services

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// AuditEntry describes one user-initiated change.
type AuditEntry struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Changes      map[string]interface{}
}

// auditService writes audit entries. Engine writes to a budget's spent and
// alert latch never pass through here.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log stores entry. The write outlives a cancelled request and its failure is
// only logged; the change being audited has already committed.
func (s *auditService) Log(ctx context.Context, entry AuditEntry) {
	log := logger.Named("audit").With("action", entry.Action, "resource_type", entry.ResourceType, "resource_id", entry.ResourceID)

	if entry.UserID == "" {
		log.Warn("dropping audit entry without owner")
		return
	}

	record := &models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
	}
	if len(entry.Changes) > 0 {
		data, err := json.Marshal(entry.Changes)
		if err != nil {
			log.Errorw("failed to encode audit changes", "error", err)
			data = []byte("{}")
		}
		record.Changes = string(data)
	}

	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(record).Error; err != nil {
		log.Errorw("failed to create audit log entry", "error", err, "user_id", entry.UserID)
	}
}
