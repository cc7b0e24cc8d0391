package models

// AuditLog records a user-initiated change to one of their resources.
// Aggregate maintenance performed by the engine is never audited.
type AuditLog struct {
	Base
	UserID       string `gorm:"type:uuid;not null;index" json:"user_id"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}

// All returns every model managed by the schema, in creation order.
func All() []interface{} {
	return []interface{}{
		&Transaction{},
		&Budget{},
		&Goal{},
		&Notification{},
		&AuditLog{},
	}
}
