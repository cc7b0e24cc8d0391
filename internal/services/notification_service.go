package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// notificationService stores notifications and fans them out.
type notificationService struct {
	db        *gorm.DB
	publisher NotificationPublisher
}

// NewNotificationService creates a new NotificationServicer. publisher may be nil.
func NewNotificationService(db *gorm.DB, publisher NotificationPublisher) NotificationServicer {
	return &notificationService{db: db, publisher: publisher}
}

// Create stores n and publishes it. Publish failures are logged only.
func (s *notificationService) Create(ctx context.Context, n *models.Notification) error {
	if n.Metadata == nil {
		n.Metadata = models.Metadata{}
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.Published(ctx, n)
	return nil
}

// Published fans out a notification that is already stored.
func (s *notificationService) Published(ctx context.Context, n *models.Notification) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		logger.Get().Warnw("failed to publish notification",
			"error", err,
			"notification_id", n.ID,
			"user_id", n.UserID,
			"type", n.Type,
		)
	}
}

// GetUserNotifications returns the owner's notifications, newest first.
func (s *notificationService) GetUserNotifications(ctx context.Context, userID string, unreadOnly bool, page pagination.PageRequest) (*NotificationPage, error) {
	page.Defaults()
	db := s.db.WithContext(ctx)

	base := db.Model(&models.Notification{}).Scopes(models.OwnedBy(userID))
	if unreadOnly {
		base = base.Where("is_read = ?", false)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var notifications []models.Notification
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&notifications).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var unread int64
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &NotificationPage{
		PageResponse: pagination.NewPageResponse(notifications, page.Page, page.PageSize, totalItems),
		UnreadCount:  unread,
	}, nil
}

// MarkAsRead flags one notification as read.
func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	db := s.db.WithContext(ctx)

	var n models.Notification
	if err := db.Scopes(models.OwnedRecord(notificationID, userID)).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := db.Model(&n).Update("is_read", true).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	n.IsRead = true
	return &n, nil
}

// MarkAllAsRead flags every unread notification of the owner and returns how many changed.
func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteNotification removes one notification.
func (s *notificationService) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	result := s.db.WithContext(ctx).
		Scopes(models.OwnedRecord(notificationID, userID)).
		Delete(&models.Notification{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

// ClearAll removes every notification of the owner.
func (s *notificationService) ClearAll(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).Scopes(models.OwnedBy(userID)).Delete(&models.Notification{})
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected, nil
}
