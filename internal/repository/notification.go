package repository

import (
	"context"
	"time"

	"habitpal/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository is the append-only notification sink. Read-marking
// is the only mutation.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	DeleteByRelationship(ctx context.Context, relationshipID uint) error
	List(ctx context.Context, userID uint, limit, offset int) ([]models.NotificationRow, error)
	MarkRead(ctx context.Context, userID, id uint, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	PurgeRead(ctx context.Context, before time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return classify(r.db.WithContext(ctx).Create(n).Error)
}

func (r *notificationRepository) DeleteByRelationship(ctx context.Context, relationshipID uint) error {
	return classify(r.db.WithContext(ctx).
		Where("relationship_id = ?", relationshipID).
		Delete(&models.Notification{}).Error)
}

func (r *notificationRepository) List(ctx context.Context, userID uint, limit, offset int) ([]models.NotificationRow, error) {
	rows := []models.NotificationRow{}
	err := r.db.WithContext(ctx).
		Table("notifications AS n").
		Select("n.id, n.relationship_id, n.type, n.message, n.is_read, n.read_at, n.created_at, n.payload, "+otherPartyColumns).
		Joins("JOIN relationships r ON r.id = n.relationship_id").
		Joins("JOIN accounts a ON a.id = CASE WHEN r.requester_id = n.recipient_user_id THEN r.addressee_id ELSE r.requester_id END").
		Where("n.recipient_user_id = ? AND a.id <> ?", userID, userID).
		Order("n.created_at DESC, n.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_user_id = ?", id, userID).
		Where("is_read = ?", false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if res.Error != nil {
		return false, classify(res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	// Already read is fine; a foreign or missing id is not.
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_user_id = ?", id, userID).
		Count(&count).Error; err != nil {
		return false, classify(err)
	}
	return count == 1, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if res.Error != nil {
		return 0, classify(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, classify(err)
	}
	return count, nil
}

func (r *notificationRepository) PurgeRead(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_read = ? AND read_at < ?", true, before).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, classify(res.Error)
	}
	return res.RowsAffected, nil
}
