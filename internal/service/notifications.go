package service

import (
	"context"
	"time"

	"habitpal/internal/models"
	"habitpal/internal/observability"
)

const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

// ListNotifications pages userID's notifications, newest first.
func (s *RelationshipService) ListNotifications(ctx context.Context, userID uint, limit, offset int) (views []models.NotificationView, err error) {
	ctx, done := s.begin(ctx, "list_notifications", userID, userID)
	defer done(&err)

	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := retryRead(ctx, func(ctx context.Context) ([]models.NotificationRow, error) {
		return s.store.Notifications().List(ctx, userID, limit, offset)
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	views = make([]models.NotificationView, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].View(now, s.presenceWindow))
	}
	return views, nil
}

// MarkNotificationRead marks one of userID's notifications read. Marking an
// already-read notification succeeds.
func (s *RelationshipService) MarkNotificationRead(ctx context.Context, userID, notificationID uint) (err error) {
	ctx, done := s.begin(ctx, "mark_notification_read", userID, notificationID)
	defer done(&err)

	ok, err := s.store.Notifications().MarkRead(ctx, userID, notificationID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Notification", notificationID)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of userID read
// and returns how many changed.
func (s *RelationshipService) MarkAllNotificationsRead(ctx context.Context, userID uint) (n int64, err error) {
	ctx, done := s.begin(ctx, "mark_all_notifications_read", userID, userID)
	defer done(&err)

	return s.store.Notifications().MarkAllRead(ctx, userID, s.now())
}

// UnreadNotificationCount returns the number of unread notifications.
func (s *RelationshipService) UnreadNotificationCount(ctx context.Context, userID uint) (n int64, err error) {
	ctx, done := s.begin(ctx, "unread_notification_count", userID, userID)
	defer done(&err)

	return retryRead(ctx, func(ctx context.Context) (int64, error) {
		return s.store.Notifications().CountUnread(ctx, userID)
	})
}

// PurgeReadNotifications deletes notifications read more than retention ago.
func (s *RelationshipService) PurgeReadNotifications(ctx context.Context, retention time.Duration) (n int64, err error) {
	ctx, done := s.begin(ctx, "purge_read_notifications", 0, retention)
	defer done(&err)

	if retention <= 0 {
		return 0, models.NewValidationError("retention must be positive")
	}
	n, err = s.store.Notifications().PurgeRead(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	observability.NotificationsPurged.Add(float64(n))
	return n, nil
}
