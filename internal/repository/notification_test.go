package repository

import (
	"context"
	"testing"
	"time"

	"habitpal/internal/models"
	"habitpal/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository(t *testing.T) {
	db, a, b := seedPair(t)
	rels := NewRelationshipRepository(db)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	rel := &models.Relationship{RequesterID: a.ID, AddresseeID: b.ID, Status: models.StatusPending}
	require.NoError(t, rels.Create(ctx, rel))

	first := models.NewNotification(rel, b.ID, models.NotificationRequest, "hi", a)
	require.NoError(t, repo.Create(ctx, first))
	second := models.NewNotification(rel, b.ID, models.NotificationRequest, "again", a)
	require.NoError(t, repo.Create(ctx, second))
	forA := models.NewNotification(rel, a.ID, models.NotificationAccepted, "", b)
	require.NoError(t, repo.Create(ctx, forA))

	t.Run("list joins the other party newest first", func(t *testing.T) {
		rows, err := repo.List(ctx, b.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, second.ID, rows[0].ID)
		assert.Equal(t, a.ID, rows[0].OtherID)
		assert.Equal(t, "Ann", rows[0].OtherDisplayName)
		assert.JSONEq(t, string(second.Payload), string(rows[0].Payload))

		page, err := repo.List(ctx, b.ID, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, first.ID, page[0].ID)
	})

	t.Run("unread count and mark read", func(t *testing.T) {
		count, err := repo.CountUnread(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		ok, err := repo.MarkRead(ctx, b.ID, first.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.MarkRead(ctx, b.ID, first.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, ok, "marking twice is not an error")

		ok, err = repo.MarkRead(ctx, a.ID, second.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, ok, "cannot mark another user's notification")

		n, err := repo.MarkAllRead(ctx, b.ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		count, err = repo.CountUnread(ctx, b.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("purge read only", func(t *testing.T) {
		n, err := repo.PurgeRead(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		rows, err := repo.List(ctx, a.ID, 10, 0)
		require.NoError(t, err)
		assert.Len(t, rows, 1, "unread notification survives")
	})

	t.Run("delete by relationship", func(t *testing.T) {
		require.NoError(t, repo.DeleteByRelationship(ctx, rel.ID))
		var count int64
		require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestNotificationRepository_ExcludesSelfJoin(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	a := testutil.CreateAccount(t, db, "AAA111", "Ann")
	b := testutil.CreateAccount(t, db, "BBB222", "Bob")
	ctx := context.Background()

	rel := &models.Relationship{RequesterID: a.ID, AddresseeID: b.ID, Status: models.StatusPending}
	require.NoError(t, NewRelationshipRepository(db).Create(ctx, rel))

	require.NoError(t, db.Create(&models.Notification{RelationshipID: rel.ID, RecipientUserID: b.ID, Type: models.NotificationRequest}).Error)

	// Corrupt the row so the other party resolves to the recipient.
	require.NoError(t, db.Model(&models.Relationship{}).Where("id = ?", rel.ID).Update("requester_id", b.ID).Error)

	rows, err := NewNotificationRepository(db).List(ctx, b.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
