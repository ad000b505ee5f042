package repository

import (
	"context"
	"testing"

	"habitpal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationRepository(t *testing.T) {
	db, a, b := seedPair(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()

	conv := &models.Conversation{ID: uuid.NewString(), Kind: models.ConversationKindPrivate, CreatedBy: b.ID, Active: true}
	err := repo.Create(ctx, conv, []models.ConversationParticipant{
		{UserID: a.ID, Role: models.ParticipantRoleMember},
		{UserID: b.ID, Role: models.ParticipantRoleMember},
	})
	require.NoError(t, err)

	var participants []models.ConversationParticipant
	require.NoError(t, db.Where("conversation_id = ?", conv.ID).Order("user_id ASC").Find(&participants).Error)
	require.Len(t, participants, 2)
	assert.Equal(t, a.ID, participants[0].UserID)

	require.NoError(t, db.Create(&models.Message{ConversationID: conv.ID, SenderID: a.ID, Content: "hello"}).Error)

	require.NoError(t, repo.SetActive(ctx, conv.ID, false))
	var got models.Conversation
	require.NoError(t, db.First(&got, "id = ?", conv.ID).Error)
	assert.False(t, got.Active)

	var messages int64
	require.NoError(t, db.Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&messages).Error)
	assert.Equal(t, int64(1), messages)

	assert.ErrorIs(t, repo.SetActive(ctx, "missing", false), models.ErrNotFound)
}
