package repository

import (
	"context"

	"habitpal/internal/models"

	"gorm.io/gorm"
)

// ConversationRepository creates and archives private conversations. Message
// rows are never touched.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation, participants []models.ConversationParticipant) error
	SetActive(ctx context.Context, id string, active bool) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *models.Conversation, participants []models.ConversationParticipant) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(conv).Error; err != nil {
		return classify(err)
	}
	for i := range participants {
		participants[i].ConversationID = conv.ID
	}
	if len(participants) > 0 {
		if err := db.Create(&participants).Error; err != nil {
			return classify(err)
		}
	}
	return nil
}

func (r *conversationRepository) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Conversation", id)
	}
	return nil
}
