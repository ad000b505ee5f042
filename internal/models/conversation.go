package models

import "time"

// ConversationKindPrivate is the only kind provisioned by the relationship lifecycle.
const ConversationKindPrivate = "private"

// ParticipantRoleMember is the role given to both friends.
const ParticipantRoleMember = "member"

// Conversation is a two-party private channel provisioned when a relationship
// is first accepted. It is archived (Active=false), never deleted.
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Kind      string    `gorm:"size:20;not null;default:'private'" json:"kind"`
	CreatedBy uint      `gorm:"not null" json:"createdBy"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant links a user to a conversation.
type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;size:36" json:"conversationId"`
	UserID         uint      `gorm:"primaryKey" json:"userId"`
	Role           string    `gorm:"size:20;not null;default:'member'" json:"role"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

// TableName specifies the table name for GORM
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// Message is a chat message. Message storage belongs to the messaging
// service; this service keeps the table so history survives archiving.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"size:36;not null;index" json:"conversationId"`
	SenderID       uint      `gorm:"not null;index" json:"senderId"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}
