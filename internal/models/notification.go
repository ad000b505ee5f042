package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// NotificationType is the lifecycle event a notification records.
type NotificationType string

const (
	NotificationRequest  NotificationType = "request"
	NotificationAccepted NotificationType = "accepted"
	NotificationDeclined NotificationType = "declined"
)

// NotificationTypeFor maps a status reached by handling a request to the
// notification type sent to the requester.
func NotificationTypeFor(status RelationshipStatus) NotificationType {
	if status == StatusAccepted {
		return NotificationAccepted
	}
	return NotificationDeclined
}

// Notification is an append-only record of a relationship event addressed to
// one user. Only read-marking mutates it.
type Notification struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	RelationshipID  uint             `gorm:"not null;index" json:"relationshipId"`
	RecipientUserID uint             `gorm:"not null;index:idx_notifications_recipient_created,priority:1" json:"recipientUserId"`
	Type            NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Message         string           `gorm:"type:text" json:"message,omitempty"`
	Payload         datatypes.JSON   `json:"payload,omitempty"`
	IsRead          bool             `gorm:"not null;default:false" json:"isRead"`
	ReadAt          *time.Time       `json:"readAt,omitempty"`
	CreatedAt       time.Time        `gorm:"index:idx_notifications_recipient_created,priority:2" json:"createdAt"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// NotificationActor is the snapshot of the acting user stored in Payload.
type NotificationActor struct {
	UserID      uint   `json:"userId"`
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
}

// NewNotification builds a notification whose payload records the actor.
func NewNotification(rel *Relationship, recipient uint, typ NotificationType, message string, actor *Account) *Notification {
	n := &Notification{
		RelationshipID:  rel.ID,
		RecipientUserID: recipient,
		Type:            typ,
		Message:         message,
	}
	if actor != nil {
		// A struct of scalars always marshals.
		raw, _ := json.Marshal(NotificationActor{
			UserID:      actor.ID,
			UID:         actor.PublicUID,
			DisplayName: actor.DisplayName,
		})
		n.Payload = datatypes.JSON(raw)
	}
	return n
}

// decodeActor reads the actor snapshot stored in a notification payload.
func decodeActor(payload datatypes.JSON) *NotificationActor {
	if len(payload) == 0 {
		return nil
	}
	var actor NotificationActor
	if err := json.Unmarshal(payload, &actor); err != nil {
		return nil
	}
	return &actor
}
