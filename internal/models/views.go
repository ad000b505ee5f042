package models

import (
	"time"

	"gorm.io/datatypes"
)

// RequestDirection selects received or sent pending requests.
type RequestDirection string

const (
	DirectionReceived RequestDirection = "received"
	DirectionSent     RequestDirection = "sent"
)

// ParseRequestDirection parses the ?type= query value. Empty means received.
func ParseRequestDirection(s string) (RequestDirection, error) {
	switch RequestDirection(s) {
	case "", DirectionReceived:
		return DirectionReceived, nil
	case DirectionSent:
		return DirectionSent, nil
	}
	return "", NewValidationError("type must be 'received' or 'sent'")
}

// UserSearchResult is returned by a lookup by public UID.
type UserSearchResult struct {
	AccountSummary
	RelationshipStatus *RelationshipStatus `json:"relationshipStatus"`
	RelationshipID     *uint               `json:"relationshipId"`
	CanSendRequest     bool                `json:"canSendRequest"`
}

// RequestView is a pending request joined to the other party's account.
type RequestView struct {
	ID        uint               `json:"id"`
	Status    RelationshipStatus `json:"status"`
	Message   string             `json:"message"`
	CreatedAt time.Time          `json:"createdAt"`
	User      AccountSummary     `json:"user"`
}

// FriendView is an accepted relationship from one member's point of view.
type FriendView struct {
	RelationshipID  uint       `json:"relationshipId"`
	UserID          uint       `json:"userId"`
	UID             string     `json:"uid"`
	DisplayName     string     `json:"displayName"`
	Alias           *string    `json:"alias"`
	AvatarRef       string     `json:"avatarRef"`
	IsOnline        bool       `json:"isOnline"`
	LastSeenAt      *time.Time `json:"lastSeenAt"`
	IsStarred       bool       `json:"isStarred"`
	IsMuted         bool       `json:"isMuted"`
	UnreadCount     int        `json:"unreadCount"`
	ConversationRef *string    `json:"conversationRef"`
	LastMessageAt   *time.Time `json:"lastMessageAt"`
}

// NotificationView is a notification joined to the other party of its
// relationship.
type NotificationView struct {
	ID             uint             `json:"id"`
	RelationshipID uint             `json:"relationshipId"`
	Type           NotificationType `json:"type"`
	Message        string           `json:"message"`
	IsRead         bool             `json:"isRead"`
	ReadAt         *time.Time       `json:"readAt"`
	CreatedAt      time.Time        `json:"createdAt"`
	FromUser       AccountSummary   `json:"fromUser"`
	// Actor is the acting user as recorded when the notification was written.
	Actor *NotificationActor `json:"actor,omitempty"`
}

// FriendRow is the flat row produced by the friend-list query.
type FriendRow struct {
	Relationship
	OtherID          uint       `gorm:"column:other_id"`
	OtherUID         string     `gorm:"column:other_uid"`
	OtherDisplayName string     `gorm:"column:other_display_name"`
	OtherAvatarRef   string     `gorm:"column:other_avatar_ref"`
	OtherLastSeenAt  *time.Time `gorm:"column:other_last_seen_at"`
}

// View builds the FriendView; the alias, when set, wins over the display name.
func (r *FriendRow) View(now time.Time, window time.Duration) FriendView {
	name := r.OtherDisplayName
	if r.Alias != nil && *r.Alias != "" {
		name = *r.Alias
	}
	return FriendView{
		RelationshipID:  r.ID,
		UserID:          r.OtherID,
		UID:             r.OtherUID,
		DisplayName:     name,
		Alias:           r.Alias,
		AvatarRef:       r.OtherAvatarRef,
		IsOnline:        IsOnline(r.OtherLastSeenAt, now, window),
		LastSeenAt:      r.OtherLastSeenAt,
		IsStarred:       r.IsStarred,
		IsMuted:         r.IsMuted,
		UnreadCount:     r.UnreadCount,
		ConversationRef: r.ConversationRef,
		LastMessageAt:   r.LastMessageAt,
	}
}

// RequestRow is the flat row produced by the pending-request queries.
type RequestRow struct {
	ID               uint               `gorm:"column:id"`
	Status           RelationshipStatus `gorm:"column:status"`
	RequesterMessage string             `gorm:"column:requester_message"`
	CreatedAt        time.Time          `gorm:"column:created_at"`
	OtherID          uint               `gorm:"column:other_id"`
	OtherUID         string             `gorm:"column:other_uid"`
	OtherDisplayName string             `gorm:"column:other_display_name"`
	OtherAvatarRef   string             `gorm:"column:other_avatar_ref"`
	OtherLastSeenAt  *time.Time         `gorm:"column:other_last_seen_at"`
}

// View builds the RequestView.
func (r *RequestRow) View(now time.Time, window time.Duration) RequestView {
	return RequestView{
		ID:        r.ID,
		Status:    r.Status,
		Message:   r.RequesterMessage,
		CreatedAt: r.CreatedAt,
		User: AccountSummary{
			UserID:      r.OtherID,
			UID:         r.OtherUID,
			DisplayName: r.OtherDisplayName,
			AvatarRef:   r.OtherAvatarRef,
			IsOnline:    IsOnline(r.OtherLastSeenAt, now, window),
			LastSeenAt:  r.OtherLastSeenAt,
		},
	}
}

// NotificationRow is the flat row produced by the notification listing query.
type NotificationRow struct {
	ID               uint             `gorm:"column:id"`
	RelationshipID   uint             `gorm:"column:relationship_id"`
	Type             NotificationType `gorm:"column:type"`
	Message          string           `gorm:"column:message"`
	IsRead           bool             `gorm:"column:is_read"`
	ReadAt           *time.Time       `gorm:"column:read_at"`
	CreatedAt        time.Time        `gorm:"column:created_at"`
	Payload          datatypes.JSON   `gorm:"column:payload"`
	OtherID          uint             `gorm:"column:other_id"`
	OtherUID         string           `gorm:"column:other_uid"`
	OtherDisplayName string           `gorm:"column:other_display_name"`
	OtherAvatarRef   string           `gorm:"column:other_avatar_ref"`
	OtherLastSeenAt  *time.Time       `gorm:"column:other_last_seen_at"`
}

// View builds the NotificationView.
func (r *NotificationRow) View(now time.Time, window time.Duration) NotificationView {
	return NotificationView{
		ID:             r.ID,
		RelationshipID: r.RelationshipID,
		Type:           r.Type,
		Message:        r.Message,
		IsRead:         r.IsRead,
		ReadAt:         r.ReadAt,
		CreatedAt:      r.CreatedAt,
		FromUser: AccountSummary{
			UserID:      r.OtherID,
			UID:         r.OtherUID,
			DisplayName: r.OtherDisplayName,
			AvatarRef:   r.OtherAvatarRef,
			IsOnline:    IsOnline(r.OtherLastSeenAt, now, window),
			LastSeenAt:  r.OtherLastSeenAt,
		},
		Actor: decodeActor(r.Payload),
	}
}
