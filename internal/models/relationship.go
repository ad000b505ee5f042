package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RelationshipStatus represents the lifecycle state of a relationship row.
type RelationshipStatus string

const (
	// StatusPending indicates a request awaiting the addressee.
	StatusPending RelationshipStatus = "pending"
	// StatusAccepted indicates an active friendship.
	StatusAccepted RelationshipStatus = "accepted"
	// StatusDeclined indicates the addressee declined the request.
	StatusDeclined RelationshipStatus = "declined"
	// StatusBlocked indicates one party blocked the other.
	StatusBlocked RelationshipStatus = "blocked"
)

// Valid reports whether s is a known status.
func (s RelationshipStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusBlocked:
		return true
	}
	return false
}

// RelationshipAction is an input to the relationship state machine.
type RelationshipAction string

const (
	ActionAccept  RelationshipAction = "accept"
	ActionDecline RelationshipAction = "decline"
	ActionBlock   RelationshipAction = "block"
)

// ParseHandleAction parses the action accepted by the handle-request endpoint.
func ParseHandleAction(s string) (RelationshipAction, error) {
	switch RelationshipAction(s) {
	case ActionAccept, ActionDecline:
		return RelationshipAction(s), nil
	}
	return "", NewValidationError("action must be 'accept' or 'decline'")
}

// ErrInvalidTransition is returned by Transition for an action the current
// status does not allow.
var ErrInvalidTransition = errors.New("invalid relationship transition")

// Transition returns the status reached by applying action to current.
func Transition(current RelationshipStatus, action RelationshipAction) (RelationshipStatus, error) {
	switch action {
	case ActionAccept:
		if current == StatusPending {
			return StatusAccepted, nil
		}
	case ActionDecline:
		if current == StatusPending {
			return StatusDeclined, nil
		}
	case ActionBlock:
		switch current {
		case StatusPending, StatusAccepted, StatusDeclined:
			return StatusBlocked, nil
		}
	}
	return current, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, current)
}

// RequestConflict maps an existing row's status to the error a new friend
// request between the same pair produces. Re-requesting after a decline or
// block is not allowed.
func RequestConflict(status RelationshipStatus) *AppError {
	switch status {
	case StatusPending:
		return NewAlreadyPendingError()
	case StatusAccepted:
		return NewAlreadyFriendsError()
	default:
		return NewCannotSendError()
	}
}

// CanSendRequest is the search-result hint shown to clients.
func CanSendRequest(existing *Relationship) bool {
	if existing == nil {
		return true
	}
	return existing.Status == StatusDeclined || existing.Status == StatusBlocked
}

// CanonicalPair orders two user ids so (a, b) and (b, a) map to the same key.
func CanonicalPair(a, b uint) (low, high uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// Relationship is the single row describing two accounts. Requester and
// addressee keep the direction of the original request; PairLowID and
// PairHighID hold the unordered pair so at most one row exists per pair.
type Relationship struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	RequesterID      uint               `gorm:"not null;index:idx_relationships_requester_status,priority:1" json:"requesterId"`
	AddresseeID      uint               `gorm:"not null;index:idx_relationships_addressee_status,priority:1" json:"addresseeId"`
	PairLowID        uint               `gorm:"not null;uniqueIndex:idx_relationship_pair,priority:1" json:"-"`
	PairHighID       uint               `gorm:"not null;uniqueIndex:idx_relationship_pair,priority:2" json:"-"`
	Status           RelationshipStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_relationships_requester_status,priority:2;index:idx_relationships_addressee_status,priority:2" json:"status"`
	RequesterMessage string             `gorm:"type:text" json:"requesterMessage,omitempty"`
	RejectReason     string             `gorm:"type:text" json:"rejectReason,omitempty"`
	Alias            *string            `gorm:"size:100" json:"alias,omitempty"`
	IsStarred        bool               `gorm:"not null;default:false" json:"isStarred"`
	IsMuted          bool               `gorm:"not null;default:false" json:"isMuted"`
	UnreadCount      int                `gorm:"not null;default:0" json:"unreadCount"`
	ConversationRef  *string            `gorm:"size:36" json:"conversationRef,omitempty"`
	LastMessageAt    *time.Time         `json:"lastMessageAt,omitempty"`
	BlockedBy        *uint              `json:"blockedBy,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Relationship) TableName() string {
	return "relationships"
}

// BeforeCreate fills the canonical pair from requester/addressee. Both ids are
// immutable after insert.
func (r *Relationship) BeforeCreate(_ *gorm.DB) error {
	if r.RequesterID == r.AddresseeID {
		return NewSelfReferenceError("cannot create a relationship with yourself")
	}
	r.PairLowID, r.PairHighID = CanonicalPair(r.RequesterID, r.AddresseeID)
	return nil
}

// OtherParty returns the id of the member that is not userID.
func (r *Relationship) OtherParty(userID uint) uint {
	if r.RequesterID == userID {
		return r.AddresseeID
	}
	return r.RequesterID
}

// FriendSettingsPatch carries a partial settings update; nil fields are left
// unchanged.
type FriendSettingsPatch struct {
	Alias     *string `json:"alias"`
	IsStarred *bool   `json:"isStarred"`
	IsMuted   *bool   `json:"isMuted"`
}

// Empty reports whether the patch changes nothing.
func (p FriendSettingsPatch) Empty() bool {
	return p.Alias == nil && p.IsStarred == nil && p.IsMuted == nil
}

// Columns returns the column updates for the provided fields. An empty alias
// clears the alias.
func (p FriendSettingsPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 3)
	if p.Alias != nil {
		if *p.Alias == "" {
			cols["alias"] = nil
		} else {
			cols["alias"] = *p.Alias
		}
	}
	if p.IsStarred != nil {
		cols["is_starred"] = *p.IsStarred
	}
	if p.IsMuted != nil {
		cols["is_muted"] = *p.IsMuted
	}
	return cols
}
