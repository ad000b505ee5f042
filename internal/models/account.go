// Package models contains data structures for the application's domain models.
package models

import "time"

// Account is the identity directory's view of a user. This service only reads it.
type Account struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PublicUID   string     `gorm:"size:32;uniqueIndex;not null" json:"uid"`
	DisplayName string     `gorm:"size:100;not null" json:"displayName"`
	AvatarRef   string     `gorm:"size:255" json:"avatarRef"`
	Active      bool       `gorm:"default:true;not null" json:"active"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// IsOnline reports whether the account was seen within window of now.
func (a *Account) IsOnline(now time.Time, window time.Duration) bool {
	return IsOnline(a.LastSeenAt, now, window)
}

// IsOnline reports whether lastSeen falls within window of now.
func IsOnline(lastSeen *time.Time, now time.Time, window time.Duration) bool {
	if lastSeen == nil {
		return false
	}
	return now.Sub(*lastSeen) <= window
}

// AccountSummary is the public projection of an Account embedded in views.
type AccountSummary struct {
	UserID      uint       `json:"userId"`
	UID         string     `json:"uid"`
	DisplayName string     `json:"displayName"`
	AvatarRef   string     `json:"avatarRef"`
	IsOnline    bool       `json:"isOnline"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty"`
}

// Summary builds the public projection of the account.
func (a *Account) Summary(now time.Time, window time.Duration) AccountSummary {
	return AccountSummary{
		UserID:      a.ID,
		UID:         a.PublicUID,
		DisplayName: a.DisplayName,
		AvatarRef:   a.AvatarRef,
		IsOnline:    a.IsOnline(now, window),
		LastSeenAt:  a.LastSeenAt,
	}
}
