package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories used by the relationship service and opens
// units of work over them.
type Store interface {
	Accounts() AccountRepository
	Relationships() RelationshipRepository
	Notifications() NotificationRepository
	Conversations() ConversationRepository
	// WithinTx runs fn against a Store bound to a single transaction. Any
	// error returned by fn rolls back every write made through that Store.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Accounts() AccountRepository           { return NewAccountRepository(s.db) }
func (s *gormStore) Relationships() RelationshipRepository { return NewRelationshipRepository(s.db) }
func (s *gormStore) Notifications() NotificationRepository { return NewNotificationRepository(s.db) }
func (s *gormStore) Conversations() ConversationRepository { return NewConversationRepository(s.db) }

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
	return classify(err)
}
