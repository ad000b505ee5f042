package service

import (
	"context"
	"errors"

	"habitpal/internal/models"
	"habitpal/internal/repository"

	"github.com/google/uuid"
)

// ConversationProvisioner creates the private conversation for a newly
// accepted relationship and archives it when the relationship ends. Both
// methods run inside the caller's transaction.
type ConversationProvisioner interface {
	Provision(ctx context.Context, tx repository.Store, rel *models.Relationship) (string, error)
	Archive(ctx context.Context, tx repository.Store, conversationRef string) error
}

type conversationProvisioner struct {
	newID func() string
}

// NewConversationProvisioner returns a provisioner that names conversations
// with random UUIDs.
func NewConversationProvisioner() ConversationProvisioner {
	return &conversationProvisioner{newID: uuid.NewString}
}

// Provision creates the conversation and both participant rows. A
// relationship that already carries a conversation keeps it.
func (p *conversationProvisioner) Provision(ctx context.Context, tx repository.Store, rel *models.Relationship) (string, error) {
	if rel.ConversationRef != nil && *rel.ConversationRef != "" {
		return *rel.ConversationRef, nil
	}

	conv := &models.Conversation{
		ID:        p.newID(),
		Kind:      models.ConversationKindPrivate,
		CreatedBy: rel.AddresseeID,
		Active:    true,
	}
	participants := []models.ConversationParticipant{
		{UserID: rel.RequesterID, Role: models.ParticipantRoleMember},
		{UserID: rel.AddresseeID, Role: models.ParticipantRoleMember},
	}
	if err := tx.Conversations().Create(ctx, conv, participants); err != nil {
		return "", err
	}
	return conv.ID, nil
}

// Archive marks the conversation inactive. Messages are kept. A conversation
// that no longer exists is treated as archived.
func (p *conversationProvisioner) Archive(ctx context.Context, tx repository.Store, conversationRef string) error {
	err := tx.Conversations().SetActive(ctx, conversationRef, false)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}
