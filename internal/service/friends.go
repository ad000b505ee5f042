package service

import (
	"context"
	"errors"
	"fmt"

	"habitpal/internal/models"
	"habitpal/internal/repository"
)

// ListFriends lists userID's accepted relationships: starred first, then by
// latest message, then by the friend's last activity.
func (s *RelationshipService) ListFriends(ctx context.Context, userID uint) (views []models.FriendView, err error) {
	ctx, done := s.begin(ctx, "list_friends", userID, userID)
	defer done(&err)

	rows, err := retryRead(ctx, func(ctx context.Context) ([]models.FriendRow, error) {
		return s.store.Relationships().ListFriends(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	views = make([]models.FriendView, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].View(now, s.presenceWindow))
	}
	return views, nil
}

// acceptedBetween loads the accepted relationship between two users or
// returns NotFound.
func acceptedBetween(ctx context.Context, rels repository.RelationshipRepository, userID, otherUserID uint) (*models.Relationship, error) {
	rel, err := rels.GetBetween(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	if rel == nil || rel.Status != models.StatusAccepted {
		return nil, models.NewNotFoundError("Friend", otherUserID)
	}
	return rel, nil
}

// RemoveFriend deletes an accepted relationship and its notifications and
// archives the conversation. Message history is kept.
func (s *RelationshipService) RemoveFriend(ctx context.Context, userID, otherUserID uint) (err error) {
	ctx, done := s.begin(ctx, "remove_friend", userID, otherUserID)
	defer done(&err)

	if userID == otherUserID {
		return models.NewSelfReferenceError("You cannot remove yourself")
	}

	var rel *models.Relationship
	err = s.runEffects(ctx,
		effect{"load friendship", func(ctx context.Context, tx repository.Store) error {
			var err error
			rel, err = acceptedBetween(ctx, tx.Relationships(), userID, otherUserID)
			return err
		}},
		effect{"delete notifications", func(ctx context.Context, tx repository.Store) error {
			return tx.Notifications().DeleteByRelationship(ctx, rel.ID)
		}},
		effect{"delete relationship", func(ctx context.Context, tx repository.Store) error {
			err := tx.Relationships().Delete(ctx, rel.ID, models.StatusAccepted)
			if errors.Is(err, models.ErrNotFound) {
				return models.NewNotFoundError("Friend", otherUserID)
			}
			return err
		}},
		effect{"archive conversation", func(ctx context.Context, tx repository.Store) error {
			if rel.ConversationRef == nil {
				return nil
			}
			return s.provisioner.Archive(ctx, tx, *rel.ConversationRef)
		}},
	)
	if err != nil {
		return err
	}

	payload := models.EventPayload{RelationshipID: rel.ID, ConversationRef: rel.ConversationRef}
	s.publish(ctx,
		userEvent{otherUserID, models.RealtimeEvent{Type: models.EventFriendRemoved, Payload: payload}},
		userEvent{userID, models.RealtimeEvent{Type: models.EventFriendRemoved, Payload: payload}},
	)
	return nil
}

// UpdateFriendSettings applies the provided alias, star and mute fields to
// an accepted relationship. Omitted fields keep their values.
func (s *RelationshipService) UpdateFriendSettings(ctx context.Context, userID, otherUserID uint, patch models.FriendSettingsPatch) (err error) {
	ctx, done := s.begin(ctx, "update_friend_settings", userID, otherUserID)
	defer done(&err)

	if patch.Alias != nil && len([]rune(*patch.Alias)) > maxAliasLength {
		return models.NewValidationError(fmt.Sprintf("alias must be at most %d characters", maxAliasLength))
	}

	rel, err := acceptedBetween(ctx, s.store.Relationships(), userID, otherUserID)
	if err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}

	err = s.store.Relationships().UpdateColumns(ctx, rel.ID, patch.Columns())
	if errors.Is(err, models.ErrNotFound) {
		return models.NewNotFoundError("Friend", otherUserID)
	}
	return err
}

// BlockUser moves the relationship with otherUserID to blocked, creating a
// blocked row when none exists. An active conversation is archived.
func (s *RelationshipService) BlockUser(ctx context.Context, userID, otherUserID uint) (err error) {
	ctx, done := s.begin(ctx, "block_user", userID, otherUserID)
	defer done(&err)

	if userID == otherUserID {
		return models.NewSelfReferenceError("You cannot block yourself")
	}

	var rel *models.Relationship
	err = s.runEffects(ctx,
		effect{"resolve target", func(ctx context.Context, tx repository.Store) error {
			_, err := activeAccountByID(ctx, tx.Accounts(), otherUserID)
			return err
		}},
		effect{"block", func(ctx context.Context, tx repository.Store) error {
			var err error
			if rel, err = tx.Relationships().GetBetween(ctx, userID, otherUserID); err != nil {
				return err
			}
			blocker := userID
			if rel == nil {
				rel = &models.Relationship{
					RequesterID: userID,
					AddresseeID: otherUserID,
					Status:      models.StatusBlocked,
					BlockedBy:   &blocker,
				}
				return tx.Relationships().Create(ctx, rel)
			}

			next, err := models.Transition(rel.Status, models.ActionBlock)
			if err != nil {
				return models.NewCannotSendError()
			}
			ok, err := tx.Relationships().Transition(ctx, rel.ID, rel.Status, next, map[string]interface{}{"blocked_by": blocker})
			if err != nil {
				return err
			}
			if !ok {
				return models.NewUnavailableError(errors.New("relationship changed concurrently"))
			}
			return nil
		}},
		effect{"archive conversation", func(ctx context.Context, tx repository.Store) error {
			if rel.ConversationRef == nil {
				return nil
			}
			return s.provisioner.Archive(ctx, tx, *rel.ConversationRef)
		}},
	)
	if repository.IsConflict(err) {
		return models.NewUnavailableError(err)
	}
	if err != nil {
		return err
	}

	s.publish(ctx, userEvent{userID, models.RealtimeEvent{Type: models.EventUserBlocked, Payload: models.EventPayload{
		RelationshipID: rel.ID, Status: models.StatusBlocked,
	}}})
	return nil
}
